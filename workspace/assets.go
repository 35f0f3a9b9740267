package workspace

import (
	"path"
	"regexp"
	"sort"
	"strings"
)

var (
	attrRefPattern = regexp.MustCompile(`(?i)(?:src|href)\s*=\s*['"]([^'"]+)['"]`)

	assetRefExts = []string{".css", ".js", ".png", ".jpg", ".jpeg", ".gif", ".ico", ".svg", ".webp"}
)

func isAssetRef(url string) bool {
	lower := strings.ToLower(url)
	for _, ext := range assetRefExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func isExternalRef(url string) bool {
	for _, prefix := range []string{"http://", "https://", "data:", "mailto:", "#"} {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

// MissingAssetRefs scans every HTML file for src and href attributes that
// point at local asset files and reports the referenced paths that do not
// exist in the workspace. References are resolved relative to the HTML file
// that mentions them, with any leading slash stripped first. External URLs,
// data URIs, anchors, and non-asset extensions are ignored.
func (d *Dir) MissingAssetRefs() ([]string, error) {
	files, err := d.ListFiles()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var missing []string
	for _, f := range files {
		if !strings.HasSuffix(strings.ToLower(f), ".html") {
			continue
		}
		content, err := d.ReadFile(f)
		if err != nil {
			continue
		}
		base := path.Dir(f)
		for _, m := range attrRefPattern.FindAllStringSubmatch(content, -1) {
			ref := m[1]
			if isExternalRef(ref) || !isAssetRef(ref) {
				continue
			}
			rel := path.Clean(path.Join(base, strings.TrimLeft(ref, "/")))
			if strings.HasPrefix(rel, "..") {
				continue
			}
			if seen[rel] {
				continue
			}
			seen[rel] = true
			if !d.Exists(rel) {
				missing = append(missing, rel)
			}
		}
	}
	sort.Strings(missing)
	return missing, nil
}
