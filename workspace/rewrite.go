package workspace

import (
	"os"
	"path"
	"regexp"
	"strings"
)

var assetURLPattern = regexp.MustCompile(`(\s(?:src|href)\s*=\s*['"])/([^'"]+)`)

// RewriteAssetPaths strips the leading slash from root-absolute src/href
// attributes in every workspace HTML file so assets resolve when the site is
// served under a project subpath. Returns the number of files changed.
func (d *Dir) RewriteAssetPaths() (int, error) {
	files, err := d.ListFiles()
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, f := range files {
		if strings.ToLower(path.Ext(f)) != ".html" {
			continue
		}
		full, err := d.Join(f)
		if err != nil {
			continue
		}
		data, err := os.ReadFile(full)
		if err != nil {
			continue
		}
		next := assetURLPattern.ReplaceAllString(string(data), "${1}${2}")
		if next == string(data) {
			continue
		}
		if err := os.WriteFile(full, []byte(next), 0o644); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}
