package workspace

import (
	"os"
	"path"
	"path/filepath"
	"sort"
)

// BestAppDir picks the directory most likely to hold the built app: it must
// contain an index.html, and among candidates the one with the most files in
// its subtree wins. Returns ok=false when no index.html exists anywhere.
func (d *Dir) BestAppDir() (string, bool) {
	files, err := d.ListFiles()
	if err != nil {
		return "", false
	}
	counts := map[string]int{}
	hasIndex := map[string]bool{}
	for _, f := range files {
		dir := path.Dir(f)
		if path.Base(f) == "index.html" {
			hasIndex[dir] = true
		}
		for {
			counts[dir]++
			if dir == "." {
				break
			}
			dir = path.Dir(dir)
		}
	}
	candidates := make([]string, 0, len(hasIndex))
	for dir := range hasIndex {
		candidates = append(candidates, dir)
	}
	sort.Strings(candidates)
	best, bestScore := "", -1
	for _, dir := range candidates {
		if counts[dir] > bestScore {
			best, bestScore = dir, counts[dir]
		}
	}
	if bestScore < 0 {
		return "", false
	}
	return best, true
}

// Flatten copies every file under dir (workspace-relative) to the root and
// then removes the source tree. Two-phase enumerate/copy-then-remove; an
// interruption can leave both copies behind, which a re-run repairs.
func (d *Dir) Flatten(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	src, err := d.Join(dir)
	if err != nil {
		return err
	}
	var rels []string
	err = filepath.WalkDir(src, func(p string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(src, p)
		if relErr != nil {
			return relErr
		}
		rels = append(rels, rel)
		return nil
	})
	if err != nil {
		return err
	}
	for _, rel := range rels {
		data, err := os.ReadFile(filepath.Join(src, rel))
		if err != nil {
			return err
		}
		dest := filepath.Join(d.root, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return err
		}
	}
	return os.RemoveAll(src)
}
