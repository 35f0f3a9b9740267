// Package workspace contains the generated app's on-disk world: a contained
// root directory, the path sanitizer that canonicalizes untrusted artifact
// names, and the layout helpers the deploy stage relies on.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrTraversal marks a path that would resolve outside the workspace root.
var ErrTraversal = errors.New("path escapes workspace root")

// Dir is a workspace rooted at a single directory. Every write goes through
// Join, which rejects escapes regardless of what the sanitizer produced.
type Dir struct {
	root string
}

// New resolves root to an absolute, symlink-free base. The directory itself
// is created lazily on first write.
func New(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return &Dir{root: abs}, nil
}

func (d *Dir) Root() string { return d.root }

// Join resolves rel against the root and guarantees the result stays at or
// under it.
func (d *Dir) Join(rel string) (string, error) {
	candidate := filepath.Join(d.root, filepath.FromSlash(rel))
	if candidate != d.root && !strings.HasPrefix(candidate, d.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrTraversal, rel)
	}
	return candidate, nil
}

// WriteFile materializes content at rel, creating parent directories as
// needed. Empty or whitespace-only content is dropped without touching disk.
// Returns the number of bytes written.
func (d *Dir) WriteFile(rel, content string) (int, error) {
	if strings.TrimSpace(content) == "" {
		return 0, nil
	}
	full, err := d.Join(rel)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return 0, err
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return 0, err
	}
	return len(content), nil
}

// Touch creates an empty file at rel, for markers like .nojekyll that the
// blank-content guard in WriteFile would otherwise skip. Existing content is
// left alone.
func (d *Dir) Touch(rel string) error {
	full, err := d.Join(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(full, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// ReadFile returns the content at rel.
func (d *Dir) ReadFile(rel string) (string, error) {
	full, err := d.Join(rel)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Exists reports whether rel names an existing file or directory.
func (d *Dir) Exists(rel string) bool {
	full, err := d.Join(rel)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

// ListFiles returns every regular file under the root as sorted, slash-
// separated relative paths, skipping .git trees. A missing root lists empty.
func (d *Dir) ListFiles() ([]string, error) {
	if _, err := os.Stat(d.root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	var files []string
	err := filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if p != d.root && strings.HasPrefix(entry.Name(), ".git") {
				return fs.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(d.root, p)
		if relErr != nil {
			return relErr
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
