package pipeline

import (
	"encoding/json"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/lexcodex/weblurp/workspace"
)

// FileSummary is one compacted file head handed to the scenario prompt.
type FileSummary struct {
	Path string `json:"path"`
	Head string `json:"head"`
}

// Line shapes worth keeping when a script file is compacted: imports,
// exports, function and component declarations, interfaces, type aliases.
var signalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*import\b`),
	regexp.MustCompile(`^\s*export\b`),
	regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\b`),
	regexp.MustCompile(`^\s*(?:export\s+)?const\s+[A-Za-z0-9_]+\s*=\s*(?:async\s*)?\(`),
	regexp.MustCompile(`^\s*(?:export\s+)?(?:const|function)\s+[A-Z][A-Za-z0-9_]*\s*(?:[:=]|\()`),
	regexp.MustCompile(`^\s*interface\s+[A-Za-z0-9_]+`),
	regexp.MustCompile(`^\s*type\s+[A-Za-z0-9_]+`),
}

// classPriority orders files by how much signal they carry for scenario
// generation: scripts first, then markup, styles, data, everything else.
func classPriority(ext string) int {
	switch ext {
	case ".tsx", ".ts", ".jsx", ".js":
		return 1
	case ".html":
		return 2
	case ".css":
		return 3
	case ".json":
		return 4
	}
	return 5
}

var summarizableExts = map[string]bool{
	".html": true, ".css": true, ".js": true, ".ts": true,
	".tsx": true, ".jsx": true, ".json": true,
}

// Summarizer builds deterministic workspace snapshots for the repair loop.
// The same workspace and budget always produce byte-identical summaries, so
// a retry at a smaller rung differs only in size, never in ordering.
type Summarizer struct {
	dir *workspace.Dir
}

func NewSummarizer(dir *workspace.Dir) *Summarizer {
	return &Summarizer{dir: dir}
}

// Summarize walks the workspace in priority order and collects file heads
// until one of the level's three budgets would be exceeded. Unreadable and
// empty files are skipped, not counted.
func (s *Summarizer) Summarize(level BudgetLevel) ([]FileSummary, error) {
	files, err := s.dir.ListFiles()
	if err != nil {
		return nil, err
	}
	// ListFiles is lexically sorted; the stable re-sort keeps that order as
	// the tiebreak within each (priority, path length) bucket.
	sort.SliceStable(files, func(i, j int) bool {
		pi, pj := classPriority(path.Ext(files[i])), classPriority(path.Ext(files[j]))
		if pi != pj {
			return pi < pj
		}
		return len(files[i]) < len(files[j])
	})

	var summaries []FileSummary
	total := 0
	for _, f := range files {
		if len(summaries) >= level.MaxFiles {
			break
		}
		ext := strings.ToLower(path.Ext(f))
		if !summarizableExts[ext] {
			continue
		}
		head := s.head(f, ext, level.MaxLinesPerFile)
		if strings.TrimSpace(head) == "" {
			continue
		}
		entry := FileSummary{Path: f, Head: head}
		encoded, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		if total+len(encoded) > level.CharBudget {
			break
		}
		summaries = append(summaries, entry)
		total += len(encoded)
	}
	return summaries, nil
}

// head compacts one file. Script files keep only trimmed signal lines; when
// no line matches, and for every other extension, the first maxLines lines
// pass through verbatim.
func (s *Summarizer) head(rel, ext string, maxLines int) string {
	content, err := s.dir.ReadFile(rel)
	if err != nil {
		return ""
	}
	lines := splitLines(content)
	switch ext {
	case ".ts", ".tsx", ".js", ".jsx":
		var keep []string
		for _, line := range lines {
			if len(keep) >= maxLines {
				break
			}
			for _, pat := range signalPatterns {
				if pat.MatchString(line) {
					keep = append(keep, strings.TrimSpace(line))
					break
				}
			}
		}
		if len(keep) > 0 {
			return strings.Join(keep, "\n")
		}
	}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return strings.Join(lines, "\n")
}

func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
