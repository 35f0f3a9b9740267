package workspace

import (
	"path"
	"regexp"
	"strings"
)

// Extensions a sanitized path may carry. Anything else is rejected outright.
var allowedExtensions = map[string]bool{
	".html": true, ".css": true, ".js": true, ".json": true, ".svg": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".ts": true, ".tsx": true, ".jsx": true, ".map": true,
	".woff": true, ".woff2": true, ".webp": true,
}

// Top-level directories a multi-segment path may keep. Paths rooted anywhere
// else are re-rooted by extension class.
var allowedTopDirs = map[string]bool{
	"assets": true, "css": true, "js": true, "images": true, "img": true,
	"static": true, "src": true, ".github": true, "public": true,
}

var (
	trailingCommentary = regexp.MustCompile("\\s+\\(|`")
	pathLabel          = regexp.MustCompile(`(?i)^(?:file:|filename:)\s*`)
	disallowedChars    = regexp.MustCompile(`[^A-Za-z0-9._\-/]`)
	repeatedSlashes    = regexp.MustCompile(`/{2,}`)
)

// Sanitizer canonicalizes untrusted artifact paths into a small, predictable
// destination space. Script files land under src/ on the react stack and
// under js/ otherwise; the remaining policy is shared.
type Sanitizer struct {
	stack Stack
}

func NewSanitizer(stack Stack) *Sanitizer {
	return &Sanitizer{stack: stack}
}

// Clean converts a raw filename, possibly wrapped in backticks or trailed by
// commentary, into a safe workspace-relative path. ok is false when nothing
// usable remains.
//
//	"index.html` (header updated)"  ->  "index.html"
//	"C:\\site\\about.html"          ->  "about.html"
//	"../../etc/passwd.html"         ->  "passwd.html"
func (sn *Sanitizer) Clean(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	s := strings.Trim(strings.TrimSpace(raw), "`\"'")
	s = strings.ReplaceAll(s, "\\", "/")

	// Cut trailing commentary: anything after a backtick or " (".
	s = strings.TrimSpace(trailingCommentary.Split(s, 2)[0])
	s = pathLabel.ReplaceAllString(s, "")
	s = disallowedChars.ReplaceAllString(s, "")
	s = repeatedSlashes.ReplaceAllString(s, "/")

	// Stripping leading separators and dots defeats absolute paths and
	// ..-prefixed traversal before any filesystem resolution happens.
	s = strings.TrimLeft(s, "/.")
	if s == "" {
		return "", false
	}

	ext := strings.ToLower(path.Ext(s))
	if !allowedExtensions[ext] {
		return "", false
	}

	if i := strings.IndexByte(s, '/'); i >= 0 && !allowedTopDirs[s[:i]] {
		base := path.Base(s)
		switch ext {
		case ".css":
			s = path.Join("css", base)
		case ".js", ".ts", ".tsx", ".jsx":
			if sn.stack == StackReact {
				s = path.Join("src", base)
			} else {
				s = path.Join("js", base)
			}
		case ".png", ".jpg", ".jpeg", ".gif", ".ico", ".svg", ".webp":
			s = path.Join("assets", base)
		default:
			s = base
		}
	}
	return s, true
}
