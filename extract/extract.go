// Package extract recovers file artifacts from free-form generator output.
// A response is scanned by a cascade of patterns of decreasing strictness;
// every candidate path goes through the workspace sanitizer before it is
// allowed to name a destination.
package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/lexcodex/weblurp/workspace"
)

// Tier identifies which extraction strategy produced an artifact.
type Tier int

const (
	// TierLabeled is an explicit FILENAME: label followed by a fenced block.
	TierLabeled Tier = iota + 1
	// TierCommented is a fenced block opening with a comment token naming a file.
	TierCommented
	// TierHeading is a markdown heading naming a file right before a fence.
	TierHeading
	// TierBarePath is a fenced block whose first line is a bare path token.
	TierBarePath
	// TierLanguage is the last-resort mapping from a fence language tag to a
	// canonical filename.
	TierLanguage
)

// Artifact is one recovered virtual file with its sanitized destination.
type Artifact struct {
	Dest string // workspace-relative destination, already sanitized
	Raw  string // the path as written in the response
	Body string // right-trimmed content
	Tier Tier
}

// Report carries the side counts of one Parse call. Attempts stays zero only
// when no tier recognized anything, which is the signal to dump the raw
// response for debugging.
type Report struct {
	Attempts int // candidates seen across all tiers
	Rejected int // candidates dropped by the sanitizer
	Blank    int // candidates dropped for empty content
}

// DestProbe answers whether a raw relative path already exists in the
// workspace. *workspace.Dir satisfies it.
type DestProbe interface {
	Exists(rel string) bool
}

const extTokens = `html|css|js|json|svg|png|jpg|jpeg|gif|ico|ts|tsx|jsx|map|woff|woff2|webp`

var (
	labeledPattern   = regexp.MustCompile("(?s)FILENAME:\\s*([^\n]+)\\s*```\\w*\n(.*?)```")
	commentedPattern = regexp.MustCompile("(?s)```\\w*\\s*(?://|#|<!--)\\s*([^\n]+?\\.(?:" + extTokens + "))\\s*(?:-->)?\\s*\n(.*?)```")
	headingPattern   = regexp.MustCompile("(?s)#+\\s*(?:File:|Filename:)?\\s*`?([^\n]+?\\.(?:html|css|js|json|svg|ts|tsx|jsx))`?\\s*\n```\\w*\n(.*?)```")
	barePathPattern  = regexp.MustCompile("(?s)```\\w*\\s*\n(?://|#|<!--)?\\s*([a-zA-Z0-9_\\-/.]+\\.(?:" + extTokens + "))\\s*(?:-->)?\\s*\n(.*?)```")
	languagePattern  = regexp.MustCompile("(?s)```(\\w+)\n(.*?)```")
)

// Cascade applies the extraction tiers over one immutable response.
type Cascade struct {
	san *workspace.Sanitizer
}

func NewCascade(stack workspace.Stack) *Cascade {
	return &Cascade{san: workspace.NewSanitizer(stack)}
}

// Parse returns the artifacts recovered from response, in emit order.
// Duplicate destinations are kept so the last writer wins downstream. The
// labeled tier always yields; lower tiers skip paths already claimed in this
// call or already present according to probe. A nil probe means nothing
// exists yet.
func (c *Cascade) Parse(response string, probe DestProbe) ([]Artifact, Report) {
	var (
		arts    []Artifact
		rep     Report
		claimed = map[string]bool{}
	)
	taken := func(raw string) bool {
		if claimed[raw] {
			return true
		}
		return probe != nil && probe.Exists(raw)
	}
	emit := func(tier Tier, raw, body string) {
		rep.Attempts++
		body = strings.TrimRightFunc(body, unicode.IsSpace)
		if strings.TrimSpace(body) == "" {
			rep.Blank++
			return
		}
		dest, ok := c.san.Clean(raw)
		if !ok {
			rep.Rejected++
			return
		}
		arts = append(arts, Artifact{Dest: dest, Raw: raw, Body: body, Tier: tier})
		claimed[dest] = true
	}

	for _, m := range labeledPattern.FindAllStringSubmatch(response, -1) {
		emit(TierLabeled, strings.Trim(strings.TrimSpace(m[1]), "`"), m[2])
	}
	for _, m := range commentedPattern.FindAllStringSubmatch(response, -1) {
		raw := strings.TrimSpace(m[1])
		if taken(raw) {
			continue
		}
		emit(TierCommented, raw, m[2])
	}
	for _, m := range headingPattern.FindAllStringSubmatch(response, -1) {
		raw := strings.Trim(strings.TrimSpace(m[1]), "`")
		if taken(raw) {
			continue
		}
		emit(TierHeading, raw, m[2])
	}
	for _, m := range barePathPattern.FindAllStringSubmatch(response, -1) {
		raw := strings.TrimSpace(m[1])
		if taken(raw) {
			continue
		}
		emit(TierBarePath, raw, m[2])
	}

	// Last resort: untagged paths, but a recognizable fence language.
	if rep.Attempts == 0 {
		for _, m := range languagePattern.FindAllStringSubmatch(response, -1) {
			lang, body := strings.ToLower(m[1]), m[2]
			switch {
			case lang == "html" && strings.Contains(strings.ToLower(body), "<html"):
				emit(TierLanguage, "index.html", body)
			case lang == "css":
				emit(TierLanguage, "css/styles.css", body)
			case lang == "javascript" || lang == "js":
				emit(TierLanguage, "js/script.js", body)
			case lang == "tsx" || lang == "typescript":
				emit(TierLanguage, "src/App.tsx", body)
			}
		}
	}
	return arts, rep
}
