package pipeline

import (
	"errors"
	"log/slog"

	"github.com/lexcodex/weblurp/extract"
	"github.com/lexcodex/weblurp/workspace"
)

// Materializer turns one collaborator reply into workspace files: extract
// the artifacts, write each one, and account for every way a candidate can
// be lost along the way.
type Materializer struct {
	dir     *workspace.Dir
	cascade *extract.Cascade
	debug   *DebugLog
	stats   *Stats
	log     *slog.Logger
}

func NewMaterializer(dir *workspace.Dir, cascade *extract.Cascade, debug *DebugLog, stats *Stats, log *slog.Logger) *Materializer {
	return &Materializer{dir: dir, cascade: cascade, debug: debug, stats: stats, log: log}
}

// Apply extracts and writes every artifact in response, returning how many
// files actually landed on disk. A reply that produced no extraction attempt
// at all is dumped to the debug log so the raw text is never lost.
func (m *Materializer) Apply(response string) int {
	artifacts, report := m.cascade.Parse(response, m.dir)
	m.stats.SanitizeRejects += report.Rejected

	written := 0
	for _, a := range artifacts {
		n, err := m.dir.WriteFile(a.Dest, a.Body)
		if err != nil {
			if errors.Is(err, workspace.ErrTraversal) {
				m.stats.TraversalViolations++
				m.log.Error("artifact path escaped workspace root", "path", a.Raw)
			} else {
				m.stats.WriteFailures++
				m.log.Warn("artifact write failed", "path", a.Dest, "err", err)
			}
			continue
		}
		if n > 0 {
			written++
			m.stats.ArtifactsWritten++
			m.log.Debug("artifact written", "path", a.Dest, "bytes", n, "tier", int(a.Tier))
		}
	}

	if report.Attempts == 0 {
		m.stats.ParseMisses++
		m.log.Warn("reply yielded no artifacts, dumping to debug log",
			"rejected", report.Rejected, "blank", report.Blank)
		if err := m.debug.Dump(response); err != nil {
			m.log.Warn("debug dump failed", "err", err)
		}
	}
	return written
}
