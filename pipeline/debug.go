package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lexcodex/weblurp/workspace"
)

// DebugFile is where unparseable collaborator replies accumulate, next to
// the generated app so the full context ships with the workspace.
const DebugFile = "debug_response.txt"

// DebugLog appends raw replies that produced zero extraction attempts, for
// offline inspection of what the collaborator actually sent.
type DebugLog struct {
	dir *workspace.Dir
}

func NewDebugLog(dir *workspace.Dir) *DebugLog {
	return &DebugLog{dir: dir}
}

// Dump appends one delimited entry. Failures to write are returned but
// callers treat them as advisory; losing a debug entry never fails a run.
func (d *DebugLog) Dump(response string) error {
	full, err := d.dir.Join(DebugFile)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(full, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	sep := strings.Repeat("=", 80)
	stamp := time.Now().Format("2006-01-02 15:04:05")
	_, err = fmt.Fprintf(f, "\n\n%s\nResponse at %s:\n%s\n%s\n", sep, stamp, response, sep)
	return err
}
