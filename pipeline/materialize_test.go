package pipeline

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/weblurp/extract"
	"github.com/lexcodex/weblurp/workspace"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMaterializer(t *testing.T, stack workspace.Stack) (*Materializer, *workspace.Dir, *Stats) {
	t.Helper()
	dir := testWorkspace(t)
	stats := &Stats{}
	m := NewMaterializer(dir, extract.NewCascade(stack), NewDebugLog(dir), stats, discardLogger())
	return m, dir, stats
}

func TestApplyWritesLabeledArtifacts(t *testing.T) {
	m, dir, stats := testMaterializer(t, workspace.StackBasic)

	written := m.Apply("FILENAME: index.html\n```html\n<html><body>Hi</body></html>\n```\n" +
		"FILENAME: css/styles.css\n```css\nbody { margin: 0; }\n```\n")

	assert.Equal(t, 2, written)
	assert.Equal(t, 2, stats.ArtifactsWritten)
	assert.Equal(t, 0, stats.ParseMisses)

	content, err := dir.ReadFile("index.html")
	require.NoError(t, err)
	assert.Equal(t, "<html><body>Hi</body></html>", content)
	assert.True(t, dir.Exists("css/styles.css"))
	assert.False(t, dir.Exists(DebugFile))
}

func TestApplyCountsSanitizerRejects(t *testing.T) {
	m, dir, stats := testMaterializer(t, workspace.StackBasic)

	written := m.Apply("FILENAME: setup.exe\n```\nMZ payload\n```\n")

	assert.Equal(t, 0, written)
	assert.Equal(t, 1, stats.SanitizeRejects)
	assert.Equal(t, 0, stats.ArtifactsWritten)
	// The reject was still an extraction attempt, so nothing is dumped.
	assert.Equal(t, 0, stats.ParseMisses)
	assert.False(t, dir.Exists(DebugFile))
}

func TestApplyDumpsUnparseableReply(t *testing.T) {
	m, dir, stats := testMaterializer(t, workspace.StackBasic)

	written := m.Apply("I'd be happy to build that app for you! Here is a description of what it will do.")

	assert.Equal(t, 0, written)
	assert.Equal(t, 1, stats.ParseMisses)
	require.True(t, dir.Exists(DebugFile))

	dump, err := dir.ReadFile(DebugFile)
	require.NoError(t, err)
	assert.Contains(t, dump, "happy to build")
	assert.Contains(t, dump, "Response at ")
}

func TestApplyAccumulatesDumpEntries(t *testing.T) {
	m, dir, _ := testMaterializer(t, workspace.StackBasic)

	m.Apply("first prose reply")
	m.Apply("second prose reply")

	dump, err := dir.ReadFile(DebugFile)
	require.NoError(t, err)
	assert.Contains(t, dump, "first prose reply")
	assert.Contains(t, dump, "second prose reply")
}
