package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/weblurp/workspace"
)

func testWorkspace(t *testing.T) *workspace.Dir {
	t.Helper()
	dir, err := workspace.New(t.TempDir())
	require.NoError(t, err)
	return dir
}

func mustWrite(t *testing.T, dir *workspace.Dir, rel, content string) {
	t.Helper()
	_, err := dir.WriteFile(rel, content)
	require.NoError(t, err)
}

func TestSummarizeOrdersByClassThenPathLength(t *testing.T) {
	dir := testWorkspace(t)
	mustWrite(t, dir, "data.json", `{"k":1}`)
	mustWrite(t, dir, "css/styles.css", "body{margin:0}")
	mustWrite(t, dir, "index.html", "<html></html>")
	mustWrite(t, dir, "a.js", "console.log(1)")
	mustWrite(t, dir, "src/App.tsx", "import React from \"react\";\n")

	summaries, err := NewSummarizer(dir).Summarize(BudgetLevel{MaxFiles: 10, MaxLinesPerFile: 50, CharBudget: 100000})
	assert.NoError(t, err)

	var paths []string
	for _, s := range summaries {
		paths = append(paths, s.Path)
	}
	assert.Equal(t, []string{"a.js", "src/App.tsx", "index.html", "css/styles.css", "data.json"}, paths)
}

func TestSummarizeKeepsTrimmedSignalLines(t *testing.T) {
	dir := testWorkspace(t)
	mustWrite(t, dir, "src/App.tsx", `import React from "react";

export default function App() {
  const x = 1;
  return <div />;
}
`)

	summaries, err := NewSummarizer(dir).Summarize(BudgetLevel{MaxFiles: 5, MaxLinesPerFile: 50, CharBudget: 100000})
	assert.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "import React from \"react\";\nexport default function App() {", summaries[0].Head)
}

func TestSummarizeScriptWithoutSignalsFallsBackVerbatim(t *testing.T) {
	dir := testWorkspace(t)
	mustWrite(t, dir, "js/script.js", "  console.log(1)\nconsole.log(2)\nconsole.log(3)\n")

	summaries, err := NewSummarizer(dir).Summarize(BudgetLevel{MaxFiles: 5, MaxLinesPerFile: 2, CharBudget: 100000})
	assert.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "  console.log(1)\nconsole.log(2)", summaries[0].Head)
}

func TestSummarizeSkipsNonCodeAndEmptyFiles(t *testing.T) {
	dir := testWorkspace(t)
	mustWrite(t, dir, "assets/logo.svg", "<svg></svg>")
	mustWrite(t, dir, "index.html", "<html></html>")
	require.NoError(t, dir.Touch("js/empty.js"))

	summaries, err := NewSummarizer(dir).Summarize(BudgetLevel{MaxFiles: 10, MaxLinesPerFile: 50, CharBudget: 100000})
	assert.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "index.html", summaries[0].Path)
}

func TestSummarizeHonorsMaxFiles(t *testing.T) {
	dir := testWorkspace(t)
	mustWrite(t, dir, "a.js", "console.log(1)")
	mustWrite(t, dir, "b.js", "console.log(2)")

	summaries, err := NewSummarizer(dir).Summarize(BudgetLevel{MaxFiles: 1, MaxLinesPerFile: 50, CharBudget: 100000})
	assert.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "a.js", summaries[0].Path)
}

func TestSummarizeStopsAtCharBudget(t *testing.T) {
	dir := testWorkspace(t)
	mustWrite(t, dir, "a.js", "console.log(1)")
	mustWrite(t, dir, "b.js", "console.log(2)")

	first, err := json.Marshal(FileSummary{Path: "a.js", Head: "console.log(1)"})
	assert.NoError(t, err)

	summaries, err := NewSummarizer(dir).Summarize(BudgetLevel{MaxFiles: 10, MaxLinesPerFile: 50, CharBudget: len(first)})
	assert.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "a.js", summaries[0].Path)
}

func TestSummarizeIsDeterministic(t *testing.T) {
	dir := testWorkspace(t)
	mustWrite(t, dir, "index.html", "<html></html>")
	mustWrite(t, dir, "src/App.tsx", "import React from \"react\";\n")

	summarizer := NewSummarizer(dir)
	level := BudgetLevel{MaxFiles: 10, MaxLinesPerFile: 50, CharBudget: 100000}
	first, err := summarizer.Summarize(level)
	assert.NoError(t, err)
	second, err := summarizer.Summarize(level)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
}
