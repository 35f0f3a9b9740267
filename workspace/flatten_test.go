package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBestAppDirPrefersLargestSubtree(t *testing.T) {
	d, err := New(t.TempDir())
	assert.NoError(t, err)

	for rel, content := range map[string]string{
		"app/index.html":    "<html></html>",
		"app/css/main.css":  "body{}",
		"app/js/app.js":     "console.log(1)",
		"demo/index.html":   "<html></html>",
		"notes/readme.json": "{}",
	} {
		_, err := d.WriteFile(rel, content)
		assert.NoError(t, err)
	}

	best, ok := d.BestAppDir()
	assert.True(t, ok)
	assert.Equal(t, "app", best)
}

func TestBestAppDirWithoutIndex(t *testing.T) {
	d, err := New(t.TempDir())
	assert.NoError(t, err)

	_, err = d.WriteFile("css/main.css", "body{}")
	assert.NoError(t, err)

	_, ok := d.BestAppDir()
	assert.False(t, ok)
}

func TestFlattenMovesTreeToRoot(t *testing.T) {
	d, err := New(t.TempDir())
	assert.NoError(t, err)

	for rel, content := range map[string]string{
		"app/index.html":   "<html></html>",
		"app/css/main.css": "body{}",
	} {
		_, err := d.WriteFile(rel, content)
		assert.NoError(t, err)
	}

	assert.NoError(t, d.Flatten("app"))
	assert.True(t, d.Exists("index.html"))
	assert.True(t, d.Exists("css/main.css"))
	assert.False(t, d.Exists("app"))
}

func TestFlattenRootIsNoop(t *testing.T) {
	d, err := New(t.TempDir())
	assert.NoError(t, err)

	_, err = d.WriteFile("index.html", "<html></html>")
	assert.NoError(t, err)

	assert.NoError(t, d.Flatten("."))
	assert.True(t, d.Exists("index.html"))
}

func TestRewriteAssetPaths(t *testing.T) {
	d, err := New(t.TempDir())
	assert.NoError(t, err)

	html := `<html><head><link href="/css/main.css"></head>` +
		`<body><img src="/assets/logo.png"><script src="https://cdn.example/x.js"></script></body></html>`
	_, err = d.WriteFile("index.html", html)
	assert.NoError(t, err)

	changed, err := d.RewriteAssetPaths()
	assert.NoError(t, err)
	assert.Equal(t, 1, changed)

	got, err := d.ReadFile("index.html")
	assert.NoError(t, err)
	assert.Contains(t, got, `href="css/main.css"`)
	assert.Contains(t, got, `src="assets/logo.png"`)
	assert.Contains(t, got, `src="https://cdn.example/x.js"`)
}

func TestMissingAssetRefsReportsDanglingOnly(t *testing.T) {
	d, err := New(t.TempDir())
	assert.NoError(t, err)

	html := `<html><head><link href="css/main.css"></head>` +
		`<body><img src="assets/logo.png">` +
		`<a href="#top">top</a>` +
		`<script src="https://cdn.example/x.js"></script>` +
		`<script src="js/app.js"></script></body></html>`
	_, err = d.WriteFile("index.html", html)
	assert.NoError(t, err)
	_, err = d.WriteFile("css/main.css", "body{}")
	assert.NoError(t, err)

	missing, err := d.MissingAssetRefs()
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"assets/logo.png", "js/app.js"}, missing)
}

func TestMissingAssetRefsResolvesAgainstReferencingFile(t *testing.T) {
	d, err := New(t.TempDir())
	assert.NoError(t, err)

	_, err = d.WriteFile("pages/about.html", `<html><body><img src="team.png"></body></html>`)
	assert.NoError(t, err)

	missing, err := d.MissingAssetRefs()
	assert.NoError(t, err)
	assert.Equal(t, []string{"pages/team.png"}, missing)
}
