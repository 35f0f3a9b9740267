package pipeline

import (
	"log/slog"
	"strings"

	"github.com/lexcodex/weblurp/workspace"
)

const basicSkeletonHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Landing - Generated App</title>
  <link rel="stylesheet" href="css/styles.css">
  <style>
    body{font-family:Inter,system-ui,-apple-system,Segoe UI,Roboto,Ubuntu;margin:0}
    .container{max-width:1000px;margin:0 auto;padding:24px}
    .hero{padding:64px 24px;background:#f8fafc}
    .btn{background:#38bdf8;color:#0f172a;padding:12px 18px;border-radius:8px;text-decoration:none;font-weight:600}
    .grid{display:grid;gap:16px;grid-template-columns:repeat(auto-fit,minmax(220px,1fr))}
    .card{border:1px solid #e2e8f0;border-radius:12px;padding:16px;background:#fff}
  </style>
</head>
<body>
  <header class="container"><strong>Generated App</strong></header>
  <section class="hero"><div class="container"><h1>Your App Is Live</h1><p>This default landing page ensures you always deploy something visible.</p><p><a class="btn" href="#features">Explore Features</a></p></div></section>
  <main class="container" id="features" style="padding:40px 24px;">
    <h2>Features</h2>
    <div class="grid" style="margin-top:16px;">
      <div class="card"><h3>Fast</h3><p>Ready for static hosting.</p></div>
      <div class="card"><h3>Modern</h3><p>Built with best practices.</p></div>
      <div class="card"><h3>Extensible</h3><p>Easily add components and logic.</p></div>
    </div>
  </main>
  <footer class="container">Generated by WebAppGenerator</footer>
</body>
</html>
`

const defaultStylesCSS = "/* default styles */\nbody{font-family:Inter,system-ui,-apple-system,'Segoe UI',Roboto,Ubuntu}\n"

// ensureMinimumBasic guarantees a basic-stack workspace is never blank: a
// landing skeleton unless index.html already has real content, and a default
// stylesheet when css/styles.css is missing. An index counts as real when it
// carries a <main> element or more than 400 non-whitespace-trimmed chars.
func ensureMinimumBasic(dir *workspace.Dir, log *slog.Logger) error {
	need := true
	if dir.Exists("index.html") {
		if content, err := dir.ReadFile("index.html"); err == nil {
			if strings.Contains(strings.ToLower(content), "<main") || len(strings.TrimSpace(content)) > 400 {
				need = false
			}
		}
	}
	if need {
		if _, err := dir.WriteFile("index.html", basicSkeletonHTML); err != nil {
			return err
		}
		log.Info("added fallback landing skeleton")
	}
	if !dir.Exists("css/styles.css") {
		if _, err := dir.WriteFile("css/styles.css", defaultStylesCSS); err != nil {
			return err
		}
	}
	return nil
}

// ensureMinimumReact re-runs the scaffold when the app entry component went
// missing, so a react workspace always builds.
func ensureMinimumReact(dir *workspace.Dir, owner, repo string, log *slog.Logger) error {
	if dir.Exists("src/App.tsx") {
		return nil
	}
	if err := ensureReactScaffold(dir, owner, repo, log); err != nil {
		return err
	}
	log.Info("restored react scaffold")
	return nil
}
