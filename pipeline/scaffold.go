package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/lexcodex/weblurp/workspace"
)

const tailwindConfigJS = `module.exports = {
  content: ["./index.html", "./src/**/*.{ts,tsx,jsx,js}"],
  theme: { extend: {} },
  plugins: [require("tailwindcss-animate")],
};
`

const postcssConfigJS = "module.exports = { plugins: { tailwindcss: {}, autoprefixer: {} } };\n"

const reactIndexHTML = `<!doctype html>
<html lang="en">
  <head>
    <meta charset="UTF-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0" />
    <title>App</title>
    <link rel="preconnect" href="https://fonts.googleapis.com">
    <link rel="preconnect" href="https://fonts.gstatic.com" crossorigin>
    <link href="https://fonts.googleapis.com/css2?family=Inter:wght@300;400;500;600;700&display=swap" rel="stylesheet">
  </head>
  <body>
    <div id="root"></div>
    <script type="module" src="/src/main.tsx"></script>
  </body>
</html>
`

const reactIndexCSS = "@tailwind base;\n@tailwind components;\n@tailwind utilities;\n"

const reactMainTSX = `import React from "react";
import ReactDOM from "react-dom/client";
import "./index.css";
import App from "./App";

ReactDOM.createRoot(document.getElementById("root")!).render(
  <React.StrictMode>
    <App />
  </React.StrictMode>
);
`

const reactAppTSX = `import React from "react";
import { LucideCheckSquare } from "lucide-react";
export default function App(){
  return (
    <div className="min-h-screen bg-white text-slate-900">
      <div className="mx-auto max-w-3xl p-6">
        <header className="py-8">
          <h1 className="text-3xl font-bold flex items-center gap-2">
            <LucideCheckSquare className="w-7 h-7" />
            App Starter
          </h1>
          <p className="mt-2 text-slate-600">React + Tailwind scaffold. The generator/LLM will expand this.</p>
        </header>
        <main className="space-y-6">
          <section className="p-6 rounded-lg border bg-slate-50">
            <h2 className="text-xl font-semibold">Getting Started</h2>
            <p className="mt-2 text-slate-600">Add components and logic. This content ensures the site is never blank.</p>
          </section>
        </main>
        <footer className="mt-12 text-sm text-slate-500">Generated by WebAppGenerator</footer>
      </div>
    </div>
  );
}
`

const reactTSConfig = `{
  "compilerOptions": {
    "target": "ES2020", "useDefineForClassFields": true, "lib": ["ES2020","DOM","DOM.Iterable"],
    "module": "ESNext", "skipLibCheck": true, "jsx": "react-jsx", "moduleResolution": "Bundler",
    "resolveJsonModule": true, "isolatedModules": true, "noEmit": true, "esModuleInterop": true,
    "strict": true, "noUncheckedIndexedAccess": true, "forceConsistentCasingInFileNames": true
  },
  "include": ["src"]
}
`

const reactPackageJSON = `{
  "name": "webapp",
  "private": true,
  "version": "0.0.0",
  "type": "module",
  "scripts": {
    "dev": "vite",
    "build": "vite build",
    "preview": "vite preview"
  },
  "dependencies": {
    "react": "^18.3.1",
    "react-dom": "^18.3.1",
    "lucide-react": "^0.453.0",
    "@dnd-kit/core": "^6.1.0",
    "@dnd-kit/sortable": "^7.0.2",
    "@dnd-kit/modifiers": "6.0.2",
    "@nivo/core": "^0.86.0",
    "@nivo/line": "^0.86.0",
    "@nivo/bar": "^0.86.0",
    "@tanstack/react-table": "^8.20.5",
    "react-hook-form": "^7.52.1",
    "@hookform/resolvers": "^3.9.0",
    "zod": "^3.23.8",
    "date-fns": "^3.6.0",
    "react-day-picker": "^9.0.7"
  },
  "devDependencies": {
    "@types/react": "^18.3.3",
    "@types/react-dom": "^18.3.0",
    "@vitejs/plugin-react": "^4.3.1",
    "autoprefixer": "^10.4.20",
    "postcss": "^8.4.45",
    "tailwindcss": "^3.4.10",
    "tailwindcss-animate": "^1.0.7",
    "typescript": "^5.6.2",
    "vite": "^5.4.8"
  }
}
`

const pagesWorkflowYML = `name: Deploy to GitHub Pages
on:
  push:
    branches: [ "main" ]
permissions:
  contents: read
  pages: write
  id-token: write
concurrency:
  group: pages
  cancel-in-progress: true
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - name: Setup Node
        uses: actions/setup-node@v4
        with:
          node-version: 20
      - name: Install dependencies
        run: |
          if [ -f package-lock.json ]; then
            npm ci
          else
            npm install
          fi
      - name: Build
        run: npm run build
      - name: Upload Pages artifact
        uses: actions/upload-pages-artifact@v3
        with:
          path: ./dist
  deploy:
    needs: build
    runs-on: ubuntu-latest
    environment:
      name: github-pages
      url: ${{ steps.deployment.outputs.page_url }}
    steps:
      - id: deployment
        uses: actions/deploy-pages@v4
`

// pagesBase picks the Vite base path. A project repo serves under
// /<repo>/, the special <owner>.github.io repo serves at the domain root,
// and so does a workspace with no publish target yet.
func pagesBase(owner, repo string) string {
	if owner != "" && repo != "" && repo != owner+".github.io" {
		return "/" + repo + "/"
	}
	return "/"
}

// ensureReactScaffold writes the full Vite and Tailwind scaffold plus the
// Pages deploy workflow. Everything except package.json is overwritten so a
// broken scaffold heals; package.json is only seeded when absent, then
// reconciled in place.
func ensureReactScaffold(dir *workspace.Dir, owner, repo string, log *slog.Logger) error {
	viteConfig := fmt.Sprintf(`import { defineConfig } from "vite";
import react from "@vitejs/plugin-react";
export default defineConfig({ base: %q, plugins: [react()] });
`, pagesBase(owner, repo))

	files := []struct{ rel, content string }{
		{"vite.config.ts", viteConfig},
		{"tailwind.config.js", tailwindConfigJS},
		{"postcss.config.js", postcssConfigJS},
		{"index.html", reactIndexHTML},
		{"src/index.css", reactIndexCSS},
		{"src/main.tsx", reactMainTSX},
		{"src/App.tsx", reactAppTSX},
		{"tsconfig.json", reactTSConfig},
	}
	for _, f := range files {
		if _, err := dir.WriteFile(f.rel, f.content); err != nil {
			return fmt.Errorf("write scaffold file %s: %w", f.rel, err)
		}
	}
	if !dir.Exists("package.json") {
		if _, err := dir.WriteFile("package.json", reactPackageJSON); err != nil {
			return fmt.Errorf("seed package.json: %w", err)
		}
	}
	if err := ensureReactDependencies(dir, log); err != nil {
		return err
	}
	if _, err := dir.WriteFile(".github/workflows/pages.yml", pagesWorkflowYML); err != nil {
		return fmt.Errorf("write pages workflow: %w", err)
	}
	return nil
}

func loadPackageJSON(dir *workspace.Dir) (map[string]any, error) {
	if !dir.Exists("package.json") {
		return nil, nil
	}
	content, err := dir.ReadFile("package.json")
	if err != nil {
		return nil, err
	}
	var pkg map[string]any
	if err := json.Unmarshal([]byte(content), &pkg); err != nil {
		return nil, fmt.Errorf("decode package.json: %w", err)
	}
	return pkg, nil
}

func savePackageJSON(dir *workspace.Dir, pkg map[string]any) error {
	encoded, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return err
	}
	_, err = dir.WriteFile("package.json", string(encoded))
	return err
}

func section(pkg map[string]any, key string) map[string]any {
	if m, ok := pkg[key].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	pkg[key] = m
	return m
}

var requiredReactDeps = map[string]string{
	"react":                 "^18.3.1",
	"react-dom":             "^18.3.1",
	"lucide-react":          "^0.453.0",
	"@dnd-kit/core":         "^6.1.0",
	"@dnd-kit/sortable":     "^7.0.2",
	"@dnd-kit/modifiers":    "6.0.2",
	"@tanstack/react-table": "^8.20.5",
	"react-hook-form":       "^7.52.1",
	"@hookform/resolvers":   "^3.9.0",
	"zod":                   "^3.23.8",
	"date-fns":              "^3.6.0",
	"react-day-picker":      "^9.0.7",
	"@nivo/core":            "^0.86.0",
	"@nivo/line":            "^0.86.0",
	"@nivo/bar":             "^0.86.0",
}

var requiredReactDevDeps = map[string]string{
	"@vitejs/plugin-react": "^4.3.1",
	"typescript":           "^5.6.2",
	"vite":                 "^5.4.8",
	"tailwindcss":          "^3.4.10",
	"postcss":              "^8.4.45",
	"autoprefixer":         "^10.4.20",
	"tailwindcss-animate":  "^1.0.7",
}

var requiredScripts = map[string]string{
	"build":   "vite build",
	"dev":     "vite",
	"preview": "vite preview",
}

// ensureReactDependencies fills in any missing baseline dependency and
// forces the Vite scripts, leaving every version already pinned by the
// collaborator untouched.
func ensureReactDependencies(dir *workspace.Dir, log *slog.Logger) error {
	pkg, err := loadPackageJSON(dir)
	if err != nil {
		return err
	}
	if pkg == nil {
		log.Warn("package.json missing, react scaffold incomplete")
		return nil
	}
	deps := section(pkg, "dependencies")
	devDeps := section(pkg, "devDependencies")
	scripts := section(pkg, "scripts")
	changed := false
	for k, v := range requiredReactDeps {
		if _, ok := deps[k]; !ok {
			deps[k] = v
			changed = true
		}
	}
	for k, v := range requiredReactDevDeps {
		if _, ok := devDeps[k]; !ok {
			devDeps[k] = v
			changed = true
		}
	}
	for k, v := range requiredScripts {
		if scripts[k] != v {
			scripts[k] = v
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return savePackageJSON(dir, pkg)
}

// npmDep locates a module in package.json: which section it belongs to and
// the version to pin when it is missing.
type npmDep struct {
	section string
	version string
}

var knownNPMModules = map[string]npmDep{
	"lucide-react":                  {"dependencies", "^0.453.0"},
	"@dnd-kit/core":                 {"dependencies", "^6.1.0"},
	"@dnd-kit/sortable":             {"dependencies", "^7.0.2"},
	"@dnd-kit/modifiers":            {"dependencies", "6.0.2"},
	"@tanstack/react-table":         {"dependencies", "^8.20.5"},
	"react-hook-form":               {"dependencies", "^7.52.1"},
	"@hookform/resolvers":           {"dependencies", "^3.9.0"},
	"zod":                           {"dependencies", "^3.23.8"},
	"date-fns":                      {"dependencies", "^3.6.0"},
	"react-day-picker":              {"dependencies", "^9.0.7"},
	"@nivo/core":                    {"dependencies", "^0.86.0"},
	"@nivo/line":                    {"dependencies", "^0.86.0"},
	"@nivo/bar":                     {"dependencies", "^0.86.0"},
	"@radix-ui/react-dialog":        {"dependencies", "^1.0.5"},
	"@radix-ui/react-dropdown-menu": {"dependencies", "^2.0.6"},
	"@radix-ui/react-toast":         {"dependencies", "^1.1.5"},
	"@radix-ui/react-label":         {"dependencies", "^2.0.2"},
	"@vitejs/plugin-react":          {"devDependencies", "^4.3.1"},
	"tailwindcss":                   {"devDependencies", "^3.4.10"},
	"postcss":                       {"devDependencies", "^8.4.45"},
	"autoprefixer":                  {"devDependencies", "^10.4.20"},
	"tailwindcss-animate":           {"devDependencies", "^1.0.7"},
	"vite":                          {"devDependencies", "^5.4.8"},
	"typescript":                    {"devDependencies", "^5.6.2"},
}

var moduleImportPattern = regexp.MustCompile(`(?m)^\s*import\s+(?:[^"']+from\s+)?['"]([^'"]+)['"]`)

// scanImportsAndEnsureDeps reads every script under src/ and pins any known
// bare-module import the collaborator introduced but package.json does not
// carry yet. Relative imports and unknown modules are left alone.
func scanImportsAndEnsureDeps(dir *workspace.Dir, log *slog.Logger) error {
	pkg, err := loadPackageJSON(dir)
	if err != nil {
		return err
	}
	if pkg == nil {
		return nil
	}
	files, err := dir.ListFiles()
	if err != nil {
		return err
	}
	found := map[string]bool{}
	for _, f := range files {
		if !strings.HasPrefix(f, "src/") {
			continue
		}
		switch strings.ToLower(path.Ext(f)) {
		case ".ts", ".tsx", ".jsx", ".js":
		default:
			continue
		}
		content, err := dir.ReadFile(f)
		if err != nil {
			continue
		}
		for _, m := range moduleImportPattern.FindAllStringSubmatch(content, -1) {
			if !strings.HasPrefix(m[1], ".") {
				found[m[1]] = true
			}
		}
	}
	changed := false
	for module := range found {
		dep, ok := knownNPMModules[module]
		if !ok {
			continue
		}
		sec := section(pkg, dep.section)
		if _, ok := sec[module]; !ok {
			sec[module] = dep.version
			changed = true
			log.Debug("pinned imported module", "module", module, "version", dep.version)
		}
	}
	if !changed {
		return nil
	}
	return savePackageJSON(dir, pkg)
}
