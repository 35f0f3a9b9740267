package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lexcodex/weblurp/workspace"
)

// System prompts, one per stage persona. The scenario loop reuses the test
// persona for both evaluation and fix requests.
const (
	scopeSystem    = "You are a senior product manager and technical architect. Return structured JSON requirements."
	buildSystem    = "You are a senior full-stack developer. Create a comprehensive build plan."
	testSystem     = "You are a senior QA engineer. Generate scenarios (>=5 per feature), predict pass/fail, and propose fixes."
	documentSystem = "You are a technical writer. Create clear, comprehensive documentation."
)

// jsonIndent renders v the way every prompt embeds structured data. Values
// here come out of json.Unmarshal, so encoding them back cannot fail in
// practice; the fallback keeps prompts well-formed if it ever does.
func jsonIndent(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func scopeInitialPrompt(sentence string) string {
	return fmt.Sprintf(`Analyze this web app request and return JSON with:
app_name, description, features, pages, design, tech_stack, content.
Request: %s`, sentence)
}

func scopeRefinePrompt(requirements map[string]any, feedback string) string {
	return fmt.Sprintf(`Current requirements: %s
User feedback: %s
Update the requirements JSON.`, jsonIndent(requirements), feedback)
}

func stackNote(stack workspace.Stack) string {
	if stack == workspace.StackReact {
		return "React + TypeScript (Vite) under src/ and index.html at root."
	}
	return "Basic HTML/CSS/JS."
}

func buildPlanPrompt(requirements map[string]any, stack workspace.Stack) string {
	return fmt.Sprintf(`Based on requirements: %s
Constraints: Stack=%s. %s
Return JSON array of todos: [{title, description, acceptance_criteria:[]}].`,
		jsonIndent(requirements), stack, stackNote(stack))
}

func stackInstruction(stack workspace.Stack) string {
	if stack == workspace.StackReact {
		return "For React: create files under src/ (tsx/ts/css). Use React+TS+Tailwind."
	}
	return "For Basic: provide static HTML/CSS/JS with relative assets."
}

func criteriaLines(criteria []string) string {
	lines := make([]string, len(criteria))
	for i, c := range criteria {
		lines[i] = "- " + c
	}
	return strings.Join(lines, "\n")
}

func buildTaskPrompt(todo Todo, requirements map[string]any, stack workspace.Stack) string {
	return fmt.Sprintf(`Complete this task:
Task: %s
Acceptance Criteria:
%s
Requirements: %s
%s
Provide files in EXACT format:

FILENAME: path/to/file
`+"```"+`language
file contents here
`+"```", todo.Title, criteriaLines(todo.AcceptanceCriteria), jsonIndent(requirements), stackInstruction(stack))
}

func buildRetryPrompt(todo Todo) string {
	return fmt.Sprintf(`Provide files using EXACT format:
FILENAME: path/to/file.tsx
`+"```"+`tsx
// content
`+"```"+`
Task: %s`, todo.Title)
}

func verifyPrompt(todo Todo) string {
	return fmt.Sprintf(`Review:
Task: %s
Acceptance Criteria:
%s
Respond JSON: {'met': true/false, 'issues': ['...']}`, todo.Title, criteriaLines(todo.AcceptanceCriteria))
}

func scenarioPrompt(requirements map[string]any, level BudgetLevel, summaries []FileSummary) string {
	if summaries == nil {
		summaries = []FileSummary{}
	}
	return fmt.Sprintf(`Requirements:
%s

Code summaries (compact): up to %d files, %d lines each.
%s

Tasks:
- Identify features and generate at least 5 scenarios per feature that might fail.
- Predict Pass/Fail for each scenario and explain why.
- Return JSON only with shape:
{"features":[{"name":"Feature","scenarios":[{"name":"Scenario","steps":["..."],"expected":"...","prediction":"Pass|Fail","reason":"..."}]}],"summary":{"passed":X,"failed":Y}}`,
		jsonIndent(requirements), level.MaxFiles, level.MaxLinesPerFile, jsonIndent(summaries))
}

func fixPrompt(features []ScenarioFeature) string {
	return fmt.Sprintf(`Provide FIXES as complete files in EXACT format (only files to change/create):
FILENAME: path/to/file
`+"```"+`language
<full file content>
`+"```"+`
Failing scenarios context:
%s`, jsonIndent(features))
}

func readmeStackSection(stack workspace.Stack) string {
	if stack == workspace.StackReact {
		return "React + TypeScript + Vite + Tailwind; GitHub Actions build for Pages."
	}
	return "Basic HTML/CSS/JS deployed to GitHub Pages."
}

func readmePrompt(requirements map[string]any, stack workspace.Stack) string {
	return fmt.Sprintf(`Create README.md:
%s
Include: Title/description, Features, Stack: %s, Setup, Usage, File structure, Technologies, License (MIT)`,
		jsonIndent(requirements), readmeStackSection(stack))
}
