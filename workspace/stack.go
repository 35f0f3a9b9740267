package workspace

import (
	"fmt"
	"strings"
)

// Stack selects the flavor of app the workspace is laid out for.
type Stack string

const (
	// StackBasic is a plain HTML/CSS/JS site served as-is.
	StackBasic Stack = "basic"
	// StackReact is a Vite + TypeScript + Tailwind app built by CI.
	StackReact Stack = "react"
)

// ParseStack validates a stack token. Unknown tokens are an error rather
// than a silent default so config typos surface early.
func ParseStack(s string) (Stack, error) {
	switch Stack(strings.ToLower(strings.TrimSpace(s))) {
	case StackBasic:
		return StackBasic, nil
	case StackReact:
		return StackReact, nil
	}
	return "", fmt.Errorf("unknown stack %q", s)
}

func (s Stack) String() string { return string(s) }
