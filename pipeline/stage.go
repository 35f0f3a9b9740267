// Package pipeline drives a generated web app from a one-sentence request to
// a deployed site. A run walks five stages in order: scope negotiates
// structured requirements, build plans and materializes files, test runs the
// scenario repair loop, document writes the README, and deploy publishes to
// GitHub Pages. Artifact extraction and path policy live in the extract and
// workspace packages; this package owns the stage semantics, the prompts,
// and the bookkeeping around them.
package pipeline

import "fmt"

// Stage identifies one phase of a generation run.
type Stage string

const (
	StageScope    Stage = "scope"
	StageBuild    Stage = "build"
	StageTest     Stage = "test"
	StageDocument Stage = "document"
	StageDeploy   Stage = "deploy"
)

// Stages lists every stage in run order.
var Stages = []Stage{StageScope, StageBuild, StageTest, StageDocument, StageDeploy}

// ParseStage converts a stored stage token back into a Stage.
func ParseStage(s string) (Stage, error) {
	for _, st := range Stages {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

func (s Stage) String() string { return string(s) }
