package pipeline

import "errors"

// Stats counts the failure classes a run can hit. Every class is survivable;
// the counters exist so the summary line and the run record can say how
// lossy a run actually was. The pipeline is single-threaded, so plain ints.
type Stats struct {
	ParseMisses          int
	SanitizeRejects      int
	TraversalViolations  int
	WriteFailures        int
	CollaboratorFailures int
	BudgetExhaustions    int
	ArtifactsWritten     int
}

var (
	// ErrScopeFailed is returned when no refinement round ever produced
	// decodable requirements.
	ErrScopeFailed = errors.New("scope stage produced no requirements")

	// ErrBuildPlanFailed is returned when the build plan reply could not be
	// decoded, leaving nothing to execute.
	ErrBuildPlanFailed = errors.New("build stage produced no plan")

	// ErrDeployIncomplete is returned when publishing ran but the site never
	// reached a confirmed live state.
	ErrDeployIncomplete = errors.New("deployment did not complete")
)
