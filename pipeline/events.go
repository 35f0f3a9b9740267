package pipeline

// EventKind discriminates progress events.
type EventKind int

const (
	EventStageStarted EventKind = iota
	EventStageFinished
	EventPlanReady
	EventTodoStarted
	EventTodoCompleted
	EventRepairRound
	EventScenarioTally
	EventDeployStatus
	EventNote
)

// Event is one progress notification from a running pipeline. N and M carry
// kind-specific counts: round and total for EventRepairRound, passed and
// failed for EventScenarioTally, todo id and plan size for the todo kinds.
type Event struct {
	Kind   EventKind
	Stage  Stage
	Title  string
	Detail string
	N      int
	M      int
}

// emit forwards ev without ever blocking the run. A sluggish listener loses
// events rather than stalling the pipeline.
func (p *Pipeline) emit(ev Event) {
	if p.Events == nil {
		return
	}
	select {
	case p.Events <- ev:
	default:
	}
}
