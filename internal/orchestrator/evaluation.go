package orchestrator

import "context"

// EvaluationReport is the summary an EvaluationRunner produces for one
// pass over whatever benchmark tasks it was built with.
type EvaluationReport struct {
	TotalTasks  int     `json:"total_tasks"`
	Successes   int     `json:"successes"`
	SuccessRate float64 `json:"success_rate"`
	HTML        string  `json:"html,omitempty"`
}

// EvaluationRunner is the collaborator the run-evaluation CLI command
// drives. The evaluation harness itself (benchmark task definitions,
// scoring) is out of scope; this interface exists so the command has
// something concrete to call and can fail clearly when no runner is
// configured, rather than being silently absent from the CLI surface.
type EvaluationRunner interface {
	RunEvaluation(ctx context.Context, withHTML bool) (EvaluationReport, error)
}
