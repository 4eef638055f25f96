package agent

import (
	"context"

	"github.com/finsightai/finsight/internal/models"
)

// The three stage contracts. Each stage reads the state it is handed and
// returns a delta; none of them return errors, degradation is expressed in
// the delta itself.
type planStage interface {
	Plan(ctx context.Context, state models.PipelineState) models.StateDelta
}

type executeStage interface {
	Execute(ctx context.Context, state models.PipelineState) models.StateDelta
}

type reportStage interface {
	Report(state models.PipelineState) models.StateDelta
}

// Pipeline runs the fixed three-stage flow: plan, execute, report. The
// pipeline owns the state and merges deltas in order, so stages never see
// or mutate each other's writes directly.
type Pipeline struct {
	planner  planStage
	executor executeStage
	reporter reportStage
}

// NewPipeline assembles the three stages.
func NewPipeline(p planStage, e executeStage, r reportStage) *Pipeline {
	return &Pipeline{planner: p, executor: e, reporter: r}
}

// Run processes one query end to end and returns the final state. Every
// stage degrades internally, so Run always produces a reported state with
// an answer and an audit trail.
func (pl *Pipeline) Run(ctx context.Context, query string) models.PipelineState {
	state := models.NewPipelineState(query)

	state = state.Apply(pl.planner.Plan(ctx, state))
	state = state.Apply(pl.executor.Execute(ctx, state))
	state = state.Apply(pl.reporter.Report(state))

	return state
}
