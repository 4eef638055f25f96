package executor

import (
	"context"
	"fmt"

	"github.com/finsightai/finsight/internal/models"
)

// Handler resolves one action. Handlers report failures inside the result;
// any panic that escapes is recovered at the executor boundary.
type Handler func(ctx context.Context, params map[string]any) models.ActionResult

// Router maps action kinds to handlers. Unknown actions and missing
// required parameters are rejected with failed results, never errors, so
// one bad step cannot abort a batch.
type Router struct {
	handlers map[ActionKind]Handler
}

// NewRouter creates an empty dispatch table.
func NewRouter() *Router {
	return &Router{handlers: make(map[ActionKind]Handler)}
}

// Register binds a handler to an action kind.
func (r *Router) Register(kind ActionKind, handler Handler) {
	r.handlers[kind] = handler
}

// Dispatch validates and routes one planned action.
func (r *Router) Dispatch(ctx context.Context, action models.PlannedAction) models.ActionResult {
	kind := ParseActionKind(action.ActionName)

	if kind == ActionUnknown {
		return models.NewErrorResult(action.ActionName, action.Parameters, "executor",
			fmt.Sprintf("Unknown tool: %s. Available tools: %s", action.ActionName, AvailableActionList()))
	}

	for _, param := range requiredParams[kind] {
		if missingParam(action.Parameters, param) {
			return models.NewErrorResult(action.ActionName, action.Parameters, "executor",
				fmt.Sprintf("Missing required parameter: %s", param))
		}
	}

	handler, ok := r.handlers[kind]
	if !ok {
		return models.NewErrorResult(action.ActionName, action.Parameters, "executor",
			fmt.Sprintf("Unknown tool: %s. Available tools: %s", action.ActionName, AvailableActionList()))
	}

	return r.invoke(ctx, handler, action)
}

// invoke runs a handler, recovering panics into failed results so nothing
// crosses the executor boundary.
func (r *Router) invoke(ctx context.Context, handler Handler, action models.PlannedAction) (result models.ActionResult) {
	defer func() {
		if rec := recover(); rec != nil {
			result = models.NewErrorResult(action.ActionName, action.Parameters, "executor",
				fmt.Sprintf("Executor exception: %v", rec))
		}
	}()
	return handler(ctx, action.Parameters)
}

// Executor runs a plan in order, collecting one result per step and an
// append-only log with one entry per decision.
type Executor struct {
	router *Router
}

// New creates an executor over a dispatch table.
func New(router *Router) *Executor {
	return &Executor{router: router}
}

// Execute processes every step of the plan in the state and returns the
// results and log as a delta. It never returns an error: each failure is
// captured in its own result and the batch continues.
func (e *Executor) Execute(ctx context.Context, state models.PipelineState) models.StateDelta {
	plan := state.Plan

	delta := models.StateDelta{
		Log: []string{fmt.Sprintf("Executor: starting execution of %d step(s)", len(plan))},
	}

	if len(plan) == 0 {
		delta.Log = append(delta.Log, "No plan provided - nothing to execute")
		return delta
	}

	for i, step := range plan {
		delta.Log = append(delta.Log,
			fmt.Sprintf("Step %d/%d: %s(%v)", i+1, len(plan), step.ActionName, step.Parameters),
			fmt.Sprintf("Reason: %s", reasonOrDefault(step.Reason)),
		)

		result := e.router.Dispatch(ctx, step)

		if result.Success {
			delta.Log = append(delta.Log, fmt.Sprintf("Success (confidence: %.0f%%)", result.Confidence*100))
		} else {
			delta.Log = append(delta.Log, fmt.Sprintf("Failed: %s", result.Error))
		}
		delta.Results = append(delta.Results, result)
	}

	succeeded := 0
	for _, r := range delta.Results {
		if r.Success {
			succeeded++
		}
	}
	delta.Log = append(delta.Log,
		fmt.Sprintf("Execution complete: %d succeeded, %d failed", succeeded, len(delta.Results)-succeeded))

	return delta
}

func reasonOrDefault(reason string) string {
	if reason == "" {
		return "No reason provided"
	}
	return reason
}

func missingParam(params map[string]any, key string) bool {
	if params == nil {
		return true
	}
	v, ok := params[key]
	if !ok || v == nil {
		return true
	}
	if s, isString := v.(string); isString && s == "" {
		return true
	}
	return false
}
