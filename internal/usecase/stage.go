package usecase

import (
	"context"
	"math"
	"time"

	"rag-governor/internal/domain"
)

// PipelineState is a state of the query state machine.
type PipelineState string

const (
	StateReceived        PipelineState = "received"
	StateQuestionMasked  PipelineState = "question_masked"
	StateRouted          PipelineState = "routed"
	StateRanked          PipelineState = "ranked"
	StateContextGathered PipelineState = "context_gathered"
	StateGenerated       PipelineState = "generated"
	StateAnswerMasked    PipelineState = "answer_masked"
	StateCompleted       PipelineState = "completed"
	StateFailed          PipelineState = "failed"
)

// Stage names double as span names.
const (
	StageGuardQuestion  = "guard_question"
	StageRoute          = "route"
	StageRetrieve       = "retrieve"
	StageGatherContexts = "gather_contexts"
	StageGenerate       = "generate"
	StageGuardAnswer    = "guard_answer"
)

// StageTiming is the measured duration of one stage.
type StageTiming struct {
	Name       string  `json:"name"`
	DurationMs float64 `json:"duration_ms"`
}

// stageRunner sequences stages for one request and records their timings.
type stageRunner struct {
	telemetry Instrumentation
	state     PipelineState
	timings   []StageTiming
}

func newStageRunner(telemetry Instrumentation) *stageRunner {
	return &stageRunner{telemetry: telemetry, state: StateReceived}
}

// run executes fn as stage name and moves to next on success. The caller's
// context is checked first so a cancelled request stops at the boundary.
func (r *stageRunner) run(ctx context.Context, name string, next PipelineState, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		r.state = StateFailed
		return &domain.StageError{Stage: name, Err: err}
	}

	stageCtx, span := r.telemetry.StartSpan(ctx, name)
	start := time.Now()
	err := fn(stageCtx)
	r.timings = append(r.timings, StageTiming{Name: name, DurationMs: roundMs(time.Since(start))})
	span.End(err)

	if err != nil {
		r.state = StateFailed
		return &domain.StageError{Stage: name, Err: err}
	}
	r.state = next
	return nil
}

// roundMs converts d to milliseconds rounded to one decimal place.
func roundMs(d time.Duration) float64 {
	ms := float64(d) / float64(time.Millisecond)
	return math.Round(ms*10) / 10
}
