package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"rag-governor/internal/domain"
	"rag-governor/internal/usecase/retrieval"

	"github.com/google/uuid"
)

// ErrIndexNotReady is returned when a query arrives before the first index build.
var ErrIndexNotReady = errors.New("corpus index not loaded")

// QueryInput is one question against the corpus.
type QueryInput struct {
	Question string
	Variant  string
	K        int
	// RequestID correlates logs and spans; generated when empty.
	RequestID string
}

// QueryOutput is the pipeline result.
type QueryOutput struct {
	Answer    string
	Variant   domain.Variant
	K         int
	Hits      []domain.RankedHit
	LatencyMs float64
	RequestID string
	Stages    []StageTiming
}

// Validate rejects malformed input before any stage runs.
func (in QueryInput) Validate(cfg PipelineConfig) (domain.Variant, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return "", &domain.ValidationError{Field: "question", Message: "must not be empty"}
	}
	if n := utf8.RuneCountInString(in.Question); n > cfg.MaxQuestionChars {
		return "", &domain.ValidationError{
			Field:   "question",
			Message: fmt.Sprintf("must be at most %d characters (got %d)", cfg.MaxQuestionChars, n),
		}
	}
	v, err := domain.ParseVariant(in.Variant)
	if err != nil {
		return "", err
	}
	if in.K < 1 || in.K > cfg.MaxK {
		return "", &domain.ValidationError{
			Field:   "k",
			Message: fmt.Sprintf("must be between 1 and %d (got %d)", cfg.MaxK, in.K),
		}
	}
	return v, nil
}

// Guardrail masks text entering and leaving the pipeline.
type Guardrail interface {
	PreEnforce(text string) string
	PostEnforce(text string) string
}

// AnswerQueryUsecase runs the full query pipeline.
type AnswerQueryUsecase interface {
	Execute(ctx context.Context, input QueryInput) (*QueryOutput, error)
}

type answerQueryUsecase struct {
	holder      *IndexHolder
	router      *retrieval.Router
	guardrail   Guardrail
	synthesizer domain.Synthesizer
	telemetry   Instrumentation
	cfg         PipelineConfig
	logger      *slog.Logger
}

// NewAnswerQueryUsecase wires together the components of the query pipeline.
func NewAnswerQueryUsecase(
	holder *IndexHolder,
	router *retrieval.Router,
	guardrail Guardrail,
	synthesizer domain.Synthesizer,
	telemetry Instrumentation,
	cfg PipelineConfig,
	logger *slog.Logger,
) AnswerQueryUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &answerQueryUsecase{
		holder:      holder,
		router:      router,
		guardrail:   guardrail,
		synthesizer: synthesizer,
		telemetry:   FailOpen(telemetry, logger),
		cfg:         cfg,
		logger:      logger,
	}
}

func (u *answerQueryUsecase) Execute(ctx context.Context, input QueryInput) (*QueryOutput, error) {
	received := time.Now()

	variant, err := input.Validate(u.cfg)
	if err != nil {
		return nil, err
	}

	// One snapshot for the whole request.
	idx := u.holder.Load()
	if idx == nil {
		return nil, ErrIndexNotReady
	}

	requestID := input.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	k := max(1, min(input.K, idx.Len()))
	reqLog := u.logger.With(
		slog.String("request_id", requestID),
		slog.String("variant", variant.String()),
	)

	ctx, root := u.telemetry.StartSpan(ctx, "query")
	root.SetAttribute("rag.request.id", requestID)
	root.SetAttribute("rag.variant", variant.String())
	root.SetAttribute("rag.k", k)
	root.SetAttribute("rag.corpus.size", idx.Len())

	runner := newStageRunner(u.telemetry)
	out := &QueryOutput{Variant: variant, K: k, RequestID: requestID}

	err = u.runPipeline(ctx, runner, idx, variant, input.Question, k, out)
	out.Stages = runner.timings
	out.LatencyMs = roundMs(time.Since(received))

	outcome := OutcomeOK
	failedStage := ""
	if err != nil {
		outcome = OutcomeError
		if ctx.Err() != nil {
			outcome = OutcomeCancelled
		}
		var se *domain.StageError
		if errors.As(err, &se) {
			failedStage = se.Stage
		}
	}

	root.SetAttribute("rag.hits", len(out.Hits))
	root.SetAttribute("rag.outcome", outcome)
	root.End(err)
	u.telemetry.RecordRequest(ctx, RequestRecord{
		Variant:   variant.String(),
		Outcome:   outcome,
		Stage:     failedStage,
		LatencyMs: out.LatencyMs,
	})

	if err != nil {
		reqLog.ErrorContext(ctx, "query_failed",
			slog.String("stage", failedStage),
			slog.String("state", string(runner.state)),
			slog.String("outcome", outcome),
			slog.String("error", err.Error()),
			slog.Float64("latency_ms", out.LatencyMs))
		return nil, err
	}

	reqLog.InfoContext(ctx, "query_completed",
		slog.Int("k", k),
		slog.Int("hit_count", len(out.Hits)),
		slog.String("synthesizer", u.synthesizer.Name()),
		slog.Float64("latency_ms", out.LatencyMs))
	return out, nil
}

func (u *answerQueryUsecase) runPipeline(
	ctx context.Context,
	runner *stageRunner,
	idx *domain.CorpusIndex,
	variant domain.Variant,
	rawQuestion string,
	k int,
	out *QueryOutput,
) error {
	var (
		question string
		ranker   retrieval.Ranker
		passages []domain.Passage
		answer   string
	)

	if err := runner.run(ctx, StageGuardQuestion, StateQuestionMasked, func(context.Context) error {
		question = u.guardrail.PreEnforce(rawQuestion)
		return nil
	}); err != nil {
		return err
	}

	if err := runner.run(ctx, StageRoute, StateRouted, func(context.Context) error {
		var err error
		ranker, err = u.router.ResolveVariant(variant)
		return err
	}); err != nil {
		return err
	}

	if err := runner.run(ctx, StageRetrieve, StateRanked, func(ctx context.Context) error {
		hits, err := ranker.Rank(ctx, idx, question, k)
		if err != nil {
			return err
		}
		out.Hits = hits
		return nil
	}); err != nil {
		return err
	}

	if err := runner.run(ctx, StageGatherContexts, StateContextGathered, func(context.Context) error {
		var err error
		passages, err = GatherContexts(out.Hits, idx, u.cfg.ContextBudgetChars)
		return err
	}); err != nil {
		return err
	}

	if err := runner.run(ctx, StageGenerate, StateGenerated, func(ctx context.Context) error {
		genCtx := ctx
		if u.cfg.GenerateTimeout > 0 {
			var cancel context.CancelFunc
			genCtx, cancel = context.WithTimeout(ctx, u.cfg.GenerateTimeout)
			defer cancel()
		}
		text, err := u.synthesizer.Generate(genCtx, question, passages)
		if err != nil {
			var ge *domain.GenerationError
			if !errors.As(err, &ge) {
				err = &domain.GenerationError{Provider: u.synthesizer.Name(), Err: err}
			}
			return err
		}
		answer = text
		return nil
	}); err != nil {
		return err
	}

	if err := runner.run(ctx, StageGuardAnswer, StateAnswerMasked, func(context.Context) error {
		out.Answer = u.guardrail.PostEnforce(answer)
		return nil
	}); err != nil {
		return err
	}

	runner.state = StateCompleted
	return nil
}
