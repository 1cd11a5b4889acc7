package rag_http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"rag-governor/internal/domain"
	"rag-governor/internal/infra/logger"
	"rag-governor/internal/usecase"

	"github.com/labstack/echo/v4"
)

const (
	defaultVariant = "A"
	defaultK       = 6
)

// QueryRequest is the /query body.
type QueryRequest struct {
	Question string `json:"question"`
}

// QueryResponse is the /query result. Hits encode as [doc_id, score] pairs.
type QueryResponse struct {
	Answer    string             `json:"answer"`
	Variant   string             `json:"variant"`
	K         int                `json:"k"`
	Hits      []domain.RankedHit `json:"hits"`
	LatencyMs float64            `json:"latency_ms"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

type Handler struct {
	answerUsecase usecase.AnswerQueryUsecase
	holder        *usecase.IndexHolder
	logger        *slog.Logger
}

func NewHandler(
	answerUsecase usecase.AnswerQueryUsecase,
	holder *usecase.IndexHolder,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		answerUsecase: answerUsecase,
		holder:        holder,
		logger:        logger,
	}
}

// RegisterRoutes mounts the query and probe endpoints.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/query", h.Query)
	e.GET("/health", h.Health)
	e.GET("/readyz", h.Ready)
}

// Answer a question with the selected retrieval variant
// (POST /query?variant=A|B&k=<int>)
func (h *Handler) Query(ctx echo.Context) error {
	variant := ctx.QueryParam("variant")
	if variant == "" {
		variant = defaultVariant
	}

	k := defaultK
	if raw := ctx.QueryParam("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, ErrorResponse{Detail: "k: must be an integer"})
		}
		k = parsed
	}

	var req QueryRequest
	if err := (&echo.DefaultBinder{}).BindBody(ctx, &req); err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Detail: "invalid request body"})
	}

	reqCtx := ctx.Request().Context()
	output, err := h.answerUsecase.Execute(reqCtx, usecase.QueryInput{
		Question:  req.Question,
		Variant:   variant,
		K:         k,
		RequestID: logger.RequestIDFrom(reqCtx),
	})
	if err != nil {
		status, detail := classify(reqCtx, err)
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(reqCtx, "query_request_failed",
				slog.Int("status", status),
				slog.String("error", err.Error()))
		}
		return ctx.JSON(status, ErrorResponse{Detail: detail})
	}

	return ctx.JSON(http.StatusOK, NewQueryResponse(output))
}

// NewQueryResponse renders a pipeline result. Hits are never null.
func NewQueryResponse(output *usecase.QueryOutput) QueryResponse {
	hits := output.Hits
	if hits == nil {
		hits = []domain.RankedHit{}
	}
	return QueryResponse{
		Answer:    output.Answer,
		Variant:   output.Variant.String(),
		K:         output.K,
		Hits:      hits,
		LatencyMs: output.LatencyMs,
	}
}

// Liveness (GET /health)
func (h *Handler) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness (GET /readyz)
func (h *Handler) Ready(ctx echo.Context) error {
	idx := h.holder.Load()
	if idx == nil {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"status": "loading",
			"ready":  false,
		})
	}
	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"ready":          true,
		"document_count": idx.Len(),
		"fingerprint":    idx.Fingerprint(),
		"embedder":       idx.EmbedderVersion(),
	})
}

// classify maps pipeline errors to a status code and a client-safe message.
// Provider timeouts stay 500; only caller cancellation maps to 503.
func classify(reqCtx context.Context, err error) (int, string) {
	var (
		validationErr *domain.ValidationError
		variantErr    *domain.InvalidVariantError
		embedErr      *domain.EmbeddingUnavailableError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Error()
	case errors.As(err, &variantErr):
		return http.StatusBadRequest, variantErr.Error()
	case errors.Is(err, context.Canceled), reqCtx.Err() != nil:
		return http.StatusServiceUnavailable, "request cancelled"
	case errors.Is(err, usecase.ErrIndexNotReady):
		return http.StatusServiceUnavailable, "index not ready"
	case errors.As(err, &embedErr):
		return http.StatusInternalServerError, "embedding provider unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
