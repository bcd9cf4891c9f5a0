package analytics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/talenthub/performance-management/internal"
	"github.com/talenthub/performance-management/internal/identity"
	"github.com/talenthub/performance-management/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		service:     service,
	}
}

type report func(ctx context.Context, actor *identity.User, p *Params) (interface{}, error)

func (h *Handler) OKRProgress(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, actor *identity.User, p *Params) (interface{}, error) {
		return h.service.OKRProgress(ctx, actor, p)
	})
}

func (h *Handler) FeedbackEngagement(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, actor *identity.User, p *Params) (interface{}, error) {
		return h.service.FeedbackEngagement(ctx, actor, p)
	})
}

func (h *Handler) ReviewParticipation(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, actor *identity.User, p *Params) (interface{}, error) {
		return h.service.ReviewParticipation(ctx, actor, p)
	})
}

func (h *Handler) Sentiment(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, actor *identity.User, p *Params) (interface{}, error) {
		return h.service.Sentiment(ctx, actor, p)
	})
}

func (h *Handler) CycleCompletion(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, actor *identity.User, p *Params) (interface{}, error) {
		return h.service.CycleCompletion(ctx, actor, p)
	})
}

// serve runs the shared parameter parsing and error envelope. Every analytics
// failure that is not a role violation is reported as 500 with {"error": msg};
// callers depend on that exact shape.
func (h *Handler) serve(w http.ResponseWriter, r *http.Request, fn report) {
	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	params, err := ParseParams(r.URL.Query())
	if err != nil {
		h.writeAnalyticsError(w, err.Error())
		return
	}

	result, err := fn(r.Context(), actor, params)
	if err != nil {
		var appErr *internal.AppError
		if errors.As(err, &appErr) && appErr.StatusCode < http.StatusInternalServerError {
			h.HandleServiceError(w, err)
			return
		}
		h.Logger.Error("analytics computation failed", "path", r.URL.Path, "error", err)
		h.writeAnalyticsError(w, "analytics computation failed")
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) writeAnalyticsError(w http.ResponseWriter, message string) {
	h.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": message})
}
