package cases

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"acip/internal/decision"
	"acip/internal/workflow"
	dErrors "acip/pkg/domain-errors"
	"acip/pkg/platform/httputil"
	"acip/pkg/requestcontext"
)

// Handler exposes the case lifecycle over HTTP.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler creates the case HTTP handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the case routes. Decision endpoints go through the
// reviewer auth middleware; read endpoints do not.
func (h *Handler) Register(r chi.Router, reviewerAuth func(http.Handler) http.Handler) {
	r.Route("/v1/cases", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)

		r.Route("/{caseID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Get("/timeline", h.handleTimeline)
			r.Get("/report", h.handleAuditReport)
			r.Get("/activity", h.handleActivityReport)

			r.With(reviewerAuth).Post("/decision", h.handleDecide)
		})
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	detail, err := h.svc.Create(ctx, *req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, detail)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"cases": out})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.Get(r.Context(), chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	timeline, err := h.svc.Timeline(r.Context(), chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, timeline)
}

func (h *Handler) handleAuditReport(w http.ResponseWriter, r *http.Request) {
	text, err := h.svc.AuditReport(r.Context(), chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

func (h *Handler) handleActivityReport(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.ActivityReport(r.Context(), chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

// decideRequest is the reviewer decision payload. The actor normally comes
// from the verified token; the body field is a fallback for trusted internal
// callers.
type decideRequest struct {
	Decision string `json:"decision"`
	Actor    string `json:"actor,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeJSON[decideRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	actor := requestcontext.Actor(ctx)
	if actor == "" {
		actor = req.Actor
	}
	if actor == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "actor is required"))
		return
	}

	detail, err := h.svc.Decide(ctx, chi.URLParam(r, "caseID"), workflow.HumanDecision{
		Decision: decisionFrom(req.Decision),
		Actor:    actor,
		Notes:    req.Notes,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

func decisionFrom(s string) decision.Decision {
	return decision.Decision(strings.ToUpper(strings.TrimSpace(s)))
}
