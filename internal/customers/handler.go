package customers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"acip/internal/sentinel"
	dErrors "acip/pkg/domain-errors"
	"acip/pkg/platform/httputil"
)

// Handler exposes read access to the customer registry.
type Handler struct {
	store *Store
}

// NewHandler creates the customer HTTP handler.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Register mounts the customer routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/customers", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/{customerID}", h.handleGet)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"customers": records})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Get(r.Context(), chi.URLParam(r, "customerID"))
	if errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "customer not found"))
		return
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}
