// internal/catalog/handler.go
package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bookstack/internal/membership"
	"bookstack/internal/shared"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the catalog and inventory endpoints. Reads are open;
// every mutation requires a privileged role.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/items/{id}", h.handleGetItem)
	r.Get("/items/{id}/stats", h.handleGetStats)
	r.Get("/search", h.handleSearch)

	r.Post("/items", h.privileged(h.handleAddItem))
	r.Delete("/items/{id}", h.privileged(h.handleRetireItem))
	r.Post("/items/{id}/copies", h.privileged(h.handleAddCopies))
	r.Delete("/items/{id}/copies", h.privileged(h.handleRemoveCopies))
	r.Post("/copies/{id}/lost", h.privileged(h.handleReportLost))
}

func (h *Handler) privileged(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requester, ok := membership.RequireRequester(w, r)
		if !ok {
			return
		}
		if !requester.Role.Privileged() {
			shared.WriteError(w, shared.NewError("FORBIDDEN", "librarian or admin role required"))
			return
		}
		next(w, r)
	}
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ISBN   string `json:"isbn"`
		Title  string `json:"title"`
		Author string `json:"author"`
		Copies int    `json:"copies"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, shared.NewError("INVALID_ARGUMENT", "malformed request body"))
		return
	}

	item, err := h.service.AddItem(r.Context(), req.ISBN, req.Title, req.Author, req.Copies)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, shared.NewError("INVALID_ARGUMENT", "invalid item ID"))
		return
	}

	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) handleGetStats(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, shared.NewError("INVALID_ARGUMENT", "invalid item ID"))
		return
	}

	stats, err := h.service.GetStats(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		shared.WriteError(w, shared.NewError("INVALID_ARGUMENT", "missing search query"))
		return
	}

	items, err := h.service.Search(r.Context(), query)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) handleRetireItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, shared.NewError("INVALID_ARGUMENT", "invalid item ID"))
		return
	}

	if err := h.service.RetireItem(r.Context(), id); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAddCopies(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, shared.NewError("INVALID_ARGUMENT", "invalid item ID"))
		return
	}

	var req struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, shared.NewError("INVALID_ARGUMENT", "malformed request body"))
		return
	}

	stats, err := h.service.AddCopies(r.Context(), id, req.Count)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, stats)
}

func (h *Handler) handleRemoveCopies(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, shared.NewError("INVALID_ARGUMENT", "invalid item ID"))
		return
	}

	var req struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, shared.NewError("INVALID_ARGUMENT", "malformed request body"))
		return
	}

	stats, err := h.service.RemoveCopies(r.Context(), id, req.Count)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleReportLost(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, shared.NewError("INVALID_ARGUMENT", "invalid copy ID"))
		return
	}

	if err := h.service.ReportLost(r.Context(), id); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
