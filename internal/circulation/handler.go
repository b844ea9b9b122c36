// internal/circulation/handler.go
package circulation

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

// Routes mounts the circulation endpoints. Every read goes through the
// service's ownership filter; the handler only supplies the requester.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/checkout", h.handleIssue)
	r.Post("/return", h.handleReturn)
	r.Post("/renew", h.handleRenew)

	r.Get("/lending-records", h.handleListRecords)
	r.Get("/lending-records/overdue", h.handleListOverdue)
	r.Get("/lending-records/{id}", h.handleGetRecord)
	r.Get("/members/{id}/lending-records/active", h.handleListActive)
	r.Post("/lending-records/sweep", h.handleSweep)
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	requester, ok := membership.RequireRequester(w, r)
	if !ok {
		return
	}

	var req struct {
		MemberID uuid.UUID `json:"member_id"`
		CopyID   uuid.UUID `json:"copy_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, shared.NewError("INVALID_ARGUMENT", "malformed request body"))
		return
	}
	// Members check out for themselves; staff may check out on a
	// member's behalf.
	if !requester.Role.Privileged() && req.MemberID != requester.MemberID {
		shared.WriteError(w, shared.NewError("FORBIDDEN", "cannot check out for another member"))
		return
	}

	record, err := h.service.Issue(r.Context(), req.MemberID, req.CopyID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecordID uuid.UUID `json:"record_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, shared.NewError("INVALID_ARGUMENT", "malformed request body"))
		return
	}

	receipt, err := h.service.Return(r.Context(), req.RecordID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, receipt)
}

func (h *Handler) handleRenew(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecordID uuid.UUID `json:"record_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, shared.NewError("INVALID_ARGUMENT", "malformed request body"))
		return
	}

	record, err := h.service.Renew(r.Context(), req.RecordID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	requester, ok := membership.RequireRequester(w, r)
	if !ok {
		return
	}

	records, err := h.service.ListRecords(r.Context(), requester)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	requester, ok := membership.RequireRequester(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, shared.NewError("INVALID_ARGUMENT", "invalid record ID"))
		return
	}

	record, err := h.service.GetRecord(r.Context(), id, requester)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleListActive(w http.ResponseWriter, r *http.Request) {
	requester, ok := membership.RequireRequester(w, r)
	if !ok {
		return
	}

	memberID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, shared.NewError("INVALID_ARGUMENT", "invalid member ID"))
		return
	}

	records, err := h.service.ListActiveByMember(r.Context(), memberID, requester)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) handleListOverdue(w http.ResponseWriter, r *http.Request) {
	requester, ok := membership.RequireRequester(w, r)
	if !ok {
		return
	}

	records, err := h.service.ListOverdue(r.Context(), requester)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) handleSweep(w http.ResponseWriter, r *http.Request) {
	requester, ok := membership.RequireRequester(w, r)
	if !ok {
		return
	}
	if !requester.Role.Privileged() {
		shared.WriteError(w, shared.NewError("FORBIDDEN", "librarian or admin role required"))
		return
	}

	swept, err := h.service.SweepOverdue(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, swept)
}
