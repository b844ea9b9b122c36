// internal/membership/handler.go
package membership

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bookstack/internal/shared"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the membership endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/members", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Get("/members/{id}", h.handleGetMember)
	r.Patch("/members/{id}/role", h.handleUpdateRole)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, shared.NewError("INVALID_ARGUMENT", "malformed request body"))
		return
	}

	member, err := h.service.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, member)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, shared.NewError("INVALID_ARGUMENT", "malformed request body"))
		return
	}

	member, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	// Session issuance happens in the fronting auth layer; this endpoint
	// only confirms the credentials and returns the member.
	shared.WriteJSON(w, http.StatusOK, member)
}

func (h *Handler) handleGetMember(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, shared.NewError("INVALID_ARGUMENT", "invalid member ID"))
		return
	}

	member, err := h.service.GetMember(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, member)
}

func (h *Handler) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	requester, ok := RequireRequester(w, r)
	if !ok {
		return
	}
	if requester.Role != RoleAdmin {
		shared.WriteError(w, shared.NewError("FORBIDDEN", "only admins may change roles"))
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, shared.NewError("INVALID_ARGUMENT", "invalid member ID"))
		return
	}

	var req struct {
		Role Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, shared.NewError("INVALID_ARGUMENT", "malformed request body"))
		return
	}

	if err := h.service.UpdateMemberRole(r.Context(), id, req.Role); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
