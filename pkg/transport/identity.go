package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/auth"
	"github.com/modelgate/modelgate/pkg/identity"
	"github.com/modelgate/modelgate/pkg/storage"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// registerResponse carries the plaintext primary key exactly once.
type registerResponse struct {
	Identity identityResponse `json:"identity"`
	APIKey   string           `json:"apiKey"`
	Token    string           `json:"token"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, api.NewInvalidRequestError("", "request body is not valid JSON"))
		return
	}

	reg, err := h.identities.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		h.writeIdentityError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, registerResponse{
		Identity: toIdentityResponse(reg.Identity),
		APIKey:   reg.APIKey,
		Token:    reg.Token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Identity identityResponse `json:"identity"`
	Token    string           `json:"token"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, api.NewInvalidRequestError("", "request body is not valid JSON"))
		return
	}

	ident, token, err := h.identities.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeIdentityError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, loginResponse{
		Identity: toIdentityResponse(ident),
		Token:    token,
	})
}

type identityResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toIdentityResponse(ident *storage.Identity) identityResponse {
	return identityResponse{
		ID:        ident.ID,
		Email:     ident.Email,
		Username:  ident.Username,
		Role:      string(ident.Role),
		CreatedAt: ident.CreatedAt,
	}
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ident := auth.VerifiedFromContext(r.Context()).Identity
	api.WriteJSON(w, http.StatusOK, toIdentityResponse(ident))
}

func (h *Handler) handleRotateKey(w http.ResponseWriter, r *http.Request) {
	ident := auth.VerifiedFromContext(r.Context()).Identity

	key, err := h.identities.RotateKey(r.Context(), ident)
	if err != nil {
		h.writeIdentityError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]string{"newKey": key})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	ident := auth.VerifiedFromContext(r.Context()).Identity

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, api.NewInvalidRequestError("", "request body is not valid JSON"))
		return
	}

	if err := h.identities.ChangePassword(r.Context(), ident, req.CurrentPassword, req.NewPassword); err != nil {
		h.writeIdentityError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type issueCredentialRequest struct {
	Label     string     `json:"label"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type credentialResponse struct {
	ID         int64      `json:"id"`
	Label      string     `json:"label"`
	APIKey     string     `json:"api_key,omitempty"`
	Active     bool       `json:"active"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (h *Handler) handleIssueCredential(w http.ResponseWriter, r *http.Request) {
	ident := auth.VerifiedFromContext(r.Context()).Identity

	var req issueCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, api.NewInvalidRequestError("", "request body is not valid JSON"))
		return
	}

	cred, key, err := h.identities.IssueCredential(r.Context(), ident, req.Label, req.ExpiresAt)
	if err != nil {
		h.writeIdentityError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, credentialResponse{
		ID:        cred.ID,
		Label:     cred.Label,
		APIKey:    key,
		Active:    cred.Active,
		ExpiresAt: cred.ExpiresAt,
		CreatedAt: cred.CreatedAt,
	})
}

func (h *Handler) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	ident := auth.VerifiedFromContext(r.Context()).Identity

	creds, err := h.identities.ListCredentials(r.Context(), ident)
	if err != nil {
		h.writeIdentityError(w, err)
		return
	}

	out := make([]credentialResponse, 0, len(creds))
	for _, c := range creds {
		out = append(out, credentialResponse{
			ID:         c.ID,
			Label:      c.Label,
			Active:     c.Active,
			ExpiresAt:  c.ExpiresAt,
			LastUsedAt: c.LastUsedAt,
			CreatedAt:  c.CreatedAt,
		})
	}
	api.WriteJSON(w, http.StatusOK, map[string][]credentialResponse{"credentials": out})
}

func (h *Handler) handleRevokeCredential(w http.ResponseWriter, r *http.Request) {
	ident := auth.VerifiedFromContext(r.Context()).Identity

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		api.WriteError(w, api.NewInvalidRequestError("id", "credential id must be an integer"))
		return
	}

	if err := h.identities.RevokeCredential(r.Context(), ident, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeStatus(w, http.StatusNotFound, api.NewInvalidRequestError("id", "no such credential"))
			return
		}
		h.writeIdentityError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeIdentityError maps identity service failures to responses. Unexpected
// errors are logged in full and returned as generic 500s.
func (h *Handler) writeIdentityError(w http.ResponseWriter, err error) {
	var ve *identity.ValidationError
	switch {
	case errors.As(err, &ve):
		api.WriteError(w, api.NewInvalidRequestError(ve.Field, ve.Message))
	case errors.Is(err, identity.ErrEmailTaken):
		writeStatus(w, http.StatusConflict, api.NewInvalidRequestError("email", err.Error()))
	case errors.Is(err, identity.ErrInvalidCredentials):
		api.WriteError(w, api.NewUnauthorizedError())
	case errors.Is(err, identity.ErrInactive):
		writeStatus(w, http.StatusForbidden, api.NewUnauthorizedError())
	default:
		slog.Error("identity operation failed", "error", err)
		api.WriteError(w, api.NewServerError())
	}
}

// writeStatus writes an error body with an explicit status, overriding the
// default code-to-status mapping.
func writeStatus(w http.ResponseWriter, status int, e *api.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(e)
}
