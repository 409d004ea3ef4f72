package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/splitledger/splitledger/internal/platform/httpx"
	"github.com/splitledger/splitledger/internal/shared"
)

// Handler exposes the auth endpoints.
type Handler struct {
	log *slog.Logger
	svc *Service
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, svc *Service) *Handler {
	return &Handler{log: log, svc: svc}
}

// MountPublicRoutes registers the routes reachable without a token.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/refresh", h.refresh)
}

// MountProtectedRoutes registers the routes behind the auth middleware.
func (h *Handler) MountProtectedRoutes(r chi.Router) {
	r.Post("/logout", h.logout)
	r.Get("/me", h.me)
}

// MountUserRoutes registers the user-lookup routes, also behind the auth
// middleware.
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.Get("/by-username/{username}", h.userByUsername)
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type authResponse struct {
	User         userResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

func toUserResponse(u *User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}

func toAuthResponse(res *AuthResult) authResponse {
	return authResponse{
		User:         toUserResponse(res.User),
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.CodeInvalidField, http.StatusBadRequest, "Request body is not valid JSON."))
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	res, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	h.log.Info("user registered", slog.Int64("user_id", res.User.ID))
	httpx.Data(w, http.StatusCreated, toAuthResponse(res))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.CodeInvalidField, http.StatusBadRequest, "Request body is not valid JSON."))
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	h.log.Info("user logged in", slog.Int64("user_id", res.User.ID))
	httpx.Data(w, http.StatusOK, toAuthResponse(res))
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.CodeInvalidField, http.StatusBadRequest, "Request body is not valid JSON."))
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	access, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	httpx.Data(w, http.StatusOK, map[string]string{"access_token": access})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.CodeInvalidField, http.StatusBadRequest, "Request body is not valid JSON."))
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	claims, _ := ClaimsFromContext(r.Context())
	if err := h.svc.Logout(r.Context(), req.RefreshToken, claims); err != nil {
		httpx.RespondError(w, err)
		return
	}

	h.log.Info("user logged out", slog.Int64("user_id", claims.UserID))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) userByUsername(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.UserByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.Errorf(shared.CodeTokenMissing, http.StatusUnauthorized, "Authentication required."))
		return
	}

	user, err := h.svc.CurrentUser(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, toUserResponse(user))
}
