package auth

import (
	"errors"
	"net/http"

	"github.com/creatorhub/hub/pkg/httputil"
)

// Handler exposes the auth endpoints.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the auth routes on a router group.
func (h *Handler) Register(r *httputil.Router) {
	r.HandleFunc("POST /auth/register", h.handleRegister)
	r.HandleFunc("POST /auth/login", h.handleLogin)
	r.HandleFunc("POST /auth/refresh", h.handleRefresh)
	r.HandleFunc("POST /auth/logout", h.handleLogout)
}

// RegisterProtected mounts routes requiring a verified access token.
func (h *Handler) RegisterProtected(r *httputil.Router) {
	r.HandleFunc("GET /auth/me", h.handleMe)
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httputil.BindOrError(r, w, &req); err != nil {
		return
	}

	account, err := h.service.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			httputil.Error(w, http.StatusConflict, err.Error())
			return
		}
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	httputil.JSON(w, http.StatusCreated, account)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.BindOrError(r, w, &req); err != nil {
		return
	}

	pair, err := h.service.Login(r.Context(), req.Email, req.Password, r.UserAgent())
	if err != nil {
		httputil.Error(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	httputil.JSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httputil.BindOrError(r, w, &req); err != nil {
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httputil.Error(w, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}

	httputil.JSON(w, http.StatusOK, pair)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httputil.BindOrError(r, w, &req); err != nil {
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		httputil.Error(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	var (
		account *Account
		err     error
	)
	// First-party tokens carry full claims; SSO requests only carry the
	// creator ID resolved from the OIDC introspection claim.
	if claims, ok := r.Context().Value(httputil.ClaimsCtxKey).(*Claims); ok {
		account, err = h.service.Account(r.Context(), claims)
	} else if creatorID, ok := httputil.CreatorID(r); ok {
		account, err = h.service.AccountByID(r.Context(), creatorID)
	} else {
		httputil.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err != nil {
		httputil.Error(w, http.StatusNotFound, "account not found")
		return
	}

	httputil.JSON(w, http.StatusOK, account)
}
