package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/visualverse/internal/adapters/repository/adminstore"
	"github.com/okian/visualverse/internal/auth"
	"github.com/okian/visualverse/internal/domain/types"
)

// AdminService is the admin console's view of auth.
type AdminService interface {
	Authenticator
	Login(ctx context.Context, email, password string) (auth.LoginResult, error)
	Logout(ctx context.Context, p auth.Principal) error
	GetUser(ctx context.Context, id string) (adminstore.User, error)
	ListUsers(ctx context.Context) ([]adminstore.User, error)
	CreateUser(ctx context.Context, in auth.NewUser) (adminstore.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// DashboardProvider computes the admin dashboard figures.
type DashboardProvider interface {
	DashboardStats(ctx context.Context) (types.DashboardStats, error)
}

// AdminHandler serves the admin console endpoints.
type AdminHandler struct {
	admin     AdminService
	dashboard DashboardProvider
	maxBody   int64
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(admin AdminService, dashboard DashboardProvider, maxBody int64) *AdminHandler {
	return &AdminHandler{admin: admin, dashboard: dashboard, maxBody: maxBody}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type createUserRequest struct {
	Email       string          `json:"email" validate:"required,email"`
	DisplayName string          `json:"display_name" validate:"max=200"`
	Role        adminstore.Role `json:"role" validate:"omitempty,oneof=admin editor viewer"`
	Password    string          `json:"password" validate:"required"`
}

type meResponse struct {
	User      adminstore.User `json:"user"`
	SessionID string          `json:"session_id"`
}

// HandleLogin handles POST /admin/login.
func (h *AdminHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "api.admin_login"
	var in loginRequest
	if err := decodeJSON(w, r, h.maxBody, &in); err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	res, err := h.admin.Login(r.Context(), in.Email, in.Password)
	respond(w, r, op, http.StatusOK, res, err)
}

// HandleLogout handles POST /admin/logout.
func (h *AdminHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	const op = "api.admin_logout"
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, r, NewKind(op, ErrUnauthorized))
		return
	}
	noContent(w, r, op, h.admin.Logout(r.Context(), p))
}

// HandleMe handles GET /admin/me.
func (h *AdminHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	const op = "api.admin_me"
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, r, NewKind(op, ErrUnauthorized))
		return
	}
	u, err := h.admin.GetUser(r.Context(), p.UserID)
	respond(w, r, op, http.StatusOK, meResponse{User: u, SessionID: p.SessionID}, err)
}

// HandleListUsers handles GET /admin/users.
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_users"
	users, err := h.admin.ListUsers(r.Context())
	respond(w, r, op, http.StatusOK, nonNil(users), err)
}

// HandleCreateUser handles POST /admin/users.
func (h *AdminHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_user"
	var in createUserRequest
	if err := decodeJSON(w, r, h.maxBody, &in); err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	u, err := h.admin.CreateUser(r.Context(), auth.NewUser{
		Email: in.Email, DisplayName: in.DisplayName, Role: in.Role, Password: in.Password,
	})
	respond(w, r, op, http.StatusCreated, u, err)
}

// HandleDeleteUser handles DELETE /admin/users/{id}. Admins cannot delete
// themselves.
func (h *AdminHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_user"
	id := chi.URLParam(r, "id")
	if p, ok := auth.PrincipalFrom(r.Context()); ok && p.UserID == id {
		writeError(w, r, WrapKind(op, ErrBadRequest, errDeleteSelf))
		return
	}
	noContent(w, r, op, h.admin.DeleteUser(r.Context(), id))
}

// HandleDashboardStats handles GET /admin/dashboard/stats.
func (h *AdminHandler) HandleDashboardStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.dashboard_stats"
	stats, err := h.dashboard.DashboardStats(r.Context())
	respond(w, r, op, http.StatusOK, stats, err)
}
