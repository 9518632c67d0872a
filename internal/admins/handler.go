package admins

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvpro-backend/internal/resumes"
	"cvpro-backend/internal/shared/server/middleware"
	"cvpro-backend/internal/shared/server/respond"
	"cvpro-backend/internal/users"
)

// AdminKeyHeader carries the admin signup key.
const AdminKeyHeader = "X-Admin-Key"

// Handler wires admin HTTP endpoints.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches admin routes. Listing and deletion require an
// authenticated admin.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.POST("/register/", h.register)
	rg.POST("/login/", h.login)

	protected := rg.Group("", requireAuth, middleware.RequireRole(users.RoleAdmin))
	protected.GET("/users/", h.listUsers)
	protected.GET("/resumes/", h.listResumes)
	protected.GET("/login-logs/", h.listLoginLogs)
	protected.DELETE("/deleteusers/:user_id/", h.deleteUser)
}

type registerRequest struct {
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Email     string          `json:"email"`
	Password  string          `json:"password"`
	Location  json.RawMessage `json:"location"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userSummaryResponse struct {
	users.UserResponse
	TotalResumes int `json:"total_resumes"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}

	u, err := h.Svc.Register(c.Request.Context(), c.GetHeader(AdminKeyHeader), users.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Location:  req.Location,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrSignupDisabled):
			respond.Error(c, http.StatusForbidden, "forbidden", "Admin registration is disabled.")
		case errors.Is(err, ErrBadSignupKey):
			respond.Error(c, http.StatusForbidden, "forbidden", "Invalid admin key.")
		case users.WriteValidation(c, err):
		case errors.Is(err, users.ErrEmailTaken):
			respond.Error(c, http.StatusBadRequest, "conflict", "A user with this email already exists.")
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to register admin")
		}
		return
	}

	respond.JSON(c, http.StatusCreated, gin.H{
		"message":        "Admin registered successfully.",
		"first_name":     u.FirstName,
		"last_name":      u.LastName,
		"email":          u.Email,
		"admin_username": u.Username,
		"role":           u.Role,
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Email and password are required.")
		return
	}

	pair, u, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password, users.ClientInfoFrom(c))
	if err != nil {
		switch {
		case errors.Is(err, users.ErrInvalidCredentials):
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Invalid email or password")
		case errors.Is(err, ErrNotAdmin):
			respond.Error(c, http.StatusForbidden, "forbidden", "Unauthorized. Only admin are allowed to log in.")
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to log in")
		}
		return
	}

	respond.OK(c, gin.H{
		"access_token":  pair.Access,
		"refresh_token": pair.Refresh,
		"user":          users.ToResponse(u),
	})
}

func (h *Handler) listUsers(c *gin.Context) {
	list, err := h.Svc.ListUsers(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list users")
		return
	}
	out := make([]userSummaryResponse, 0, len(list))
	for _, s := range list {
		out = append(out, userSummaryResponse{UserResponse: users.ToResponse(s.User), TotalResumes: s.TotalResumes})
	}
	respond.OK(c, gin.H{"users": out})
}

func (h *Handler) listResumes(c *gin.Context) {
	list, err := h.Svc.ListResumes(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list resumes")
		return
	}
	respond.OK(c, gin.H{"resumes": resumes.ToViews(list)})
}

func (h *Handler) listLoginLogs(c *gin.Context) {
	logs, err := h.Svc.ListLoginLogs(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list login logs")
		return
	}
	out := make([]users.LoginLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, users.ToLoginLogResponse(l))
	}
	respond.OK(c, gin.H{"login_logs": out})
}

func (h *Handler) deleteUser(c *gin.Context) {
	err := h.Svc.DeleteUser(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "User not found.")
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete user")
		return
	}
	respond.OK(c, gin.H{"message": "User and resumes deleted successfully."})
}
