package users

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvpro-backend/internal/shared/server/middleware"
	"cvpro-backend/internal/shared/server/respond"
)

// Handler wires account HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches account routes. requireAuth guards /me and
// resetLimit runs ahead of the password reset endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc, resetLimit ...gin.HandlerFunc) {
	reset := func(next gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, resetLimit...), next)
	}

	rg.POST("/register/", h.register)
	rg.POST("/login/", h.login)
	rg.POST("/token/refresh/", h.refresh)
	rg.POST("/token/verify/", h.verify)
	rg.POST("/forgot-password/", reset(h.forgotPassword)...)
	rg.POST("/verify-otp/", reset(h.verifyOTP)...)
	rg.POST("/reset-password/", reset(h.resetPassword)...)
	rg.POST("/contact-us/", h.contact)
	rg.GET("/me", requireAuth, h.me)
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

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type verifyRequest struct {
	Token string `json:"token" binding:"required"`
}

type forgotRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type otpRequest struct {
	Email string `json:"email" binding:"required,email"`
	Token string `json:"token" binding:"required,len=6"`
}

type resetRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Token       string `json:"token" binding:"required,len=6"`
	NewPassword string `json:"new_password" binding:"required"`
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// ClientInfoFrom extracts caller details for the login log.
func ClientInfoFrom(c *gin.Context) ClientInfo {
	return ClientInfo{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

// WriteValidation writes a 400 for a validation failure and reports whether
// err was one.
func WriteValidation(c *gin.Context, err error) bool {
	var verr *ValidationError
	if errors.As(err, &verr) {
		respond.Error(c, http.StatusBadRequest, "validation_error", verr.Message)
		return true
	}
	return false
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}

	u, err := h.Svc.Register(c.Request.Context(), RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Location:  req.Location,
	})
	if err != nil {
		switch {
		case WriteValidation(c, err):
		case errors.Is(err, ErrEmailTaken):
			respond.Error(c, http.StatusBadRequest, "conflict", "A user with this email already exists.")
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to register user")
		}
		return
	}

	respond.JSON(c, http.StatusCreated, gin.H{
		"message":  "User registered successfully.",
		"username": u.Username,
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Email and password are required.")
		return
	}

	pair, u, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password, ClientInfoFrom(c))
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Invalid email or password")
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to log in")
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{
		"access_token":  pair.Access,
		"refresh_token": pair.Refresh,
		"user":          ToResponse(u),
	})
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "refresh token is required")
		return
	}
	access, err := h.Svc.Refresh(req.Refresh)
	if err != nil {
		respond.Error(c, http.StatusUnauthorized, "token_not_valid", "Token is invalid or expired")
		return
	}
	respond.OK(c, gin.H{"access": access})
}

func (h *Handler) verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "token is required")
		return
	}
	if err := h.Svc.VerifyToken(req.Token); err != nil {
		respond.Error(c, http.StatusUnauthorized, "token_not_valid", "Token is invalid or expired")
		return
	}
	respond.OK(c, gin.H{})
}

func (h *Handler) forgotPassword(c *gin.Context) {
	var req forgotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Enter a valid email address.")
		return
	}
	if err := h.Svc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "Invalid email. No user found.")
		case errors.Is(err, ErrMailFailed):
			respond.Error(c, http.StatusInternalServerError, "mail_failed", "Failed to send reset email.")
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start password reset")
		}
		return
	}
	respond.OK(c, gin.H{"message": "Password reset token sent to your email."})
}

// writeResetError maps reset-code failures to responses.
func writeResetError(c *gin.Context, err error, noCodeMsg string) {
	switch {
	case WriteValidation(c, err):
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "User not found.")
	case errors.Is(err, ErrNoResetCode):
		respond.Error(c, http.StatusBadRequest, "validation_error", noCodeMsg)
	case errors.Is(err, ErrInvalidCode):
		respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid token.")
	case errors.Is(err, ErrCodeExpired):
		respond.Error(c, http.StatusBadRequest, "validation_error", "Token has expired. Please request a new one.")
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to verify token")
	}
}

func (h *Handler) verifyOTP(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "email and a 6-digit token are required")
		return
	}
	if err := h.Svc.VerifyResetCode(c.Request.Context(), req.Email, req.Token); err != nil {
		writeResetError(c, err, "No token found. Please request a new one.")
		return
	}
	respond.OK(c, gin.H{"message": "Token verified successfully. You can now reset your password."})
}

func (h *Handler) resetPassword(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "email, a 6-digit token and new_password are required")
		return
	}
	if err := h.Svc.ResetPassword(c.Request.Context(), req.Email, req.Token, req.NewPassword); err != nil {
		writeResetError(c, err, "No valid reset token found. Please request a new one.")
		return
	}
	respond.OK(c, gin.H{"message": "Password reset successfully."})
}

func (h *Handler) contact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	_, err := h.Svc.Contact(c.Request.Context(), ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		switch {
		case WriteValidation(c, err):
		case errors.Is(err, ErrMailFailed):
			respond.Error(c, http.StatusInternalServerError, "mail_failed", "Your message was saved but email notification failed.")
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to save message")
		}
		return
	}
	respond.JSON(c, http.StatusCreated, gin.H{"message": "Your message has been sent successfully!"})
}

func (h *Handler) me(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	u, err := h.Svc.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "user not found")
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load user")
		return
	}
	respond.OK(c, ToResponse(u))
}
