package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"loyalty-promo-backend/internal/common/middleware"
	"loyalty-promo-backend/internal/features/staff/models"
	"loyalty-promo-backend/internal/features/staff/service"
)

type StaffHandler struct {
	service service.StaffService
}

func NewStaffHandler(service service.StaffService) *StaffHandler {
	return &StaffHandler{service: service}
}

func (h *StaffHandler) RegisterAuthRoutes(router *gin.RouterGroup, authed *gin.RouterGroup, loginLimit gin.HandlerFunc) {
	router.POST("/auth/login", loginLimit, h.login)
	authed.POST("/auth/logout", h.logout)
	authed.GET("/auth/me", h.me)
}

func (h *StaffHandler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	staff := admin.Group("/staff")
	{
		staff.GET("", h.list)
		staff.POST("", h.create)
		staff.POST("/verify-email/send", h.sendEmailVerification)
		staff.POST("/verify-email/confirm", h.confirmEmailVerification)
		staff.POST("/:id/reset-password", h.resetPassword)
		staff.PUT("/:id/status", h.setStatus)
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *StaffHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	signed, user, err := h.service.Authenticate(c.Request.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, models.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, models.ErrAccountDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"token": signed, "user": user})
	}
}

func (h *StaffHandler) logout(c *gin.Context) {
	claims := middleware.Claims(c)
	if err := h.service.Logout(c.Request.Context(), claims.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *StaffHandler) me(c *gin.Context) {
	claims := middleware.Claims(c)
	user, err := h.service.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *StaffHandler) list(c *gin.Context) {
	users, err := h.service.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch staff"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"staff": users})
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *StaffHandler) sendEmailVerification(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A valid email is required"})
		return
	}

	err := h.service.SendEmailVerification(c.Request.Context(), req.Email)
	switch {
	case errors.Is(err, models.ErrEmailExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send verification code"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Verification code sent"})
	}
}

type confirmEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6"`
}

func (h *StaffHandler) confirmEmailVerification(c *gin.Context) {
	var req confirmEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and 6-digit code are required"})
		return
	}

	err := h.service.VerifyEmail(c.Request.Context(), req.Email, req.Code)
	switch {
	case errors.Is(err, models.ErrVerificationMissing),
		errors.Is(err, models.ErrVerificationExpired),
		errors.Is(err, models.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrTooManyAttempts):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Verification failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Email verified"})
	}
}

type createStaffRequest struct {
	FirstName string      `json:"firstName" binding:"required,max=100"`
	LastName  string      `json:"lastName" binding:"required,max=100"`
	Email     string      `json:"email" binding:"required,email"`
	Role      models.Role `json:"role" binding:"required,oneof=SUPER_ADMIN STAFF"`
}

func (h *StaffHandler) create(c *gin.Context) {
	var req createStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid staff data"})
		return
	}

	claims := middleware.Claims(c)
	created, err := h.service.Create(c.Request.Context(), req.FirstName, req.LastName, req.Email, req.Role, claims.UserID)
	switch {
	case errors.Is(err, models.ErrEmailNotVerified):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrEmailExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create staff"})
	default:
		c.JSON(http.StatusCreated, gin.H{"staff": created})
	}
}

func (h *StaffHandler) resetPassword(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid staff id"})
		return
	}

	claims := middleware.Claims(c)
	err = h.service.ResetPassword(c.Request.Context(), id, claims.UserID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Password reset, new credentials sent"})
	}
}

type setStatusRequest struct {
	Status models.Status `json:"status" binding:"required,oneof=ACTIVE DISABLED"`
}

func (h *StaffHandler) setStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid staff id"})
		return
	}

	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status must be ACTIVE or DISABLED"})
		return
	}

	claims := middleware.Claims(c)
	updated, err := h.service.SetStatus(c.Request.Context(), id, req.Status, claims.UserID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
	default:
		c.JSON(http.StatusOK, gin.H{"staff": updated})
	}
}
