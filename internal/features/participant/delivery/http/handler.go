package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"loyalty-promo-backend/internal/common/middleware"
	"loyalty-promo-backend/internal/features/participant/models"
	"loyalty-promo-backend/internal/features/participant/service"
	verifmodels "loyalty-promo-backend/internal/features/verification/models"
	verifservice "loyalty-promo-backend/internal/features/verification/service"
)

type ParticipantHandler struct {
	service      service.ParticipantService
	verification verifservice.VerificationService
}

func NewParticipantHandler(svc service.ParticipantService, verification verifservice.VerificationService) *ParticipantHandler {
	return &ParticipantHandler{service: svc, verification: verification}
}

func (h *ParticipantHandler) RegisterRoutes(staff *gin.RouterGroup, admin *gin.RouterGroup) {
	participants := staff.Group("/participants")
	{
		participants.POST("/register/start", h.startRegistration)
		participants.POST("/register/verify-phone", h.verifyPhone)
		participants.POST("/register/verify-email", h.verifyEmail)
		participants.POST("/register/resend-otp", h.resendOTP)
		participants.POST("/register/complete", h.completeRegistration)

		participants.GET("", h.list)
		participants.GET("/search", h.search)
		participants.GET("/leaderboard", h.leaderboard)
		participants.GET("/:uniqueId", h.get)
		participants.POST("/:uniqueId/add-points", h.addPoints)
	}

	locked := admin.Group("/participants")
	{
		locked.POST("/:uniqueId/lock", h.lock)
		locked.POST("/:uniqueId/unlock", h.unlock)
	}
}

func (h *ParticipantHandler) RegisterPublicRoutes(public *gin.RouterGroup) {
	public.GET("/leaderboard", h.publicLeaderboard)
	public.GET("/leaderboard/:uniqueId", h.publicRank)
}

// verificationError maps OTP-flow failures onto client statuses; the
// session id stays opaque and internals stay out of the body.
func verificationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, verifmodels.ErrSessionNotFound),
		errors.Is(err, verifmodels.ErrInvalidCode),
		errors.Is(err, verifmodels.ErrInvalidTransition),
		errors.Is(err, verifmodels.ErrNotComplete):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, verifmodels.ErrTooManyAttempts),
		errors.Is(err, verifmodels.ErrResendCooldown):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Verification failed"})
	}
}

func conflictError(c *gin.Context, err error) bool {
	if errors.Is(err, models.ErrPhoneExists) ||
		errors.Is(err, models.ErrEmailExists) ||
		errors.Is(err, models.ErrGovIDExists) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return true
	}
	return false
}

func (h *ParticipantHandler) startRegistration(c *gin.Context) {
	var req models.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid registration data"})
		return
	}

	ctx := c.Request.Context()
	if err := h.service.CheckUnique(ctx, req); err != nil {
		if conflictError(c, err) {
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start registration"})
		return
	}

	sessionID, err := h.verification.Start(ctx, req.Phone, req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start registration"})
		return
	}

	if err := h.verification.SendPhoneCode(ctx, sessionID); err != nil {
		verificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Registration started. Phone verification code sent.",
		"sessionId": sessionID,
		"nextStep":  "verify-phone",
	})
}

type verifyCodeRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Code      string `json:"code" binding:"required,len=6"`
}

func (h *ParticipantHandler) verifyPhone(c *gin.Context) {
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session id and 6-digit code are required"})
		return
	}

	ctx := c.Request.Context()
	if err := h.verification.VerifyPhoneCode(ctx, req.SessionID, req.Code); err != nil {
		verificationError(c, err)
		return
	}

	if err := h.verification.SendEmailCode(ctx, req.SessionID); err != nil {
		verificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Phone verified. Email verification code sent.",
		"sessionId": req.SessionID,
		"nextStep":  "verify-email",
	})
}

func (h *ParticipantHandler) verifyEmail(c *gin.Context) {
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session id and 6-digit code are required"})
		return
	}

	if err := h.verification.VerifyEmailCode(c.Request.Context(), req.SessionID, req.Code); err != nil {
		verificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Email verified successfully.",
		"sessionId": req.SessionID,
		"nextStep":  "complete-registration",
	})
}

type resendOTPRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Type      string `json:"type" binding:"required,oneof=phone email"`
}

func (h *ParticipantHandler) resendOTP(c *gin.Context) {
	var req resendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session id and channel type are required"})
		return
	}

	ctx := c.Request.Context()
	var err error
	if req.Type == "phone" {
		err = h.verification.SendPhoneCode(ctx, req.SessionID)
	} else {
		err = h.verification.SendEmailCode(ctx, req.SessionID)
	}
	if err != nil {
		verificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Code resent"})
}

type completeRegistrationRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	models.RegisterInput
}

func (h *ParticipantHandler) completeRegistration(c *gin.Context) {
	var req completeRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid registration data"})
		return
	}

	claims := middleware.Claims(c)
	created, err := h.service.Register(c.Request.Context(), req.SessionID, req.RegisterInput, claims.UserID)
	if err != nil {
		if conflictError(c, err) {
			return
		}
		if errors.Is(err, models.ErrSessionMismatch) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		verificationError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Participant registered successfully. Unique ID sent to phone and email.",
		"participant": created,
	})
}

func (h *ParticipantHandler) list(c *gin.Context) {
	limit, offset := pagination(c, 100)
	participants, err := h.service.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch participants"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

func (h *ParticipantHandler) search(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search query is required"})
		return
	}

	participants, err := h.service.Search(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

func (h *ParticipantHandler) get(c *gin.Context) {
	participant, err := h.service.GetByUniqueID(c.Request.Context(), c.Param("uniqueId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch participant"})
		return
	}
	if participant == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Participant not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"participant": participant})
}

type addPointsRequest struct {
	Points int    `json:"points" binding:"required,min=1"`
	Note   string `json:"note"`
}

func (h *ParticipantHandler) addPoints(c *gin.Context) {
	var req addPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Points must be a positive amount"})
		return
	}

	ctx := c.Request.Context()
	participant, err := h.service.GetByUniqueID(ctx, c.Param("uniqueId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch participant"})
		return
	}
	if participant == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Participant not found"})
		return
	}

	claims := middleware.Claims(c)
	updated, err := h.service.AddPoints(ctx, participant.ID, req.Points, claims.UserID, req.Note)
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrLocked), errors.Is(err, models.ErrInvalidPoints):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add points"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Points added successfully", "participant": updated})
	}
}

type lockRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *ParticipantHandler) lock(c *gin.Context) {
	var req lockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A lock reason is required"})
		return
	}
	h.setLockState(c, true, req.Reason)
}

func (h *ParticipantHandler) unlock(c *gin.Context) {
	h.setLockState(c, false, "")
}

func (h *ParticipantHandler) setLockState(c *gin.Context, lock bool, reason string) {
	ctx := c.Request.Context()
	participant, err := h.service.GetByUniqueID(ctx, c.Param("uniqueId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch participant"})
		return
	}
	if participant == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Participant not found"})
		return
	}

	claims := middleware.Claims(c)
	if lock {
		err = h.service.Lock(ctx, participant.ID, claims.UserID, reason)
	} else {
		err = h.service.Unlock(ctx, participant.ID, claims.UserID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update participant status"})
		return
	}

	message := "Participant locked"
	if !lock {
		message = "Participant unlocked"
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

func (h *ParticipantHandler) leaderboard(c *gin.Context) {
	limit, offset := pagination(c, 100)
	entries, err := h.service.Leaderboard(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch leaderboard"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

func (h *ParticipantHandler) publicLeaderboard(c *gin.Context) {
	limit, _ := pagination(c, 100)
	entries, err := h.service.Leaderboard(c.Request.Context(), limit, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch leaderboard"})
		return
	}

	// Names and balances stay private on the public surface.
	public := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		public = append(public, gin.H{
			"rank":        e.Rank,
			"uniqueId":    e.UniqueID,
			"totalPoints": e.TotalPoints,
		})
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": public})
}

func (h *ParticipantHandler) publicRank(c *gin.Context) {
	entry, err := h.service.PublicRank(c.Request.Context(), c.Param("uniqueId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lookup failed"})
		return
	}
	if entry == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Participant not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

func pagination(c *gin.Context, defaultLimit int) (int, int) {
	limit := defaultLimit
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
