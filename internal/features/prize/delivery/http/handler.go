package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"loyalty-promo-backend/internal/common/middleware"
	participantmodels "loyalty-promo-backend/internal/features/participant/models"
	participantservice "loyalty-promo-backend/internal/features/participant/service"
	"loyalty-promo-backend/internal/features/prize/models"
	"loyalty-promo-backend/internal/features/prize/service"
)

type PrizeHandler struct {
	service      service.PrizeService
	participants participantservice.ParticipantService
}

func NewPrizeHandler(svc service.PrizeService, participants participantservice.ParticipantService) *PrizeHandler {
	return &PrizeHandler{service: svc, participants: participants}
}

func (h *PrizeHandler) RegisterRoutes(staff *gin.RouterGroup, admin *gin.RouterGroup) {
	prizes := staff.Group("/prizes")
	{
		prizes.GET("", h.list)
		prizes.GET("/:id", h.get)
		prizes.POST("/:id/redeem", h.redeem)
	}

	managed := admin.Group("/prizes")
	{
		managed.POST("", h.create)
		managed.PATCH("/:id", h.update)
		managed.DELETE("/:id", h.delete)
	}
}

func (h *PrizeHandler) RegisterPublicRoutes(public *gin.RouterGroup) {
	public.GET("/prizes", h.listActive)
}

func prizeID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid prize id"})
		return 0, false
	}
	return id, true
}

func (h *PrizeHandler) create(c *gin.Context) {
	var req models.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid prize data"})
		return
	}

	prize, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCost) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create prize"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"prize": prize})
}

func (h *PrizeHandler) update(c *gin.Context) {
	id, ok := prizeID(c)
	if !ok {
		return
	}

	var req models.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid prize data"})
		return
	}

	prize, err := h.service.Update(c.Request.Context(), id, req)
	switch {
	case errors.Is(err, models.ErrPrizeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidCost):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update prize"})
	default:
		c.JSON(http.StatusOK, gin.H{"prize": prize})
	}
}

func (h *PrizeHandler) delete(c *gin.Context) {
	id, ok := prizeID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, models.ErrPrizeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete prize"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Prize deleted"})
}

func (h *PrizeHandler) get(c *gin.Context) {
	id, ok := prizeID(c)
	if !ok {
		return
	}

	prize, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch prize"})
		return
	}
	if prize == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Prize not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prize": prize})
}

func (h *PrizeHandler) list(c *gin.Context) {
	prizes, err := h.service.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch prizes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prizes": prizes})
}

func (h *PrizeHandler) listActive(c *gin.Context) {
	prizes, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch prizes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prizes": prizes})
}

type redeemRequest struct {
	UniqueID string `json:"uniqueId" binding:"required"`
}

func (h *PrizeHandler) redeem(c *gin.Context) {
	id, ok := prizeID(c)
	if !ok {
		return
	}

	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Participant unique id is required"})
		return
	}

	ctx := c.Request.Context()
	participant, err := h.participants.GetByUniqueID(ctx, req.UniqueID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch participant"})
		return
	}
	if participant == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Participant not found"})
		return
	}

	claims := middleware.Claims(c)
	err = h.service.Redeem(ctx, participant.ID, id, claims.UserID)
	switch {
	case errors.Is(err, models.ErrPrizeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, participantmodels.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, participantmodels.ErrLocked),
		errors.Is(err, models.ErrPrizeInactive),
		errors.Is(err, models.ErrInsufficientPoints),
		errors.Is(err, models.ErrOutOfStock):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Redemption failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Prize redeemed successfully"})
	}
}
