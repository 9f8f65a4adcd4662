package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"loyalty-promo-backend/internal/features/txlog/models"
	"loyalty-promo-backend/internal/features/txlog/repository"
)

type LogHandler struct {
	reader repository.Reader
}

func NewLogHandler(reader repository.Reader) *LogHandler {
	return &LogHandler{reader: reader}
}

func (h *LogHandler) RegisterRoutes(staff *gin.RouterGroup) {
	staff.GET("/logs", h.query)
}

func (h *LogHandler) query(c *gin.Context) {
	filters := models.Filters{
		Type: models.Type(c.Query("type")),
	}
	if v, err := strconv.ParseInt(c.Query("participantId"), 10, 64); err == nil {
		filters.ParticipantID = v
	}
	if v, err := strconv.ParseInt(c.Query("staffId"), 10, 64); err == nil {
		filters.StaffID = v
	}
	if v, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		filters.From = v
	}
	if v, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		filters.To = v
	}

	limit := 50
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		offset = v
	}

	entries, err := h.reader.Query(c.Request.Context(), filters, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": entries})
}
