package moderation

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modsentry/modsentry/internal/validation"
)

// Handler exposes the moderation pipeline over HTTP.
type Handler struct {
	service *Service
}

// NewHandler creates a moderation handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up the pipeline endpoint.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/moderate", h.Moderate)
}

// ModerateRequest is the wire shape for the full pipeline. Analysis is
// the raw classifier payload and may be missing or malformed; it is
// validated at the classifier boundary.
type ModerateRequest struct {
	GroupID  int64          `json:"groupId" binding:"required"`
	UserID   int64          `json:"userId" binding:"required"`
	Username string         `json:"username"`
	Text     string         `json:"text"`
	Analysis map[string]any `json:"analysis"`

	RecentUserMessages int `json:"recentUserMessages"`
	TimeWindowSeconds  int `json:"timeWindowSeconds"`
}

// Moderate runs the full pipeline for one message.
// POST /v1/moderate
func (h *Handler) Moderate(c *gin.Context) {
	var req ModerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "groupId and userId are required",
		})
		return
	}
	if errs := validation.Validate(
		validation.PositiveID("groupId", req.GroupID),
		validation.PositiveID("userId", req.UserID),
		validation.MaxLength("text", req.Text, validation.MaxMessageLength),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": errs.Error(),
		})
		return
	}

	result := h.service.Moderate(c.Request.Context(), Message{
		GroupID:            req.GroupID,
		UserID:             req.UserID,
		Username:           validation.SanitizeString(req.Username, 64),
		Text:               validation.SanitizeString(req.Text, validation.MaxMessageLength),
		RecentUserMessages: req.RecentUserMessages,
		TimeWindowSeconds:  req.TimeWindowSeconds,
	}, req.Analysis)

	c.JSON(http.StatusOK, result)
}
