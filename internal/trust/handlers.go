package trust

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/modsentry/modsentry/internal/logging"
	"github.com/modsentry/modsentry/internal/validation"
)

// Handler provides HTTP endpoints for trust scores.
type Handler struct {
	engine *Engine
}

// NewHandler creates a trust handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes sets up trust endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/trust/:group/:user", h.GetScore)
	r.POST("/trust/update", h.ApplyUpdate)
	r.GET("/trust/:group/:user/decay", h.PreviewDecay)
}

// GetScore returns the current score and derived restrictions.
// GET /v1/trust/:group/:user
func (h *Handler) GetScore(c *gin.Context) {
	groupID, userID, ok := pathIDs(c)
	if !ok {
		return
	}

	score, restrictions, err := h.engine.Current(c.Request.Context(), groupID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "storage_error",
			"message": "Failed to read trust score",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"groupId":      groupID,
		"userId":       userID,
		"score":        score,
		"restrictions": restrictions,
	})
}

// UpdateRequest is the wire shape for applying a behavioral outcome.
type UpdateRequest struct {
	GroupID  int64      `json:"groupId" binding:"required"`
	UserID   int64      `json:"userId" binding:"required"`
	Action   ActionType `json:"action" binding:"required"`
	Severity Severity   `json:"severity"`
}

// ApplyUpdate applies a behavioral outcome to a member's score.
// POST /v1/trust/update
func (h *Handler) ApplyUpdate(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "groupId, userId and action are required",
		})
		return
	}
	if errs := validation.Validate(
		validation.PositiveID("groupId", req.GroupID),
		validation.PositiveID("userId", req.UserID),
		validation.Required("action", string(req.Action)),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": errs.Error(),
		})
		return
	}

	switch req.Action {
	case ActionPositive, ActionViolation, ActionMute, ActionBanAttempt:
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_action",
			"message": "action must be one of positive_interaction, violation, mute, ban_attempt",
		})
		return
	}

	update, err := h.engine.Apply(c.Request.Context(), req.GroupID, req.UserID, req.Action, req.Severity)
	if err != nil {
		// The calculation succeeded; only the write failed. Surface the
		// computed update so the caller can retry without losing it.
		logging.L(c.Request.Context()).Warn("trust write failed",
			"group_id", req.GroupID, "user_id", req.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "storage_error",
			"message": "Trust update computed but not persisted",
			"update":  update,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"update": update})
}

// PreviewDecay reports what the score would decay to after N inactive days.
// GET /v1/trust/:group/:user/decay?days=30
func (h *Handler) PreviewDecay(c *gin.Context) {
	groupID, userID, ok := pathIDs(c)
	if !ok {
		return
	}

	days, err := strconv.Atoi(c.DefaultQuery("days", "0"))
	if err != nil || days < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "days must be a non-negative integer",
		})
		return
	}

	score, _, err := h.engine.Current(c.Request.Context(), groupID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "storage_error",
			"message": "Failed to read trust score",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"groupId":      groupID,
		"userId":       userID,
		"score":        score,
		"daysInactive": days,
		"decayedScore": h.engine.Decay(score, days),
	})
}

func pathIDs(c *gin.Context) (int64, int64, bool) {
	groupID, err1 := strconv.ParseInt(c.Param("group"), 10, 64)
	userID, err2 := strconv.ParseInt(c.Param("user"), 10, 64)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "group and user must be numeric ids",
		})
		return 0, 0, false
	}
	return groupID, userID, true
}
