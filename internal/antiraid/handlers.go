package antiraid

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/modsentry/modsentry/internal/pagination"
	"github.com/modsentry/modsentry/internal/validation"
)

// Handler provides HTTP endpoints for raid tracking.
type Handler struct {
	system *System
	store  Store
}

// NewHandler creates an anti-raid handler.
func NewHandler(system *System, store Store) *Handler {
	return &Handler{system: system, store: store}
}

// RegisterRoutes sets up anti-raid endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/raid/join", h.RecordJoin)
	r.GET("/raid/:group", h.GroupStatus)
	r.POST("/raid/:group/deactivate", h.Deactivate)
}

// JoinRequest is the wire shape for reporting a group join.
type JoinRequest struct {
	GroupID          int64      `json:"groupId" binding:"required"`
	UserID           int64      `json:"userId" binding:"required"`
	Username         string     `json:"username"`
	AccountCreatedAt *time.Time `json:"accountCreatedAt"`
}

// RecordJoin reports a join event and returns the detection verdict.
// POST /v1/raid/join
func (h *Handler) RecordJoin(c *gin.Context) {
	var req JoinRequest
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
		validation.MaxLength("username", req.Username, 64),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": errs.Error(),
		})
		return
	}

	username := validation.SanitizeString(req.Username, 64)
	det := h.system.RecordJoin(c.Request.Context(), req.GroupID, req.UserID, username, req.AccountCreatedAt)

	c.JSON(http.StatusOK, gin.H{
		"detection":  det,
		"raidActive": h.system.IsActive(req.GroupID),
	})
}

// GroupStatus returns the group's protection state and recent raid events.
// GET /v1/raid/:group?limit=10
func (h *Handler) GroupStatus(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("group"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "group must be a numeric id",
		})
		return
	}

	limit := pagination.Limit(c, 10)

	resp := gin.H{"groupId": groupID, "active": false}
	if status, ok := h.system.Status(groupID); ok {
		resp["active"] = status.Active
		resp["status"] = status
	}

	if h.store != nil {
		events, err := h.store.ListByGroup(c.Request.Context(), groupID, limit)
		if err == nil {
			if events == nil {
				events = []*Event{}
			}
			resp["recentEvents"] = events
		}
	}

	c.JSON(http.StatusOK, resp)
}

// Deactivate ends raid protection for a group.
// POST /v1/raid/:group/deactivate
func (h *Handler) Deactivate(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("group"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "group must be a numeric id",
		})
		return
	}

	cleared := h.system.Deactivate(groupID)
	c.JSON(http.StatusOK, gin.H{
		"groupId": groupID,
		"cleared": cleared,
	})
}
