package violations

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/modsentry/modsentry/internal/pagination"
)

// Handler provides HTTP read access to violation history.
type Handler struct {
	store Store
}

// NewHandler creates a violations handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up violation endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/violations/:group/:user", h.History)
}

// History returns a user's violation counts and recent records.
// GET /v1/violations/:group/:user?limit=20
func (h *Handler) History(c *gin.Context) {
	groupID, err1 := strconv.ParseInt(c.Param("group"), 10, 64)
	userID, err2 := strconv.ParseInt(c.Param("user"), 10, 64)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "group and user must be numeric ids",
		})
		return
	}

	limit := pagination.Limit(c, 20)

	counts, err := h.store.CountsFor(c.Request.Context(), groupID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "storage_error",
			"message": "Failed to count violations",
		})
		return
	}

	recent, err := h.store.ListByUser(c.Request.Context(), groupID, userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "storage_error",
			"message": "Failed to list violations",
		})
		return
	}
	if recent == nil {
		recent = []*Violation{}
	}

	c.JSON(http.StatusOK, gin.H{
		"groupId": groupID,
		"userId":  userID,
		"counts":  counts,
		"recent":  recent,
	})
}
