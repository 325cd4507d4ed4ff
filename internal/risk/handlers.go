package risk

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/modsentry/modsentry/internal/classifier"
	"github.com/modsentry/modsentry/internal/pagination"
	"github.com/modsentry/modsentry/internal/validation"
)

// Handler provides HTTP endpoints for direct risk scoring.
type Handler struct {
	engine       *Engine
	store        Store
	trustDefault float64
}

// NewHandler creates a risk scoring handler.
func NewHandler(engine *Engine, store Store) *Handler {
	return &Handler{engine: engine, store: store, trustDefault: 50}
}

// WithTrustDefault sets the trust score assumed when a request omits one.
// Wired to the trust engine's configured initial score.
func (h *Handler) WithTrustDefault(score float64) *Handler {
	h.trustDefault = score
	return h
}

// RegisterRoutes sets up risk endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/risk/assess", h.Assess)
	r.GET("/risk/:group/:user", h.ListAssessments)
}

// AssessRequest is the wire shape for a direct scoring call. Analysis is
// the raw classifier payload; it is validated at the classifier boundary,
// so any shape is accepted.
type AssessRequest struct {
	Text     string         `json:"text"`
	GroupID  int64          `json:"groupId" binding:"required"`
	UserID   int64          `json:"userId" binding:"required"`
	Analysis map[string]any `json:"analysis"`

	Violations24h   int      `json:"violations24h"`
	Violations7d    int      `json:"violations7d"`
	TotalViolations int      `json:"totalViolations"`
	TrustScore      *float64 `json:"trustScore"`

	RecentUserMessages int `json:"recentUserMessages"`
	TimeWindowSeconds  int `json:"timeWindowSeconds"`
}

// Assess scores a message without touching trust or violation state.
// POST /v1/risk/assess
func (h *Handler) Assess(c *gin.Context) {
	var req AssessRequest
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

	trust := h.trustDefault
	if req.TrustScore != nil {
		trust = *req.TrustScore
	}

	a := h.engine.Assess(c.Request.Context(), Input{
		Text:     req.Text,
		GroupID:  req.GroupID,
		UserID:   req.UserID,
		Analysis: classifier.Parse(req.Analysis),
		History: UserHistory{
			Violations24h:   req.Violations24h,
			Violations7d:    req.Violations7d,
			TotalViolations: req.TotalViolations,
			TrustScore:      trust,
		},
		Context: MessageContext{
			RecentUserMessages: req.RecentUserMessages,
			TimeWindowSeconds:  req.TimeWindowSeconds,
		},
	})

	c.JSON(http.StatusOK, gin.H{"assessment": a})
}

// ListAssessments returns the most recent assessments for a user in a group.
// GET /v1/risk/:group/:user?limit=20
func (h *Handler) ListAssessments(c *gin.Context) {
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

	if h.store == nil {
		c.JSON(http.StatusOK, gin.H{"assessments": []*Assessment{}})
		return
	}

	assessments, err := h.store.ListByUser(c.Request.Context(), groupID, userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "storage_error",
			"message": "Failed to list assessments",
		})
		return
	}
	if assessments == nil {
		assessments = []*Assessment{}
	}
	c.JSON(http.StatusOK, gin.H{"assessments": assessments})
}
