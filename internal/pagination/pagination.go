// Package pagination provides shared query helpers for list endpoints.
package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// MaxLimit caps any list response. History and audit endpoints serve
// recent-N views for the enforcement layer, not full exports.
const MaxLimit = 100

// Limit parses the ?limit query parameter, falling back to def for
// missing or malformed values and clamping the result to [1, MaxLimit].
func Limit(c *gin.Context, def int) int {
	l, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || l < 1 {
		return def
	}
	if l > MaxLimit {
		return MaxLimit
	}
	return l
}
