package moderation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModerateEndpoint(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.POST("/moderate", h.Moderate)

	body := `{"groupId":100,"userId":7,"text":"hello","analysis":{"spam":0.05}}`
	req := httptest.NewRequest("POST", "/moderate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"decision":"allow"`)
	assert.Contains(t, w.Body.String(), `"trustUpdate"`)
}

func TestModerateEndpointRejectsNegativeIDs(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.POST("/moderate", h.Moderate)

	body := `{"groupId":-100,"userId":7,"text":"hello"}`
	req := httptest.NewRequest("POST", "/moderate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "groupId")
}

func TestModerateEndpointRequiresIDs(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.POST("/moderate", h.Moderate)

	req := httptest.NewRequest("POST", "/moderate", strings.NewReader(`{"text":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
