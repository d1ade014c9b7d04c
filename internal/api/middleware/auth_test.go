package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentaudit/internal/auth"
	"rentaudit/internal/models"
	"rentaudit/internal/utils"
)

const testSecret = "test-secret"

func setupAuthEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", AuthMiddleware(testSecret), AdminMiddleware(), func(c *gin.Context) {
		p, _ := GetPrincipal(c)
		c.JSON(http.StatusOK, p)
	})
	return r
}

func doAuth(router *gin.Engine, header string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/private", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	p := models.Principal{ID: utils.NewSixID(), Email: "admin@example.com", Name: "Admin", Role: models.RoleAdmin}
	token, err := auth.GenerateJWT(p, testSecret, time.Hour)
	require.NoError(t, err)

	w := doAuth(setupAuthEngine(), "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Principal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, p, got)
}

func TestAuthMiddleware_MissingAndInvalidLookAlike(t *testing.T) {
	router := setupAuthEngine()
	other, err := auth.GenerateJWT(models.Principal{ID: utils.NewSixID(), Role: models.RoleAdmin}, "other-secret", time.Hour)
	require.NoError(t, err)

	var bodies []string
	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer not-a-jwt", "Bearer " + other} {
		w := doAuth(router, header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		bodies = append(bodies, w.Body.String())
	}
	for _, b := range bodies[1:] {
		assert.Equal(t, bodies[0], b)
	}
	assert.JSONEq(t, `{"success":false,"error":"Unauthorized"}`, bodies[0])
}

func TestAdminMiddleware_RejectsNonAdmin(t *testing.T) {
	token, err := auth.GenerateJWT(models.Principal{ID: utils.NewSixID(), Role: "viewer"}, testSecret, time.Hour)
	require.NoError(t, err)

	w := doAuth(setupAuthEngine(), "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware("https://dash.example.com"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodOptions, "/x", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://dash.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "X-C-T", w.Header().Get("Access-Control-Expose-Headers"))
}
