package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentaudit/internal/api/handlers"
	"rentaudit/internal/models"
	"rentaudit/internal/services"
)

func setupAuthEngine(svc services.IAdminService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handlers.NewAuthHandler(svc)
	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.GET("/auth/verify", withAdmin, h.Verify)
	return r
}

func TestAuthHandler_Login(t *testing.T) {
	svc := new(MockAdminService)
	r := setupAuthEngine(svc)
	svc.On("Login", mock.Anything, "admin@example.com", "pw").Return("tok", testAdmin, nil)

	code, env := do(t, r, http.MethodPost, "/auth/login", `{"email":"admin@example.com","password":"pw"}`)

	assert.Equal(t, http.StatusOK, code)
	var got struct {
		Token string           `json:"token"`
		User  models.Principal `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "tok", got.Token)
	assert.Equal(t, testAdmin, got.User)
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	svc := new(MockAdminService)
	r := setupAuthEngine(svc)
	svc.On("Login", mock.Anything, "admin@example.com", "bad").Return("", models.Principal{}, services.ErrInvalidCredentials)

	code, env := do(t, r, http.MethodPost, "/auth/login", `{"email":"admin@example.com","password":"bad"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid credentials", env.Error)
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	svc := new(MockAdminService)
	r := setupAuthEngine(svc)
	svc.On("Login", mock.Anything, "", "").Return("", models.Principal{}, &services.ValidationError{Message: "Email and password are required"})

	code, env := do(t, r, http.MethodPost, "/auth/login", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Email and password are required", env.Error)
}

func TestAuthHandler_Verify(t *testing.T) {
	r := setupAuthEngine(new(MockAdminService))

	code, env := do(t, r, http.MethodGet, "/auth/verify", "")
	assert.Equal(t, http.StatusOK, code)

	var got struct {
		User models.Principal `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, testAdmin, got.User)
}
