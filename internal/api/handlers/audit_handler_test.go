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

func setupAuditEngine(svc services.IAuditService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/audit-logs", withAdmin, handlers.NewAuditHandler(svc).List)
	return r
}

func TestAuditHandler_List(t *testing.T) {
	svc := new(MockAuditService)
	r := setupAuditEngine(svc)

	entries := []models.AuditLog{{Action: models.AuditActionEdit, Changes: map[string]models.FieldChange{"price": {From: 50.0, To: 60.0}}}}
	svc.On("Query", mock.Anything, services.AuditQuery{Page: 1, Limit: 20, Action: "edit", AdminID: "all"}).
		Return(models.NewPage(entries, 1, 1, 20), nil)

	code, env := do(t, r, http.MethodGet, "/audit-logs?page=1&limit=20&action=edit&adminId=all", "")

	assert.Equal(t, http.StatusOK, code)
	var got struct {
		Data []struct {
			Action  string                         `json:"action"`
			Changes map[string]map[string]float64 `json:"changes"`
		} `json:"data"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got.Data, 1)
	assert.Equal(t, "edit", got.Data[0].Action)
	assert.Equal(t, map[string]float64{"from": 50, "to": 60}, got.Data[0].Changes["price"])
	assert.Equal(t, 1, got.Total)
}

func TestAuditHandler_List_InvalidAction(t *testing.T) {
	svc := new(MockAuditService)
	r := setupAuditEngine(svc)
	svc.On("Query", mock.Anything, mock.Anything).
		Return(models.Page[models.AuditLog]{}, &services.ValidationError{Field: "action", Message: "Invalid action"})

	code, env := do(t, r, http.MethodGet, "/audit-logs?action=delete", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid action", env.Error)
}
