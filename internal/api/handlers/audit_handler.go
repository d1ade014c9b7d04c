package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rentaudit/internal/services"
)

// AuditHandler serves GET /audit-logs.
type AuditHandler struct {
	auditService services.IAuditService
}

func NewAuditHandler(auditService services.IAuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

type auditLogParams struct {
	Page    int    `form:"page"`
	Limit   int    `form:"limit"`
	Action  string `form:"action"`
	AdminID string `form:"adminId"`
}

func (h *AuditHandler) List(c *gin.Context) {
	var params auditLogParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondFail(c, http.StatusBadRequest, MsgInvalidQuery)
		return
	}

	page, err := h.auditService.Query(c.Request.Context(), services.AuditQuery{
		Page:    params.Page,
		Limit:   params.Limit,
		Action:  params.Action,
		AdminID: params.AdminID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, page, "")
}
