package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rentaudit/internal/api/middleware"
	"rentaudit/internal/services"
)

// AuthHandler serves /auth.
type AuthHandler struct {
	adminService services.IAdminService
}

func NewAuthHandler(adminService services.IAdminService) *AuthHandler {
	return &AuthHandler{adminService: adminService}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, MsgInvalidBody)
		return
	}

	token, principal, err := h.adminService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"token": token, "user": principal}, "")
}

// Verify handles GET /auth/verify and echoes the principal behind the token.
func (h *AuthHandler) Verify(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, middleware.UnauthorizedMessage)
		return
	}
	respond(c, http.StatusOK, gin.H{"user": principal}, "")
}
