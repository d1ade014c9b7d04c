package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rentaudit/internal/models"
	"rentaudit/internal/repository"
	"rentaudit/internal/services"
)

// Messages shared by several handlers.
const (
	MsgInternalError    = "Internal server error"
	MsgListingNotFound  = "Listing not found"
	MsgInvalidListingID = "Invalid listing ID"
	MsgInvalidBody      = "Invalid request body"
	MsgInvalidQuery     = "Invalid query parameters"
	MsgMethodNotAllowed = "Method not allowed"
	MsgNotFound         = "Not found"
)

func respond(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, models.Response{Success: true, Data: data, Message: message})
}

func respondFail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, models.Response{Error: message})
}

// respondError maps service errors onto the envelope. Unexpected errors are
// attached to the context for the request logger and never shown to clients.
func respondError(c *gin.Context, err error) {
	var vErr *services.ValidationError
	switch {
	case errors.As(err, &vErr):
		respondFail(c, http.StatusBadRequest, vErr.Message)
	case errors.Is(err, repository.ErrNotFound):
		respondFail(c, http.StatusNotFound, MsgListingNotFound)
	case errors.Is(err, services.ErrInvalidCredentials):
		respondFail(c, http.StatusUnauthorized, "Invalid credentials")
	default:
		_ = c.Error(err)
		respondFail(c, http.StatusInternalServerError, MsgInternalError)
	}
}

// MethodNotAllowed and NotFound are installed on the engine.
func MethodNotAllowed(c *gin.Context) {
	respondFail(c, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
}

func NotFound(c *gin.Context) {
	respondFail(c, http.StatusNotFound, MsgNotFound)
}

// Recovery turns panics into the generic 500 envelope.
func Recovery(c *gin.Context, recovered interface{}) {
	respondFail(c, http.StatusInternalServerError, MsgInternalError)
}
