package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"rentaudit/internal/api/middleware"
	"rentaudit/internal/models"
	"rentaudit/internal/services"
	"rentaudit/internal/utils"
)

// ListingHandler serves the /listings routes.
type ListingHandler struct {
	listingService services.IListingService
}

func NewListingHandler(listingService services.IListingService) *ListingHandler {
	registerValidators()
	return &ListingHandler{listingService: listingService}
}

type adminListingParams struct {
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
	Status string `form:"status"`
	Search string `form:"search"`
}

type publicListingParams struct {
	Page         int      `form:"page"`
	Limit        int      `form:"limit"`
	Search       string   `form:"search"`
	Location     string   `form:"location"`
	MinPrice     *float64 `form:"minPrice" binding:"omitempty,gte=0"`
	MaxPrice     *float64 `form:"maxPrice" binding:"omitempty,gte=0"`
	FuelType     string   `form:"fuelType" binding:"omitempty,fueltype"`
	Transmission string   `form:"transmission" binding:"omitempty,transmission"`
}

// decodeObject reads a JSON object body. Numbers stay float64 as the
// validation layer expects.
func decodeObject(c *gin.Context) (map[string]interface{}, bool) {
	var body map[string]interface{}
	if err := json.NewDecoder(io.LimitReader(c.Request.Body, 1<<20)).Decode(&body); err != nil || body == nil {
		respondFail(c, http.StatusBadRequest, MsgInvalidBody)
		return nil, false
	}
	return body, true
}

func parseListingID(c *gin.Context) (utils.SixID, bool) {
	id, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		respondFail(c, http.StatusBadRequest, MsgInvalidListingID)
		return id, false
	}
	return id, true
}

// Submit handles POST /listings.
func (h *ListingHandler) Submit(c *gin.Context) {
	body, ok := decodeObject(c)
	if !ok {
		return
	}

	listing, err := h.listingService.Submit(c.Request.Context(), services.ListingInput(body))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated,
		models.SubmitResult{ID: listing.ID, Status: listing.Status},
		"Listing submitted successfully and is pending approval")
}

// ListAdmin handles GET /listings.
func (h *ListingHandler) ListAdmin(c *gin.Context) {
	var params adminListingParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondFail(c, http.StatusBadRequest, MsgInvalidQuery)
		return
	}

	page, err := h.listingService.QueryAdmin(c.Request.Context(), services.ListingQuery{
		Page:   params.Page,
		Limit:  params.Limit,
		Status: params.Status,
		Search: params.Search,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, page, "")
}

// ListPublic handles GET /listings/public.
func (h *ListingHandler) ListPublic(c *gin.Context) {
	var params publicListingParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondFail(c, http.StatusBadRequest, MsgInvalidQuery)
		return
	}

	page, err := h.listingService.QueryPublic(c.Request.Context(), services.PublicListingQuery{
		Page:         params.Page,
		Limit:        params.Limit,
		Search:       params.Search,
		Location:     params.Location,
		MinPrice:     params.MinPrice,
		MaxPrice:     params.MaxPrice,
		FuelType:     params.FuelType,
		Transmission: params.Transmission,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, page, "")
}

// Get handles GET /listings/:id.
func (h *ListingHandler) Get(c *gin.Context) {
	id, ok := parseListingID(c)
	if !ok {
		return
	}
	listing, err := h.listingService.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, listing, "")
}

// Update handles PUT /listings/:id. A body carrying an "action" key is a
// status transition; any other body is a field edit.
func (h *ListingHandler) Update(c *gin.Context) {
	id, ok := parseListingID(c)
	if !ok {
		return
	}
	body, ok := decodeObject(c)
	if !ok {
		return
	}
	admin, ok := middleware.GetPrincipal(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, middleware.UnauthorizedMessage)
		return
	}

	if rawAction, isTransition := body["action"]; isTransition {
		action, _ := rawAction.(string)
		listing, _, err := h.listingService.Transition(c.Request.Context(), id, models.AuditAction(action), admin)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, listing, "Listing "+action+"d successfully")
		return
	}

	listing, _, err := h.listingService.Edit(c.Request.Context(), id, body, admin)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, listing, "Listing updated successfully")
}
