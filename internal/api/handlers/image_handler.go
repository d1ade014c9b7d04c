package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rentaudit/internal/storage"
)

// ImageHandler hands out upload URLs for listing images.
type ImageHandler struct {
	storage storage.IS3Storage
}

func NewImageHandler(storageService storage.IS3Storage) *ImageHandler {
	return &ImageHandler{storage: storageService}
}

type presignRequest struct {
	Filename    string `json:"filename" binding:"required,max=255"`
	ContentType string `json:"contentType" binding:"required,oneof=image/jpeg image/png image/gif"`
}

type presignResponse struct {
	UploadURL string    `json:"uploadUrl"`
	ImageURL  string    `json:"imageUrl"`
	ObjectKey string    `json:"objectKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Presign handles POST /listings/images/presign. The returned imageUrl is what
// the client puts in the listing's images once the upload succeeded.
func (h *ImageHandler) Presign(c *gin.Context) {
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "filename and an image contentType are required")
		return
	}

	uploadURL, key, err := h.storage.GeneratePresignedPutURL(c.Request.Context(), req.Filename, req.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, presignResponse{
		UploadURL: uploadURL,
		ImageURL:  h.storage.PublicURL(key),
		ObjectKey: key,
		ExpiresAt: time.Now().Add(storage.PresignExpiry).UTC(),
	}, "")
}
