package handler

import (
	"io"
	"mime/multipart"
	"net/http"

	"basmah/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

const maxGalleryFiles = 50

type GalleryHandler struct {
	gallery *service.GalleryService
	folder  string
}

func NewGalleryHandler(gallery *service.GalleryService, folder string) *GalleryHandler {
	return &GalleryHandler{gallery: gallery, folder: folder}
}

// Upload accepts multipart files[] and an optional folder suffix. Every file
// gets its own result; 207 means some of them failed.
func (h *GalleryHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}
	headers := form.File["files[]"]
	if len(headers) == 0 {
		headers = form.File["files"]
	}
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "files required"})
		return
	}
	if len(headers) > maxGalleryFiles {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many files"})
		return
	}

	folder := h.folder
	if sub := c.PostForm("folder"); sub != "" {
		folder += "/" + sub
	}
	files := make([]service.UploadFile, len(headers))
	for i, fh := range headers {
		fh := fh
		files[i] = service.UploadFile{
			Name: fh.Filename,
			Open: func() (io.ReadCloser, error) { return openPart(fh) },
		}
	}

	results, err := h.gallery.UploadBatch(c.Request.Context(), folder, files)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"results": results})
	case errors.Is(err, service.ErrPartialFailure), errors.Is(err, service.ErrUploadFailed):
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "results": results})
	default:
		respondError(c, err)
	}
}

func openPart(fh *multipart.FileHeader) (io.ReadCloser, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", fh.Filename)
	}
	return f, nil
}
