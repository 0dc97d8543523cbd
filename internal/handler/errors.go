package handler

import (
	"errors"
	"net/http"

	"basmah/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{service.ErrInvalidAmount, http.StatusBadRequest},
	{service.ErrInvalidExpiry, http.StatusBadRequest},
	{service.ErrInvalidInput, http.StatusBadRequest},
	{service.ErrInvalidStatus, http.StatusBadRequest},
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrRecipientNotFound, http.StatusNotFound},
	{service.ErrNotTransferable, http.StatusUnprocessableEntity},
	{service.ErrAlreadyOwned, http.StatusUnprocessableEntity},
	{service.ErrTicketCancelled, http.StatusUnprocessableEntity},
	{service.ErrInsufficientFunds, http.StatusUnprocessableEntity},
	{service.ErrConflict, http.StatusConflict},
	{service.ErrEmailTaken, http.StatusConflict},
	{service.ErrReconcileRunning, http.StatusConflict},
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrAccountDisabled, http.StatusForbidden},
	{service.ErrPartialFailure, http.StatusMultiStatus},
	{service.ErrUploadFailed, http.StatusBadGateway},
	{service.ErrStorageDisabled, http.StatusServiceUnavailable},
	{service.ErrPDFDisabled, http.StatusServiceUnavailable},
}

func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": ...}. Internal failures are logged and
// reported without their cause.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
