package handler

import (
	"net/http"

	"basmah/internal/service"

	"github.com/gin-gonic/gin"
)

type ReconcileHandler struct {
	reconciler *service.ReconciliationService
}

func NewReconcileHandler(reconciler *service.ReconciliationService) *ReconcileHandler {
	return &ReconcileHandler{reconciler: reconciler}
}

// Run triggers a reconciliation pass and returns its report.
func (h *ReconcileHandler) Run(c *gin.Context) {
	rep, err := h.reconciler.Run(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}
