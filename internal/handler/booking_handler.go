package handler

import (
	"net/http"
	"strconv"
	"time"

	"basmah/internal/domain"
	"basmah/internal/middleware"
	"basmah/internal/service"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	actions *service.AdminActionService
}

func NewBookingHandler(actions *service.AdminActionService) *BookingHandler {
	return &BookingHandler{actions: actions}
}

func (h *BookingHandler) Get(c *gin.Context) {
	b, err := h.actions.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required,ticketstatus"`
	Note   string `json:"note" binding:"max=1000"`
}

func (h *BookingHandler) ChangeStatus(c *gin.Context) {
	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	b, err := h.actions.ChangeStatus(c.Request.Context(), middleware.GetActor(c), c.Param("id"), domain.TicketStatus(req.Status), req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type ExtendExpiryRequest struct {
	ExpiryDate time.Time `json:"expiry_date" binding:"required"`
	Note       string    `json:"note" binding:"max=1000"`
}

func (h *BookingHandler) ExtendExpiry(c *gin.Context) {
	var req ExtendExpiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	b, err := h.actions.ExtendExpiry(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req.ExpiryDate, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type TransferRequest struct {
	By     string `json:"by" binding:"required,oneof=email phone user_id"`
	Value  string `json:"value" binding:"required"`
	Note   string `json:"note" binding:"max=1000"`
	Origin string `json:"origin" binding:"origin"`
}

func (h *BookingHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	t, err := h.actions.TransferTicket(c.Request.Context(), middleware.GetActor(c), domain.Origin(req.Origin), c.Param("id"),
		service.Recipient{By: req.By, Value: req.Value}, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"booking":      t.Booking,
		"from_user_id": t.FromUserID,
		"to_user_id":   t.To.ID,
	})
}

type CancelRequest struct {
	Refund bool   `json:"refund"`
	Note   string `json:"note" binding:"max=1000"`
	Origin string `json:"origin" binding:"origin"`
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.actions.CancelTicket(c.Request.Context(), middleware.GetActor(c), domain.Origin(req.Origin), c.Param("id"), req.Refund, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	body := gin.H{"booking": res.Booking, "refunded": res.Refunded.StringFixed(2)}
	if res.Ledger != nil {
		body["wallet"] = res.Ledger.Wallet
		body["transaction"] = res.Ledger.Transaction
	}
	c.JSON(http.StatusOK, body)
}

func (h *BookingHandler) Delete(c *gin.Context) {
	b, err := h.actions.DeleteTicket(c.Request.Context(), middleware.GetActor(c), c.Param("id"), c.Query("note"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "booking_number": b.BookingNumber})
}

func (h *BookingHandler) DownloadPDF(c *gin.Context) {
	pdf, b, err := h.actions.DownloadTicketPDF(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="ticket-`+b.BookingNumber+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *BookingHandler) Audit(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.actions.BookingAudit(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": logs})
}
