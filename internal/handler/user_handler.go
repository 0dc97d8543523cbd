package handler

import (
	"net/http"
	"strconv"

	"basmah/internal/middleware"
	"basmah/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type UserHandler struct {
	actions *service.AdminActionService
}

func NewUserHandler(actions *service.AdminActionService) *UserHandler {
	return &UserHandler{actions: actions}
}

func (h *UserHandler) Get(c *gin.Context) {
	p, err := h.actions.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	FullName string `json:"full_name" binding:"max=255"`
	Phone    string `json:"phone" binding:"max=32"`
	Role     string `json:"role" binding:"omitempty,oneof=USER ADMIN"`
}

func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.actions.CreateUser(c.Request.Context(), middleware.GetActor(c), service.NewUser{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
		Role:     req.Role,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// UpdateUserRequest uses pointers so absent fields stay untouched.
type UpdateUserRequest struct {
	FullName *string `json:"full_name" binding:"omitempty,max=255"`
	Phone    *string `json:"phone" binding:"omitempty,max=32"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Role     *string `json:"role" binding:"omitempty,oneof=USER ADMIN"`
	Note     string  `json:"note" binding:"max=1000"`
}

func (h *UserHandler) Update(c *gin.Context) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.actions.UpdateUser(c.Request.Context(), middleware.GetActor(c), c.Param("id"), service.UserPatch{
		FullName: req.FullName,
		Phone:    req.Phone,
		Email:    req.Email,
		Role:     req.Role,
	}, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type AccountStatusRequest struct {
	Status string `json:"status" binding:"required,accountstatus"`
	Note   string `json:"note" binding:"max=1000"`
}

func (h *UserHandler) SetAccountStatus(c *gin.Context) {
	var req AccountStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.actions.SetAccountStatus(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req.Status, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.actions.DeleteAccount(c.Request.Context(), middleware.GetActor(c), c.Param("id"), c.Query("note")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *UserHandler) Audit(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.actions.UserAudit(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": logs})
}

func (h *UserHandler) Wallet(c *gin.Context) {
	w, err := h.actions.WalletBalance(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *UserHandler) WalletTransactions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	txs, total, err := h.actions.WalletTransactions(c.Request.Context(), c.Param("id"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs, "total": total, "page": page, "limit": limit})
}

type WalletAmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note" binding:"max=1000"`
}

func (h *UserHandler) CreditWallet(c *gin.Context) {
	var req WalletAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	entry, err := h.actions.CreditWallet(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req.Amount, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": entry.Wallet, "transaction": entry.Transaction})
}

func (h *UserHandler) DebitWallet(c *gin.Context) {
	var req WalletAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	entry, err := h.actions.DebitWallet(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req.Amount, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": entry.Wallet, "transaction": entry.Transaction})
}

type PointsRequest struct {
	Delta int64  `json:"delta" binding:"required"`
	Note  string `json:"note" binding:"max=1000"`
}

func (h *UserHandler) AdjustPoints(c *gin.Context) {
	var req PointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	points, err := h.actions.AdjustPoints(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req.Delta, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": points})
}
