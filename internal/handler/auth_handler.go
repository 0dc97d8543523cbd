package handler

import (
	"net/http"

	"basmah/config"
	"basmah/internal/auth"
	"basmah/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	actions *service.AdminActionService
	jwt     *config.JWTConfig
}

func NewAuthHandler(actions *service.AdminActionService, jwt *config.JWTConfig) *AuthHandler {
	return &AuthHandler{actions: actions, jwt: jwt}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login issues an access token to an active administrator.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.actions.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	token, err := auth.GenerateAccessToken(h.jwt, p.ID, p.Email, p.FullName, p.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(h.jwt.AccessExpiry.Seconds()),
		"user":         p,
	})
}
