package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Lokeshwarrior12/FineDine/internal/application"
	"github.com/Lokeshwarrior12/FineDine/internal/common/auth"
	"github.com/Lokeshwarrior12/FineDine/internal/common/middleware"
	"github.com/Lokeshwarrior12/FineDine/internal/common/response"
)

// LoyaltyHandler serves loyalty balances.
type LoyaltyHandler struct {
	service *application.LoyaltyService
}

// NewLoyaltyHandler creates a new LoyaltyHandler.
func NewLoyaltyHandler(service *application.LoyaltyService) *LoyaltyHandler {
	return &LoyaltyHandler{service: service}
}

// RegisterRoutes registers loyalty routes.
func (h *LoyaltyHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	loyalty := r.Group("/loyalty")
	loyalty.Use(middleware.AuthMiddleware(jwtManager))
	loyalty.GET("/me", h.GetMyBalance)
}

// GetMyBalance handles GET /api/v1/loyalty/me
func (h *LoyaltyHandler) GetMyBalance(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	dto, err := h.service.GetBalance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}
