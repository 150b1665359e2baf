package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Lokeshwarrior12/FineDine/internal/common/auth"
	"github.com/Lokeshwarrior12/FineDine/internal/common/middleware"
	"github.com/Lokeshwarrior12/FineDine/internal/common/response"
	"github.com/Lokeshwarrior12/FineDine/internal/scheduler"
)

// AdminHandler handles operator requests.
type AdminHandler struct {
	sweeper scheduler.Sweeper
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(sweeper scheduler.Sweeper) *AdminHandler {
	return &AdminHandler{sweeper: sweeper}
}

// RegisterRoutes registers admin routes.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/admin")
	admin.Use(authMW, adminRole)
	{
		admin.POST("/coupons/expire", h.ExpireCoupons)
	}
}

// ExpireCoupons handles POST /api/v1/admin/coupons/expire. It runs the
// expiry sweep immediately.
func (h *AdminHandler) ExpireCoupons(c *gin.Context) {
	n, err := h.sweeper.ExpireDue(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"expired": n})
}
