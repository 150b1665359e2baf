package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Lokeshwarrior12/FineDine/internal/application"
	"github.com/Lokeshwarrior12/FineDine/internal/common/auth"
	"github.com/Lokeshwarrior12/FineDine/internal/common/middleware"
	"github.com/Lokeshwarrior12/FineDine/internal/common/response"
)

// OfferHandler handles HTTP requests for offer operations.
type OfferHandler struct {
	service *application.OfferService
}

// NewOfferHandler creates a new OfferHandler.
func NewOfferHandler(service *application.OfferService) *OfferHandler {
	return &OfferHandler{service: service}
}

// RegisterRoutes registers all offer routes on the given router group.
func (h *OfferHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	staff := middleware.RequireRole(auth.RoleRestaurantOwner)

	offers := r.Group("/offers")
	offers.Use(middleware.AuthMiddleware(jwtManager))
	{
		offers.GET("", h.ListOffers)
		offers.GET("/:id", h.GetOffer)
		offers.POST("", staff, h.RegisterOffer)
		offers.PATCH("/:id/capacity", staff, h.RaiseCapacity)
		offers.POST("/:id/deactivate", staff, h.DeactivateOffer)
	}
}

// ListOffers handles GET /api/v1/offers?restaurant_id=
func (h *OfferHandler) ListOffers(c *gin.Context) {
	var restaurantID *uuid.UUID
	if raw := c.Query("restaurant_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid restaurant ID")
			return
		}
		restaurantID = &id
	}

	offers, err := h.service.ListClaimable(c.Request.Context(), restaurantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, offers, len(offers))
}

// GetOffer handles GET /api/v1/offers/:id
func (h *OfferHandler) GetOffer(c *gin.Context) {
	offerID, ok := parseID(c, "id", "offer")
	if !ok {
		return
	}

	dto, err := h.service.GetOffer(c.Request.Context(), offerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// RegisterOffer handles POST /api/v1/offers
func (h *OfferHandler) RegisterOffer(c *gin.Context) {
	scope, ok := restaurantScope(c)
	if !ok {
		return
	}
	if scope == nil {
		response.Forbidden(c, "offers must be registered by restaurant staff")
		return
	}

	var req application.RegisterOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.RegisterOffer(c.Request.Context(), *scope, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto)
}

// RaiseCapacity handles PATCH /api/v1/offers/:id/capacity
func (h *OfferHandler) RaiseCapacity(c *gin.Context) {
	scope, ok := restaurantScope(c)
	if !ok {
		return
	}
	offerID, ok := parseID(c, "id", "offer")
	if !ok {
		return
	}

	var req application.RaiseCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.RaiseCapacity(c.Request.Context(), offerID, scope, req.MaxCoupons)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// DeactivateOffer handles POST /api/v1/offers/:id/deactivate
func (h *OfferHandler) DeactivateOffer(c *gin.Context) {
	scope, ok := restaurantScope(c)
	if !ok {
		return
	}
	offerID, ok := parseID(c, "id", "offer")
	if !ok {
		return
	}

	dto, err := h.service.DeactivateOffer(c.Request.Context(), offerID, scope)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}
