package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Lokeshwarrior12/FineDine/internal/application"
	"github.com/Lokeshwarrior12/FineDine/internal/common/auth"
	"github.com/Lokeshwarrior12/FineDine/internal/common/middleware"
	"github.com/Lokeshwarrior12/FineDine/internal/common/response"
)

// HeaderIdempotencyKey lets clients retry a claim safely.
const HeaderIdempotencyKey = "Idempotency-Key"

const maxIdempotencyKeyLen = 128

// CouponHandler handles HTTP requests for coupon operations.
type CouponHandler struct {
	claims      *application.ClaimService
	redemptions *application.RedemptionService
	coupons     *application.CouponService
}

// NewCouponHandler creates a new CouponHandler.
func NewCouponHandler(
	claims *application.ClaimService,
	redemptions *application.RedemptionService,
	coupons *application.CouponService,
) *CouponHandler {
	return &CouponHandler{claims: claims, redemptions: redemptions, coupons: coupons}
}

// RegisterRoutes registers all coupon routes on the given router group.
func (h *CouponHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	customer := middleware.RequireRole(auth.RoleCustomer)
	staff := middleware.RequireRole(auth.RoleRestaurantOwner)

	r.POST("/offers/:id/claim", authMW, customer, h.ClaimCoupon)

	coupons := r.Group("/coupons")
	coupons.Use(authMW)
	{
		coupons.GET("", h.ListCoupons)
		coupons.GET("/:id", h.GetCoupon)
		coupons.POST("/:id/cancel", customer, h.CancelCoupon)
		coupons.POST("/:id/redeem", staff, h.RedeemCoupon)
		coupons.POST("/redeem", staff, h.RedeemByCode)
	}
}

// ClaimCoupon handles POST /api/v1/offers/:id/claim
func (h *CouponHandler) ClaimCoupon(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	offerID, ok := parseID(c, "id", "offer")
	if !ok {
		return
	}
	key := c.GetHeader(HeaderIdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		response.BadRequest(c, "idempotency key is too long")
		return
	}

	res, err := h.claims.Claim(c.Request.Context(), offerID, userID, key)
	if err != nil {
		response.Error(c, err)
		return
	}

	if res.Replayed {
		response.Success(c, res)
		return
	}
	response.Created(c, res)
}

// CancelCoupon handles POST /api/v1/coupons/:id/cancel
func (h *CouponHandler) CancelCoupon(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	couponID, ok := parseID(c, "id", "coupon")
	if !ok {
		return
	}

	dto, err := h.redemptions.Cancel(c.Request.Context(), couponID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// RedeemCoupon handles POST /api/v1/coupons/:id/redeem
func (h *CouponHandler) RedeemCoupon(c *gin.Context) {
	scope, ok := restaurantScope(c)
	if !ok {
		return
	}
	couponID, ok := parseID(c, "id", "coupon")
	if !ok {
		return
	}

	dto, err := h.redemptions.Redeem(c.Request.Context(), couponID, scope)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// RedeemByCode handles POST /api/v1/coupons/redeem
func (h *CouponHandler) RedeemByCode(c *gin.Context) {
	scope, ok := restaurantScope(c)
	if !ok {
		return
	}

	var req application.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.redemptions.RedeemByCode(c.Request.Context(), req.Code, scope)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// ListCoupons handles GET /api/v1/coupons?status=
func (h *CouponHandler) ListCoupons(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	coupons, err := h.coupons.ListCoupons(c.Request.Context(), userID, c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, coupons, len(coupons))
}

// GetCoupon handles GET /api/v1/coupons/:id
func (h *CouponHandler) GetCoupon(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	couponID, ok := parseID(c, "id", "coupon")
	if !ok {
		return
	}

	dto, err := h.coupons.GetCoupon(c.Request.Context(), couponID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}
