package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Lokeshwarrior12/FineDine/internal/application"
	"github.com/Lokeshwarrior12/FineDine/internal/common/auth"
	"github.com/Lokeshwarrior12/FineDine/internal/common/database"
	"github.com/Lokeshwarrior12/FineDine/internal/common/response"
	"github.com/Lokeshwarrior12/FineDine/internal/domain/coupon"
	"github.com/Lokeshwarrior12/FineDine/internal/idempotency"
	"github.com/Lokeshwarrior12/FineDine/internal/repository"
	"github.com/Lokeshwarrior12/FineDine/internal/saga"
)

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorBody `json:"error"`
}

type testServer struct {
	router *gin.Engine
	jwt    *auth.JWTManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	logger := zap.NewNop()
	txm := database.NewTxManager(db, 3, logger)
	offerRepo := repository.NewGormOfferRepository(db)
	couponRepo := repository.NewGormCouponRepository(db)
	loyaltyRepo := repository.NewGormLoyaltyRepository(db)
	sagaSvc := saga.NewClaimSagaService(idempotency.NewMemoryStore(), time.Hour, logger)

	claims := application.NewClaimService(txm, offerRepo, couponRepo, loyaltyRepo, coupon.NewGenerator(), sagaSvc, nil, nil, logger)
	redemptions := application.NewRedemptionService(txm, offerRepo, couponRepo, nil, nil, logger)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)

	router := gin.New()
	v1 := router.Group("/api/v1")
	NewCouponHandler(claims, redemptions, application.NewCouponService(couponRepo)).RegisterRoutes(v1, jwtManager)
	NewOfferHandler(application.NewOfferService(txm, offerRepo, logger)).RegisterRoutes(v1, jwtManager)
	NewLoyaltyHandler(application.NewLoyaltyService(loyaltyRepo)).RegisterRoutes(v1, jwtManager)
	NewAdminHandler(redemptions).RegisterRoutes(v1, jwtManager)

	return &testServer{router: router, jwt: jwtManager}
}

func (s *testServer) token(t *testing.T, role auth.Role, restaurantID *uuid.UUID) string {
	t.Helper()
	tok, err := s.jwt.Generate(uuid.New(), role, restaurantID)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}, headers ...string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (s *testServer) createOffer(t *testing.T, staffToken string, maxCoupons int) application.OfferDTO {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/api/v1/offers", staffToken, map[string]interface{}{
		"restaurant_name":     "Spice Route",
		"title":               "40% off dinner",
		"discount_percentage": 40,
		"offer_type":          "dine_in",
		"max_coupons":         maxCoupons,
		"valid_until":         time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	var dto application.OfferDTO
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	return dto
}

func claimResult(t *testing.T, env envelope) application.ClaimResult {
	t.Helper()
	var res application.ClaimResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return res
}

func TestRoutes_RequireToken(t *testing.T) {
	s := newTestServer(t)
	status, env := s.do(t, http.MethodGet, "/api/v1/coupons", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", env.Error.Code)
}

func TestClaimFlow(t *testing.T) {
	s := newTestServer(t)
	restaurantID := uuid.New()
	staff := s.token(t, auth.RoleRestaurantOwner, &restaurantID)
	o := s.createOffer(t, staff, 1)
	assert.Equal(t, restaurantID, o.RestaurantID)

	customer := s.token(t, auth.RoleCustomer, nil)
	claimPath := "/api/v1/offers/" + o.ID.String() + "/claim"

	status, env := s.do(t, http.MethodPost, claimPath, customer, nil, HeaderIdempotencyKey, "abc")
	require.Equal(t, http.StatusCreated, status)
	first := claimResult(t, env)
	assert.Equal(t, 20, first.PointsAwarded)

	status, env = s.do(t, http.MethodPost, claimPath, customer, nil, HeaderIdempotencyKey, "abc")
	require.Equal(t, http.StatusOK, status)
	replay := claimResult(t, env)
	assert.True(t, replay.Replayed)
	assert.Equal(t, first.Coupon.ID, replay.Coupon.ID)

	status, env = s.do(t, http.MethodPost, claimPath, customer, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already_claimed", env.Error.Code)

	status, env = s.do(t, http.MethodPost, claimPath, s.token(t, auth.RoleCustomer, nil), nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "sold_out", env.Error.Code)

	status, env = s.do(t, http.MethodGet, "/api/v1/loyalty/me", customer, nil)
	require.Equal(t, http.StatusOK, status)
	var balance application.LoyaltyDTO
	require.NoError(t, json.Unmarshal(env.Data, &balance))
	assert.Equal(t, 20, balance.Points)
}

func TestClaim_UnknownOffer(t *testing.T) {
	s := newTestServer(t)
	customer := s.token(t, auth.RoleCustomer, nil)

	status, _ := s.do(t, http.MethodPost, "/api/v1/offers/not-a-uuid/claim", customer, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env := s.do(t, http.MethodPost, "/api/v1/offers/"+uuid.NewString()+"/claim", customer, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestCancelAndList(t *testing.T) {
	s := newTestServer(t)
	restaurantID := uuid.New()
	o := s.createOffer(t, s.token(t, auth.RoleRestaurantOwner, &restaurantID), 5)
	customer := s.token(t, auth.RoleCustomer, nil)

	_, env := s.do(t, http.MethodPost, "/api/v1/offers/"+o.ID.String()+"/claim", customer, nil)
	c := claimResult(t, env).Coupon
	cancelPath := "/api/v1/coupons/" + c.ID.String() + "/cancel"

	status, env := s.do(t, http.MethodPost, cancelPath, s.token(t, auth.RoleCustomer, nil), nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "not_owner", env.Error.Code)

	status, _ = s.do(t, http.MethodPost, cancelPath, customer, nil)
	require.Equal(t, http.StatusOK, status)

	status, env = s.do(t, http.MethodPost, cancelPath, customer, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_state", env.Error.Code)

	status, env = s.do(t, http.MethodGet, "/api/v1/coupons?status=cancelled", customer, nil)
	require.Equal(t, http.StatusOK, status)
	var list []application.CouponDTO
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, c.ID, list[0].ID)

	status, _ = s.do(t, http.MethodGet, "/api/v1/coupons?status=lost", customer, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = s.do(t, http.MethodGet, "/api/v1/offers/"+o.ID.String(), customer, nil)
	require.Equal(t, http.StatusOK, status)
	var offer application.OfferDTO
	require.NoError(t, json.Unmarshal(env.Data, &offer))
	assert.Equal(t, 0, offer.CouponsClaimed)
}

func TestRedeemByCode(t *testing.T) {
	s := newTestServer(t)
	restaurantID := uuid.New()
	staff := s.token(t, auth.RoleRestaurantOwner, &restaurantID)
	o := s.createOffer(t, staff, 5)
	customer := s.token(t, auth.RoleCustomer, nil)

	_, env := s.do(t, http.MethodPost, "/api/v1/offers/"+o.ID.String()+"/claim", customer, nil)
	c := claimResult(t, env).Coupon

	status, _ := s.do(t, http.MethodPost, "/api/v1/coupons/redeem", customer, map[string]string{"code": c.CouponCode})
	assert.Equal(t, http.StatusForbidden, status)

	otherRestaurant := uuid.New()
	status, env = s.do(t, http.MethodPost, "/api/v1/coupons/redeem", s.token(t, auth.RoleRestaurantOwner, &otherRestaurant), map[string]string{"code": c.CouponCode})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "wrong_restaurant", env.Error.Code)

	status, env = s.do(t, http.MethodPost, "/api/v1/coupons/redeem", staff, map[string]string{"code": c.QRPayload})
	require.Equal(t, http.StatusOK, status)
	var used application.CouponDTO
	require.NoError(t, json.Unmarshal(env.Data, &used))
	assert.Equal(t, "used", used.Status)

	status, env = s.do(t, http.MethodPost, "/api/v1/coupons/"+c.ID.String()+"/redeem", staff, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_state", env.Error.Code)
}

func TestOfferManagement(t *testing.T) {
	s := newTestServer(t)
	restaurantID := uuid.New()
	staff := s.token(t, auth.RoleRestaurantOwner, &restaurantID)

	status, env := s.do(t, http.MethodPost, "/api/v1/offers", staff, map[string]interface{}{
		"title":               "Too generous",
		"discount_percentage": 80,
		"offer_type":          "dine_in",
		"max_coupons":         5,
		"valid_until":         time.Now().UTC().Add(time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "bad_request", env.Error.Code)

	status, _ = s.do(t, http.MethodPost, "/api/v1/offers", s.token(t, auth.RoleRestaurantOwner, nil), map[string]interface{}{})
	assert.Equal(t, http.StatusForbidden, status)

	o := s.createOffer(t, staff, 5)
	capacityPath := "/api/v1/offers/" + o.ID.String() + "/capacity"

	status, env = s.do(t, http.MethodPatch, capacityPath, staff, map[string]int{"max_coupons": 3})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_failed", env.Error.Code)

	otherRestaurant := uuid.New()
	status, env = s.do(t, http.MethodPatch, capacityPath, s.token(t, auth.RoleRestaurantOwner, &otherRestaurant), map[string]int{"max_coupons": 10})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "not_offer_owner", env.Error.Code)

	status, env = s.do(t, http.MethodPatch, capacityPath, staff, map[string]int{"max_coupons": 10})
	require.Equal(t, http.StatusOK, status)
	var updated application.OfferDTO
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, 10, updated.MaxCoupons)

	customer := s.token(t, auth.RoleCustomer, nil)
	status, env = s.do(t, http.MethodGet, "/api/v1/offers?restaurant_id="+restaurantID.String(), customer, nil)
	require.Equal(t, http.StatusOK, status)
	var listed []application.OfferDTO
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	assert.Len(t, listed, 1)

	status, _ = s.do(t, http.MethodPost, "/api/v1/offers/"+o.ID.String()+"/deactivate", staff, nil)
	require.Equal(t, http.StatusOK, status)

	status, env = s.do(t, http.MethodPost, "/api/v1/offers/"+o.ID.String()+"/claim", customer, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "offer_not_claimable", env.Error.Code)
}

func TestAdminExpireCoupons(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodPost, "/api/v1/admin/coupons/expire", s.token(t, auth.RoleCustomer, nil), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env := s.do(t, http.MethodPost, "/api/v1/admin/coupons/expire", s.token(t, auth.RoleAdmin, nil), nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"expired":0}`, string(env.Data))
}
