package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Lokeshwarrior12/FineDine/internal/common/auth"
	"github.com/Lokeshwarrior12/FineDine/internal/common/middleware"
	"github.com/Lokeshwarrior12/FineDine/internal/common/response"
)

// restaurantScope returns the restaurant the caller acts for. Admins act
// for every restaurant and get a nil scope. It writes the error response
// itself and returns false when the caller has no restaurant.
func restaurantScope(c *gin.Context) (*uuid.UUID, bool) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return nil, false
	}
	if claims.Role == auth.RoleAdmin {
		return nil, true
	}
	if claims.RestaurantID == nil {
		response.Forbidden(c, "token is not bound to a restaurant")
		return nil, false
	}
	return claims.RestaurantID, true
}

func parseID(c *gin.Context, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+what+" ID")
		return uuid.Nil, false
	}
	return id, true
}
