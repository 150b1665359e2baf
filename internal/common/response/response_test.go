package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lokeshwarrior12/FineDine/internal/common/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func writeError(t *testing.T, err error) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Error(c, err)

	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestError_UsesDomainCode(t *testing.T) {
	soldOut := domain.New(domain.ErrConflict, "sold_out", "offer is sold out")

	w, body := writeError(t, fmt.Errorf("claim: %w", soldOut))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, body.Success)
	assert.Equal(t, "sold_out", body.Error.Code)
}

func TestError_HidesInternalErrors(t *testing.T) {
	w, body := writeError(t, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal_error", body.Error.Code)
	assert.Equal(t, "internal server error", body.Error.Message)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{domain.NewNotFoundError("Coupon", "1"), http.StatusNotFound},
		{domain.NewInvalidStateError("used", "cancelled"), http.StatusConflict},
		{domain.NewValidationError("bad"), http.StatusBadRequest},
		{domain.NewForbiddenError("nope"), http.StatusForbidden},
		{domain.New(domain.ErrGone, "coupon_expired", "expired"), http.StatusGone},
		{domain.New(domain.ErrUnprocessable, "offer_not_claimable", "inactive"), http.StatusUnprocessableEntity},
		{domain.NewUnavailableError(errors.New("timeout")), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		status, _ := Classify(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
	}
}
