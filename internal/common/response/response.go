package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Lokeshwarrior12/FineDine/internal/common/domain"
)

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta carries list metadata.
type Meta struct {
	Total int `json:"total"`
}

// Success writes a 200 response.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// List writes a 200 response with the item count.
func List(c *gin.Context, data interface{}, total int) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Meta: &Meta{Total: total}})
}

// BadRequest writes a 400 response.
func BadRequest(c *gin.Context, msg string) {
	abort(c, http.StatusBadRequest, "bad_request", msg)
}

// Unauthorized writes a 401 response.
func Unauthorized(c *gin.Context, msg string) {
	abort(c, http.StatusUnauthorized, "unauthorized", msg)
}

// Forbidden writes a 403 response.
func Forbidden(c *gin.Context, msg string) {
	abort(c, http.StatusForbidden, "forbidden", msg)
}

// Error maps err onto an HTTP status using the domain error kinds.
// Unknown errors become 500 without leaking their text.
func Error(c *gin.Context, err error) {
	status, code := Classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	var de *domain.DomainError
	if errors.As(err, &de) && de.Code != "" {
		code = de.Code
	}
	_ = c.Error(err)
	abort(c, status, code, msg)
}

// Classify returns the HTTP status and default code for err.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrGone):
		return http.StatusGone, "gone"
	case errors.Is(err, domain.ErrUnprocessable):
		return http.StatusUnprocessableEntity, "unprocessable"
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: msg},
	})
}
