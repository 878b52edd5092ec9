package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/airguard/internal/model"
	"github.com/quocanhngo/airguard/internal/service"
)

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrAuthentication), errors.Is(err, service.ErrInvalidLogin):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrDeviceNotFound), errors.Is(err, service.ErrNoMeasurement):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDeviceExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrStoreUnavailable), errors.Is(err, service.ErrExportDisabled),
		errors.Is(err, service.ErrChannelTransport):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	resp := model.ErrorResponse{Error: http.StatusText(status)}
	if status != http.StatusInternalServerError {
		resp.Message = err.Error()
	}
	c.AbortWithStatusJSON(status, resp)
}
