package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/airguard/internal/model"
	"github.com/quocanhngo/airguard/internal/service"
)

const maxDataLimit = 200

// Ingester is the ingestion pipeline as seen by transports
type Ingester interface {
	Ingest(ctx context.Context, source, uid, credential string, r service.Reading) (*model.Measurement, error)
}

// RecentReader lists the newest measurements across devices
type RecentReader interface {
	Recent(ctx context.Context, limit int) ([]model.Measurement, error)
}

// DataHandler handles device readings
type DataHandler struct {
	ingest Ingester
	recent RecentReader
}

func NewDataHandler(ingest Ingester, recent RecentReader) *DataHandler {
	return &DataHandler{ingest: ingest, recent: recent}
}

// Ingest godoc
// @Summary Submit a device reading
// @Description Unknown devices are registered on first contact with the supplied key.
// @Tags Data
// @Accept json
// @Produce json
// @Param body body model.IngestRequest true "Reading"
// @Success 200 {object} model.IngestResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 503 {object} model.ErrorResponse
// @Router /data [post]
func (h *DataHandler) Ingest(c *gin.Context) {
	var req model.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	_, err := h.ingest.Ingest(c.Request.Context(), "http", req.DeviceUID, req.APIKey, service.Reading{
		CO2:         *req.CO2,
		Temperature: *req.Temperature,
		Humidity:    *req.Humidity,
		Pressure:    req.Pressure,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.IngestResponse{Status: "ok"})
}

// List godoc
// @Summary Most recent measurements across all devices
// @Tags Data
// @Produce json
// @Param limit query int false "Max rows (default 20, max 200)"
// @Success 200 {array} model.Measurement
// @Failure 503 {object} model.ErrorResponse
// @Router /data [get]
func (h *DataHandler) List(c *gin.Context) {
	var req model.DataListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if req.Limit > maxDataLimit {
		req.Limit = maxDataLimit
	}

	rows, err := h.recent.Recent(c.Request.Context(), req.Limit)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: "Store unavailable", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}
