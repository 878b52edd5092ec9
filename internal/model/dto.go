package model

import (
	"time"

	"github.com/google/uuid"
)

// ========== Ingestion DTOs ==========

// IngestRequest is the body of POST /api/v1/data
type IngestRequest struct {
	DeviceUID   string   `json:"device_uid" binding:"required,max=64"`
	APIKey      string   `json:"api_key" binding:"required,max=128"`
	CO2         *int     `json:"co2" binding:"required,gte=0"`
	Temperature *float64 `json:"temperature" binding:"required"`
	Humidity    *float64 `json:"humidity" binding:"required,gte=0,lte=100"`
	Pressure    *float64 `json:"pressure" binding:"omitempty,gte=0"`
}

type IngestResponse struct {
	Status string `json:"status"`
}

type DataListRequest struct {
	Limit int `form:"limit,default=20"`
}

// ========== Admin DTOs ==========

type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AdminLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ProvisionDeviceRequest struct {
	UID       string    `json:"uid" binding:"required,max=64"`
	APIKey    string    `json:"api_key" binding:"required,min=8,max=128"`
	Name      string    `json:"name" binding:"max=100"`
	Geometry  *Geometry `json:"geometry"`
	Latitude  *float64  `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude *float64  `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
}

// UpdateDeviceRequest patches the descriptive profile. Credentials are immutable.
type UpdateDeviceRequest struct {
	Name      *string   `json:"name" binding:"omitempty,max=100"`
	Geometry  *Geometry `json:"geometry"`
	Latitude  *float64  `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude *float64  `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
}

type ExportRequest struct {
	From time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To   time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

type ExportResponse struct {
	ObjectKey string    `json:"object_key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
	Rows      int       `json:"rows"`
}

type DeviceResponse struct {
	ID             uuid.UUID  `json:"id"`
	UID            string     `json:"uid"`
	Name           string     `json:"name"`
	Geometry       Geometry   `json:"geometry"`
	Latitude       *float64   `json:"latitude"`
	Longitude      *float64   `json:"longitude"`
	LiveMessageRef *string    `json:"live_message_ref"`
	AlertActive    bool       `json:"alert_active"`
	LastSeenAt     *time.Time `json:"last_seen_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (d *Device) ToResponse() DeviceResponse {
	return DeviceResponse{
		ID:             d.ID,
		UID:            d.UID,
		Name:           d.Name,
		Geometry:       d.Geometry,
		Latitude:       d.Latitude,
		Longitude:      d.Longitude,
		LiveMessageRef: d.LiveMessageRef,
		AlertActive:    d.AlertActive,
		LastSeenAt:     d.LastSeenAt,
		CreatedAt:      d.CreatedAt,
	}
}

// ========== MQTT DTOs ==========

// ReadingPayload is the JSON published on the MQTT readings topic
type ReadingPayload struct {
	DeviceUID   string   `json:"device_uid"`
	APIKey      string   `json:"api_key"`
	CO2         *int     `json:"co2"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Pressure    *float64 `json:"pressure,omitempty"`
}

// ========== Common ==========

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
