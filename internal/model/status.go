package model

import (
	"time"

	"github.com/quocanhngo/airguard/internal/airquality"
)

// StatusEvent is broadcast to dashboards after a device's message is reconciled
type StatusEvent struct {
	DeviceUID  string                `json:"device_uid"`
	DeviceName string                `json:"device_name"`
	Alert      bool                  `json:"alert"`
	Evaluation airquality.Evaluation `json:"evaluation"`
	Flow       float64               `json:"flow,omitempty"`
	Recovery   *airquality.Recovery  `json:"recovery,omitempty"`
	Reading    Measurement           `json:"reading"`
	MessageRef string                `json:"message_ref"`
	At         time.Time             `json:"at"`
}

// WSEvent is the envelope written to websocket clients
type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocket event types
const (
	WSEventStatus = "status"
)
