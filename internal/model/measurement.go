package model

import (
	"time"

	"github.com/quocanhngo/airguard/internal/airquality"
)

// Measurement is one immutable reading. ID is monotonic and breaks timestamp ties.
type Measurement struct {
	ID          uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	DeviceUID   string    `json:"device_uid" gorm:"size:64;not null;index:idx_measurements_device_ts,priority:1"`
	CO2         int       `json:"co2" gorm:"not null"`
	Temperature float64   `json:"temperature" gorm:"not null"`
	Humidity    float64   `json:"humidity" gorm:"not null"`
	Pressure    *float64  `json:"pressure,omitempty"`
	Timestamp   time.Time `json:"timestamp" gorm:"not null;index:idx_measurements_device_ts,priority:2"`
}

// Reading returns the metrics tracked by the threshold evaluator
func (m *Measurement) Reading() airquality.Reading {
	return airquality.Reading{
		CO2:         m.CO2,
		Temperature: m.Temperature,
		Humidity:    m.Humidity,
	}
}
