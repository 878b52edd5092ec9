package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/airguard/internal/airquality"
	"gorm.io/gorm"
)

// Geometry is stored inline on the device row with a geo_ column prefix
type Geometry = airquality.Geometry

// Device is a fixed-location sensor reporting under one identity
type Device struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UID            string     `json:"uid" gorm:"size:64;uniqueIndex;not null"`
	CredentialHash string     `json:"-" gorm:"size:100;not null"` // bcrypt
	Name           string     `json:"name" gorm:"size:100;default:''"`
	Geometry       Geometry   `json:"geometry" gorm:"embedded;embeddedPrefix:geo_"`
	Latitude       *float64   `json:"latitude"`
	Longitude      *float64   `json:"longitude"`
	LiveMessageRef *string    `json:"live_message_ref" gorm:"size:64"` // NULL = no live message
	AlertActive    bool       `json:"alert_active" gorm:"default:false"`
	LastSeenAt     *time.Time `json:"last_seen_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// BeforeCreate assigns the primary key on drivers without gen_random_uuid()
func (d *Device) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// HasLocation reports whether a weather lookup is possible for the device
func (d *Device) HasLocation() bool {
	return d.Latitude != nil && d.Longitude != nil
}

// DisplayName prefers the human name over the uid
func (d *Device) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.UID
}
