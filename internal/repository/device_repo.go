package repository

import (
	"context"
	"errors"
	"time"

	"github.com/quocanhngo/airguard/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceRepository handles database operations for Device
type DeviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Create inserts a new device. Fails if the uid is taken.
func (r *DeviceRepository) Create(ctx context.Context, device *model.Device) error {
	return r.db.WithContext(ctx).Create(device).Error
}

// FindByUID returns the device or nil when it is not registered
func (r *DeviceRepository) FindByUID(ctx context.Context, uid string) (*model.Device, error) {
	var device model.Device
	err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// RegisterIfAbsent inserts the device unless its uid already exists and
// returns the stored row. The first registration wins.
func (r *DeviceRepository) RegisterIfAbsent(ctx context.Context, device *model.Device) (*model.Device, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "uid"}}, DoNothing: true}).
		Create(device).Error
	if err != nil {
		return nil, err
	}
	stored, err := r.FindByUID(ctx, device.UID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return stored, nil
}

// List returns all devices ordered by uid
func (r *DeviceRepository) List(ctx context.Context) ([]model.Device, error) {
	devices := []model.Device{}
	err := r.db.WithContext(ctx).Order("uid ASC").Find(&devices).Error
	return devices, err
}

// SetLiveMessageRef records the message currently representing the device.
// A nil ref clears it.
func (r *DeviceRepository) SetLiveMessageRef(ctx context.Context, uid string, ref *string) error {
	return r.db.WithContext(ctx).
		Model(&model.Device{}).
		Where("uid = ?", uid).
		Update("live_message_ref", ref).Error
}

// SetAlertActive flips the alert marker and reports whether it changed.
// The conditional update makes the transition observable by exactly one caller.
func (r *DeviceRepository) SetAlertActive(ctx context.Context, uid string, active bool) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Device{}).
		Where("uid = ? AND alert_active <> ?", uid, active).
		Update("alert_active", active)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// TouchLastSeen updates the last ingestion time
func (r *DeviceRepository) TouchLastSeen(ctx context.Context, uid string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Device{}).
		Where("uid = ?", uid).
		Update("last_seen_at", at).Error
}

// UpdateProfile saves the descriptive fields of a device
func (r *DeviceRepository) UpdateProfile(ctx context.Context, device *model.Device) error {
	return r.db.WithContext(ctx).
		Model(&model.Device{}).
		Where("uid = ?", device.UID).
		Select("name", "geo_length", "geo_width", "geo_height", "geo_occupants",
			"geo_window_count", "geo_window_width", "geo_window_height",
			"geo_opening_fraction", "geo_radiator_power", "latitude", "longitude").
		Updates(device).Error
}
