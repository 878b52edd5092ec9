package repository

import (
	"context"
	"errors"
	"time"

	"github.com/quocanhngo/airguard/internal/model"
	"gorm.io/gorm"
)

// MeasurementRepository handles database operations for Measurement
type MeasurementRepository struct {
	db *gorm.DB
}

func NewMeasurementRepository(db *gorm.DB) *MeasurementRepository {
	return &MeasurementRepository{db: db}
}

// Insert stores a measurement. Timestamps are normalised to UTC.
func (r *MeasurementRepository) Insert(ctx context.Context, m *model.Measurement) error {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	m.Timestamp = m.Timestamp.UTC()
	return r.db.WithContext(ctx).Create(m).Error
}

// Latest returns the most recent measurement of a device, or nil if it has none.
// Equal timestamps resolve to the later insert.
func (r *MeasurementRepository) Latest(ctx context.Context, deviceUID string) (*model.Measurement, error) {
	var m model.Measurement
	err := r.db.WithContext(ctx).
		Where("device_uid = ?", deviceUID).
		Order("timestamp DESC").
		Order("id DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Recent returns the newest measurements across all devices
func (r *MeasurementRepository) Recent(ctx context.Context, limit int) ([]model.Measurement, error) {
	measurements := []model.Measurement{}
	err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&measurements).Error
	return measurements, err
}

// ListByDevice returns a device's measurements in [from, to) oldest first.
// Zero bounds are open.
func (r *MeasurementRepository) ListByDevice(ctx context.Context, deviceUID string, from, to time.Time) ([]model.Measurement, error) {
	measurements := []model.Measurement{}
	query := r.db.WithContext(ctx).Where("device_uid = ?", deviceUID)
	if !from.IsZero() {
		query = query.Where("timestamp >= ?", from.UTC())
	}
	if !to.IsZero() {
		query = query.Where("timestamp < ?", to.UTC())
	}
	err := query.Order("timestamp ASC").Order("id ASC").Find(&measurements).Error
	return measurements, err
}
