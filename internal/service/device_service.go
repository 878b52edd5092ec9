package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/airguard/internal/model"
	"github.com/quocanhngo/airguard/internal/repository"
	"github.com/quocanhngo/airguard/pkg/storage"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DeviceService backs the admin device endpoints
type DeviceService struct {
	deviceRepo      *repository.DeviceRepository
	measurementRepo *repository.MeasurementRepository
	status          Refresher
	archive         storage.Storage
	bcryptCost      int
}

func NewDeviceService(
	deviceRepo *repository.DeviceRepository,
	measurementRepo *repository.MeasurementRepository,
	status Refresher,
	archive storage.Storage,
	bcryptCost int,
) *DeviceService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &DeviceService{
		deviceRepo:      deviceRepo,
		measurementRepo: measurementRepo,
		status:          status,
		archive:         archive,
		bcryptCost:      bcryptCost,
	}
}

// ==================== Registry ====================

// List returns all devices
func (s *DeviceService) List(ctx context.Context) ([]model.DeviceResponse, error) {
	devices, err := s.deviceRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	resp := make([]model.DeviceResponse, 0, len(devices))
	for i := range devices {
		resp = append(resp, devices[i].ToResponse())
	}
	return resp, nil
}

// Provision registers a device ahead of its first reading
func (s *DeviceService) Provision(ctx context.Context, req model.ProvisionDeviceRequest) (*model.DeviceResponse, error) {
	existing, err := s.deviceRepo.FindByUID(ctx, req.UID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if existing != nil {
		return nil, ErrDeviceExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.APIKey), s.bcryptCost)
	if err != nil {
		return nil, errors.New("failed to hash credential")
	}

	device := &model.Device{
		UID:            req.UID,
		CredentialHash: string(hash),
		Name:           req.Name,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
	}
	if req.Geometry != nil {
		device.Geometry = *req.Geometry
	}
	if err := s.deviceRepo.Create(ctx, device); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDeviceExists
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	resp := device.ToResponse()
	return &resp, nil
}

// UpdateProfile changes name, geometry or location. Credentials and the live
// message reference are not editable.
func (s *DeviceService) UpdateProfile(ctx context.Context, uid string, req model.UpdateDeviceRequest) (*model.DeviceResponse, error) {
	device, err := s.find(ctx, uid)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		device.Name = *req.Name
	}
	if req.Geometry != nil {
		device.Geometry = *req.Geometry
	}
	if req.Latitude != nil {
		device.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		device.Longitude = req.Longitude
	}

	if err := s.deviceRepo.UpdateProfile(ctx, device); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	resp := device.ToResponse()
	return &resp, nil
}

// RefreshNow reconciles the device from its latest measurement immediately
func (s *DeviceService) RefreshNow(ctx context.Context, uid string) (*model.StatusEvent, error) {
	device, err := s.find(ctx, uid)
	if err != nil {
		return nil, err
	}
	m, err := s.measurementRepo.Latest(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if m == nil {
		return nil, ErrNoMeasurement
	}
	return s.status.Refresh(ctx, device, m)
}

// ==================== Export ====================

var csvHeader = []string{"timestamp", "device_uid", "co2", "temperature", "humidity", "pressure"}

// Export writes the device's measurements in [from, to) as CSV to the archive
func (s *DeviceService) Export(ctx context.Context, uid string, from, to time.Time) (*model.ExportResponse, error) {
	if s.archive == nil {
		return nil, ErrExportDisabled
	}
	if _, err := s.find(ctx, uid); err != nil {
		return nil, err
	}

	rows, err := s.measurementRepo.ListByDevice(ctx, uid, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	data, err := EncodeCSV(rows)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("exports/%s/%s-%s.csv", uid, time.Now().UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
	res, err := s.archive.Put(ctx, key, "text/csv", data)
	if err != nil {
		return nil, err
	}
	return &model.ExportResponse{ObjectKey: res.Key, URL: res.URL, ExpiresAt: res.ExpiresAt, Rows: len(rows)}, nil
}

// EncodeCSV renders measurements with a header row
func EncodeCSV(rows []model.Measurement) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, m := range rows {
		pressure := ""
		if m.Pressure != nil {
			pressure = strconv.FormatFloat(*m.Pressure, 'f', -1, 64)
		}
		record := []string{
			m.Timestamp.UTC().Format(time.RFC3339),
			m.DeviceUID,
			strconv.Itoa(m.CO2),
			strconv.FormatFloat(m.Temperature, 'f', -1, 64),
			strconv.FormatFloat(m.Humidity, 'f', -1, 64),
			pressure,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func (s *DeviceService) find(ctx context.Context, uid string) (*model.Device, error) {
	device, err := s.deviceRepo.FindByUID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if device == nil {
		return nil, ErrDeviceNotFound
	}
	return device, nil
}
