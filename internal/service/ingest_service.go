package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/quocanhngo/airguard/internal/model"
	"github.com/quocanhngo/airguard/pkg/metrics"
	"golang.org/x/crypto/bcrypt"
)

const maxUIDLength = 64

// DeviceRegistry is the device store used by ingestion
type DeviceRegistry interface {
	FindByUID(ctx context.Context, uid string) (*model.Device, error)
	RegisterIfAbsent(ctx context.Context, device *model.Device) (*model.Device, error)
	TouchLastSeen(ctx context.Context, uid string, at time.Time) error
}

// MeasurementWriter appends readings
type MeasurementWriter interface {
	Insert(ctx context.Context, m *model.Measurement) error
}

// MeasurementPublisher forwards accepted readings downstream
type MeasurementPublisher interface {
	PublishMeasurement(ctx context.Context, m model.Measurement) error
}

// Refresher reconciles a device against a measurement
type Refresher interface {
	Refresh(ctx context.Context, device *model.Device, m *model.Measurement) (*model.StatusEvent, error)
}

// Reading is one inbound sample
type Reading struct {
	CO2         int
	Temperature float64
	Humidity    float64
	Pressure    *float64
	Timestamp   time.Time // zero means now
}

// IngestService authenticates, stores and then reconciles in the background.
// Callers are acknowledged once the measurement is stored.
type IngestService struct {
	devices      DeviceRegistry
	measurements MeasurementWriter
	status       Refresher
	publisher    MeasurementPublisher
	bcryptCost   int
	timeout      time.Duration
	logger       *log.Logger

	bg     context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type IngestServiceConfig struct {
	Publisher      MeasurementPublisher // optional
	BcryptCost     int
	RefreshTimeout time.Duration
	Logger         *log.Logger
}

func NewIngestService(devices DeviceRegistry, measurements MeasurementWriter, status Refresher, cfg IngestServiceConfig) *IngestService {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = 30 * time.Second
	}
	bg, cancel := context.WithCancel(context.Background())
	return &IngestService{
		devices:      devices,
		measurements: measurements,
		status:       status,
		publisher:    cfg.Publisher,
		bcryptCost:   cfg.BcryptCost,
		timeout:      cfg.RefreshTimeout,
		logger:       cfg.Logger,
		bg:           bg,
		cancel:       cancel,
	}
}

// Ingest stores a reading for uid. Unknown devices are registered with the
// presented credential; known devices must present the same one.
func (s *IngestService) Ingest(ctx context.Context, source, uid, credential string, r Reading) (*model.Measurement, error) {
	m, err := s.ingest(ctx, uid, credential, r)
	metrics.IngestTotal.WithLabelValues(source, ingestOutcome(err)).Inc()
	return m, err
}

func (s *IngestService) ingest(ctx context.Context, uid, credential string, r Reading) (*model.Measurement, error) {
	if err := validateReading(uid, credential, r); err != nil {
		return nil, err
	}

	device, err := s.authenticate(ctx, uid, credential)
	if err != nil {
		return nil, err
	}

	m := &model.Measurement{
		DeviceUID:   uid,
		CO2:         r.CO2,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Pressure:    r.Pressure,
		Timestamp:   r.Timestamp,
	}
	if err := s.measurements.Insert(ctx, m); err != nil {
		return nil, fmt.Errorf("%w: insert measurement: %w", ErrStoreUnavailable, err)
	}

	if err := s.devices.TouchLastSeen(ctx, uid, m.Timestamp); err != nil {
		s.logger.Printf("⚠️  Failed to update last seen for %s: %v", uid, err)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishMeasurement(ctx, *m); err != nil {
			s.logger.Printf("⚠️  Failed to stream measurement for %s: %v", uid, err)
		}
	}

	s.dispatch(device, m)
	return m, nil
}

func (s *IngestService) authenticate(ctx context.Context, uid, credential string) (*model.Device, error) {
	device, err := s.devices.FindByUID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("%w: find device: %w", ErrStoreUnavailable, err)
	}

	if device == nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(credential), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash credential: %w", err)
		}
		device, err = s.devices.RegisterIfAbsent(ctx, &model.Device{UID: uid, CredentialHash: string(hash)})
		if err != nil {
			return nil, fmt.Errorf("%w: register device: %w", ErrStoreUnavailable, err)
		}
		s.logger.Printf("🆕 Device %s registered", uid)
	}

	// also covers a concurrent first contact that registered a different credential
	if err := bcrypt.CompareHashAndPassword([]byte(device.CredentialHash), []byte(credential)); err != nil {
		return nil, ErrAuthentication
	}
	return device, nil
}

// dispatch reconciles off the request path
func (s *IngestService) dispatch(device *model.Device, m *model.Measurement) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.bg, s.timeout)
		defer cancel()
		if _, err := s.status.Refresh(ctx, device, m); err != nil {
			s.logger.Printf("❌ Reconcile after ingest failed for %s: %v", device.UID, err)
		}
	}()
}

// Wait blocks until all dispatched reconciliations finished
func (s *IngestService) Wait() {
	s.wg.Wait()
}

// Shutdown waits for background reconciliations until ctx expires, then
// cancels the ones still running.
func (s *IngestService) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

func validateReading(uid, credential string, r Reading) error {
	switch {
	case uid == "" || len(uid) > maxUIDLength:
		return fmt.Errorf("%w: device_uid must be 1-%d characters", ErrValidation, maxUIDLength)
	case credential == "":
		return fmt.Errorf("%w: api_key is required", ErrValidation)
	case r.CO2 < 0 || r.CO2 > 100000:
		return fmt.Errorf("%w: co2 %d out of range", ErrValidation, r.CO2)
	case !finite(r.Temperature) || r.Temperature < -60 || r.Temperature > 100:
		return fmt.Errorf("%w: temperature %v out of range", ErrValidation, r.Temperature)
	case !finite(r.Humidity) || r.Humidity < 0 || r.Humidity > 100:
		return fmt.Errorf("%w: humidity %v out of range", ErrValidation, r.Humidity)
	case r.Pressure != nil && (!finite(*r.Pressure) || *r.Pressure <= 0):
		return fmt.Errorf("%w: pressure %v out of range", ErrValidation, *r.Pressure)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func ingestOutcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, ErrAuthentication):
		return "auth_failed"
	case errors.Is(err, ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
