package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/quocanhngo/airguard/internal/airquality"
	"github.com/quocanhngo/airguard/internal/model"
	"github.com/quocanhngo/airguard/pkg/metrics"
	"github.com/quocanhngo/airguard/pkg/weather"
)

// AlertNotifier is told once when a device enters the alert state
type AlertNotifier interface {
	NotifyAlert(ctx context.Context, event model.StatusEvent) error
}

// StatusPublisher fans status events out to live dashboards
type StatusPublisher interface {
	PublishStatus(ctx context.Context, event model.StatusEvent) error
}

// AlertStateStore records whether a device is currently alerting
type AlertStateStore interface {
	SetAlertActive(ctx context.Context, uid string, active bool) (bool, error)
}

// OutdoorDefaults substitute for the weather lookup when it is unavailable
type OutdoorDefaults struct {
	Temperature float64
	Humidity    float64
	CO2         float64
	Latitude    *float64
	Longitude   *float64
}

// StatusService runs evaluate → estimate → render → reconcile for one device.
// Ingestion and the sweep both go through Refresh.
type StatusService struct {
	reconciler     *Reconciler
	measurements   LatestReader
	thresholds     airquality.ThresholdProvider
	weather        weather.Provider
	weatherTimeout time.Duration
	defaults       OutdoorDefaults
	alerts         AlertStateStore
	notifiers      []AlertNotifier
	publisher      StatusPublisher
	logger         *log.Logger
}

type StatusServiceConfig struct {
	// Measurements is re-read under the device lock so the newest stored
	// reading is the one rendered. Nil renders the reading passed to Refresh.
	Measurements   LatestReader
	Thresholds     airquality.ThresholdProvider
	Weather        weather.Provider // optional
	WeatherTimeout time.Duration
	Defaults       OutdoorDefaults
	Alerts         AlertStateStore // optional
	Notifiers      []AlertNotifier
	Publisher      StatusPublisher // optional
	Logger         *log.Logger
}

func NewStatusService(reconciler *Reconciler, cfg StatusServiceConfig) *StatusService {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Thresholds == nil {
		cfg.Thresholds = airquality.StaticThresholds{Limits: airquality.DefaultLimits()}
	}
	return &StatusService{
		reconciler:     reconciler,
		measurements:   cfg.Measurements,
		thresholds:     cfg.Thresholds,
		weather:        cfg.Weather,
		weatherTimeout: cfg.WeatherTimeout,
		defaults:       cfg.Defaults,
		alerts:         cfg.Alerts,
		notifiers:      cfg.Notifiers,
		publisher:      cfg.Publisher,
		logger:         cfg.Logger,
	}
}

// Evaluate computes the classification and ventilation estimate without side effects
func (s *StatusService) Evaluate(ctx context.Context, device *model.Device, m *model.Measurement) StatusView {
	limits := s.thresholds.LimitsFor(device.UID)
	reading := m.Reading()
	eval := airquality.Evaluate(reading, limits)
	est := airquality.Ventilate(reading, eval, limits, device.Geometry, s.outdoor(ctx, device))
	return StatusView{
		Device:      device,
		Measurement: m,
		Limits:      limits,
		Evaluation:  eval,
		Estimate:    est,
	}
}

// Refresh reconciles the device's live message with its newest stored
// measurement, falling back to m. Everything from the read to the alert
// bookkeeping runs under the device lock, so a refresh started with an older
// reading can never render after a newer one.
func (s *StatusService) Refresh(ctx context.Context, device *model.Device, m *model.Measurement) (*model.StatusEvent, error) {
	unlock := s.reconciler.locks.Lock(device.UID)
	defer unlock()

	m, err := s.newest(ctx, device.UID, m)
	if err != nil {
		return nil, err
	}
	view := s.Evaluate(ctx, device, m)

	rec, err := s.reconciler.reconcileLocked(ctx, device.UID, Render(view))
	if err != nil {
		return nil, err
	}

	event := model.StatusEvent{
		DeviceUID:  device.UID,
		DeviceName: device.DisplayName(),
		Alert:      view.Evaluation.HasAlert(),
		Evaluation: view.Evaluation,
		Reading:    *m,
		MessageRef: rec.Ref,
		At:         time.Now().UTC(),
	}
	if event.Alert {
		event.Flow = view.Estimate.Flow
		recovery := view.Estimate.Recovery
		event.Recovery = &recovery
	}

	s.trackAlert(ctx, event)

	if s.publisher != nil {
		if err := s.publisher.PublishStatus(ctx, event); err != nil {
			s.logger.Printf("⚠️  Failed to publish status for %s: %v", device.UID, err)
		}
	}
	return &event, nil
}

func (s *StatusService) newest(ctx context.Context, uid string, m *model.Measurement) (*model.Measurement, error) {
	if s.measurements == nil {
		return m, nil
	}
	latest, err := s.measurements.Latest(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("%w: latest measurement: %w", ErrStoreUnavailable, err)
	}
	if latest == nil || isOlder(latest, m) {
		return m, nil
	}
	return latest, nil
}

// isOlder orders measurements like the store does: timestamp, then id
func isOlder(a, b *model.Measurement) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID < b.ID
}

// trackAlert fires onset notifiers on the normal → alert edge
func (s *StatusService) trackAlert(ctx context.Context, event model.StatusEvent) {
	if s.alerts == nil {
		return
	}
	changed, err := s.alerts.SetAlertActive(ctx, event.DeviceUID, event.Alert)
	if err != nil {
		s.logger.Printf("⚠️  Failed to record alert state for %s: %v", event.DeviceUID, err)
		return
	}
	if !changed {
		return
	}
	if !event.Alert {
		metrics.DevicesInAlert.Dec()
		return
	}
	metrics.DevicesInAlert.Inc()
	for _, n := range s.notifiers {
		if err := n.NotifyAlert(ctx, event); err != nil {
			s.logger.Printf("⚠️  Alert notifier failed for %s: %v", event.DeviceUID, err)
		}
	}
}

func (s *StatusService) outdoor(ctx context.Context, device *model.Device) airquality.Outdoor {
	out := airquality.Outdoor{
		Temperature: s.defaults.Temperature,
		Humidity:    s.defaults.Humidity,
		CO2:         s.defaults.CO2,
	}
	if s.weather == nil {
		return out
	}

	lat, lon := device.Latitude, device.Longitude
	if !device.HasLocation() {
		lat, lon = s.defaults.Latitude, s.defaults.Longitude
	}
	if lat == nil || lon == nil {
		return out
	}

	lookupCtx := ctx
	if s.weatherTimeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, s.weatherTimeout)
		defer cancel()
	}
	cond, err := s.weather.Lookup(lookupCtx, *lat, *lon)
	if err != nil {
		metrics.WeatherLookups.WithLabelValues("fallback").Inc()
		s.logger.Printf("🌦  %v for %s, using defaults: %v", ErrWeatherUnavailable, device.UID, err)
		return out
	}
	metrics.WeatherLookups.WithLabelValues("ok").Inc()

	out.Temperature = cond.Temperature
	out.WindSpeed = cond.WindSpeed
	if cond.Humidity > 0 {
		out.Humidity = cond.Humidity
	}
	return out
}
