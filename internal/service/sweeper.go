package service

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quocanhngo/airguard/internal/model"
	"github.com/quocanhngo/airguard/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// DeviceLister enumerates known devices
type DeviceLister interface {
	List(ctx context.Context) ([]model.Device, error)
}

// LatestReader returns a device's most recent measurement or nil
type LatestReader interface {
	Latest(ctx context.Context, deviceUID string) (*model.Measurement, error)
}

// SweepReport summarizes one sweep iteration
type SweepReport struct {
	Devices   int
	Refreshed int
	Skipped   int
	Failed    int
}

// Sweeper periodically re-reconciles every device from its latest measurement
type Sweeper struct {
	devices      DeviceLister
	measurements LatestReader
	status       Refresher
	interval     time.Duration
	concurrency  int
	logger       *log.Logger

	mu     sync.Mutex
	stop   chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
}

func NewSweeper(devices DeviceLister, measurements LatestReader, status Refresher, interval time.Duration, concurrency int, logger *log.Logger) *Sweeper {
	if logger == nil {
		logger = log.Default()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		devices:      devices,
		measurements: measurements,
		status:       status,
		interval:     interval,
		concurrency:  concurrency,
		logger:       logger,
	}
}

// Start launches the sweep loop. The first sweep runs after one interval.
func (s *Sweeper) Start(parent context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(ctx, s.stop, s.done)
	s.logger.Printf("🔁 Sweep loop started (every %s, %d workers)", s.interval, s.concurrency)
}

func (s *Sweeper) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			report := s.SweepOnce(ctx)
			if report.Failed > 0 {
				s.logger.Printf("⚠️  Sweep finished: %d devices, %d refreshed, %d skipped, %d failed",
					report.Devices, report.Refreshed, report.Skipped, report.Failed)
			}
		}
	}
}

// Stop lets the running iteration finish within grace, then cancels it
func (s *Sweeper) Stop(grace time.Duration) {
	s.mu.Lock()
	if s.done == nil {
		s.mu.Unlock()
		return
	}
	stop, done, cancel := s.stop, s.done, s.cancel
	s.stop, s.done, s.cancel = nil, nil, nil
	s.mu.Unlock()

	close(stop)
	select {
	case <-done:
	case <-time.After(grace):
		s.logger.Printf("⏱  Sweep still running after %s, cancelling", grace)
		cancel()
		<-done
	}
	cancel()
}

// SweepOnce refreshes every device that has at least one measurement. A
// device failure is logged and counted, never propagated.
func (s *Sweeper) SweepOnce(ctx context.Context) SweepReport {
	start := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	devices, err := s.devices.List(ctx)
	if err != nil {
		s.logger.Printf("❌ Sweep could not list devices: %v", err)
		return SweepReport{}
	}

	var refreshed, skipped, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i := range devices {
		device := &devices[i]
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			m, err := s.measurements.Latest(ctx, device.UID)
			if err != nil {
				failed.Add(1)
				metrics.SweepFailures.Inc()
				s.logger.Printf("❌ Sweep skipped %s: %v: %v", device.UID, ErrStoreUnavailable, err)
				return nil
			}
			if m == nil {
				skipped.Add(1)
				return nil
			}
			if _, err := s.status.Refresh(ctx, device, m); err != nil {
				failed.Add(1)
				metrics.SweepFailures.Inc()
				s.logger.Printf("❌ Sweep reconcile failed for %s: %v", device.UID, err)
				return nil
			}
			refreshed.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return SweepReport{
		Devices:   len(devices),
		Refreshed: int(refreshed.Load()),
		Skipped:   int(skipped.Load()),
		Failed:    int(failed.Load()),
	}
}
