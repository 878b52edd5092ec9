package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/quocanhngo/airguard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLister struct {
	devices []model.Device
	err     error
}

func (s staticLister) List(context.Context) ([]model.Device, error) {
	return s.devices, s.err
}

type mapLatest map[string]*model.Measurement

func (m mapLatest) Latest(_ context.Context, uid string) (*model.Measurement, error) {
	if uid == "broken-store" {
		return nil, errors.New("db down")
	}
	return m[uid], nil
}

type countingRefresher struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
	delay time.Duration
}

func (c *countingRefresher) Refresh(ctx context.Context, d *model.Device, _ *model.Measurement) (*model.StatusEvent, error) {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[d.UID]++
	if c.fail[d.UID] {
		return nil, ErrChannelTransport
	}
	return &model.StatusEvent{DeviceUID: d.UID}, nil
}

func TestSweepOnce_SkipsEmptyAndToleratesFailures(t *testing.T) {
	lister := staticLister{devices: []model.Device{
		{UID: "ok-1"}, {UID: "empty"}, {UID: "flaky"}, {UID: "broken-store"}, {UID: "ok-2"},
	}}
	latest := mapLatest{
		"ok-1":  {DeviceUID: "ok-1", CO2: 500},
		"flaky": {DeviceUID: "flaky", CO2: 1500},
		"ok-2":  {DeviceUID: "ok-2", CO2: 1200},
	}
	refresher := &countingRefresher{calls: map[string]int{}, fail: map[string]bool{"flaky": true}}
	s := NewSweeper(lister, latest, refresher, time.Minute, 2, discardLogger)

	report := s.SweepOnce(context.Background())

	assert.Equal(t, SweepReport{Devices: 5, Refreshed: 2, Skipped: 1, Failed: 2}, report)
	assert.Equal(t, 1, refresher.calls["ok-1"])
	assert.Equal(t, 1, refresher.calls["ok-2"])
	assert.Zero(t, refresher.calls["empty"])
}

func TestSweepOnce_ListFailure(t *testing.T) {
	s := NewSweeper(staticLister{err: errors.New("db down")}, mapLatest{}, &countingRefresher{calls: map[string]int{}}, time.Minute, 1, discardLogger)
	assert.Equal(t, SweepReport{}, s.SweepOnce(context.Background()))
}

func TestSweeper_RunsPeriodicallyAndStops(t *testing.T) {
	lister := staticLister{devices: []model.Device{{UID: "a"}}}
	latest := mapLatest{"a": {DeviceUID: "a", CO2: 500}}
	refresher := &countingRefresher{calls: map[string]int{}}
	s := NewSweeper(lister, latest, refresher, 10*time.Millisecond, 1, discardLogger)

	s.Start(context.Background())
	require.Eventually(t, func() bool {
		refresher.mu.Lock()
		defer refresher.mu.Unlock()
		return refresher.calls["a"] >= 2
	}, time.Second, 5*time.Millisecond)
	s.Stop(time.Second)

	refresher.mu.Lock()
	after := refresher.calls["a"]
	refresher.mu.Unlock()
	time.Sleep(50 * time.Millisecond)
	refresher.mu.Lock()
	defer refresher.mu.Unlock()
	assert.Equal(t, after, refresher.calls["a"])
}

func TestSweeper_StopCutsOffAfterGrace(t *testing.T) {
	lister := staticLister{devices: []model.Device{{UID: "a"}}}
	latest := mapLatest{"a": {DeviceUID: "a", CO2: 500}}
	refresher := &countingRefresher{calls: map[string]int{}, delay: 10 * time.Second}
	s := NewSweeper(lister, latest, refresher, 5*time.Millisecond, 1, discardLogger)

	s.Start(context.Background())
	time.Sleep(30 * time.Millisecond)

	start := time.Now()
	s.Stop(50 * time.Millisecond)
	assert.Less(t, time.Since(start), 2*time.Second)
}
