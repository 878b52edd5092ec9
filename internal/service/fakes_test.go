package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/quocanhngo/airguard/internal/model"
	"github.com/quocanhngo/airguard/pkg/telegram"
)

var discardLogger = log.New(io.Discard, "", 0)

// fakeChannel records calls and keeps the latest text per reference
type fakeChannel struct {
	mu      sync.Mutex
	nextID  int
	sends   int
	updates int
	texts   map[string]string
	updRefs []string

	reject    bool
	sendErr   error
	updateErr error
	delay     time.Duration
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{texts: make(map[string]string)}
}

func (f *fakeChannel) Send(ctx context.Context, text string) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.nextID++
	ref := fmt.Sprintf("msg-%d", f.nextID)
	f.texts[ref] = text
	return ref, nil
}

func (f *fakeChannel) Update(ctx context.Context, ref, text string) (telegram.UpdateResult, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	f.updRefs = append(f.updRefs, ref)
	if f.updateErr != nil {
		return telegram.Updated, f.updateErr
	}
	if f.reject {
		return telegram.Rejected, nil
	}
	f.texts[ref] = text
	return telegram.Updated, nil
}

func (f *fakeChannel) counts() (sends, updates int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sends, f.updates
}

func (f *fakeChannel) text(ref string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.texts[ref]
}

// memDevices is an in-memory device registry
type memDevices struct {
	mu        sync.Mutex
	devices   map[string]*model.Device
	refWrites int
	findErr   error
	alerts    map[string]bool
}

func newMemDevices(uids ...string) *memDevices {
	m := &memDevices{devices: make(map[string]*model.Device), alerts: make(map[string]bool)}
	for _, uid := range uids {
		m.devices[uid] = &model.Device{UID: uid}
	}
	return m
}

func (m *memDevices) FindByUID(_ context.Context, uid string) (*model.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	d, ok := m.devices[uid]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (m *memDevices) SetLiveMessageRef(_ context.Context, uid string, ref *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refWrites++
	d, ok := m.devices[uid]
	if !ok {
		return errors.New("no such device")
	}
	if ref == nil {
		d.LiveMessageRef = nil
		return nil
	}
	v := *ref
	d.LiveMessageRef = &v
	return nil
}

func (m *memDevices) SetAlertActive(_ context.Context, uid string, active bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.alerts[uid] == active {
		return false, nil
	}
	m.alerts[uid] = active
	return true, nil
}

func (m *memDevices) ref(uid string) *string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.devices[uid]; ok && d.LiveMessageRef != nil {
		v := *d.LiveMessageRef
		return &v
	}
	return nil
}

// recordingNotifier counts alert onsets
type recordingNotifier struct {
	mu     sync.Mutex
	events []model.StatusEvent
}

func (r *recordingNotifier) NotifyAlert(_ context.Context, e model.StatusEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingNotifier) PublishStatus(ctx context.Context, e model.StatusEvent) error {
	return r.NotifyAlert(ctx, e)
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// blockingChannel honours ctx and never answers
type blockingChannel struct{}

func (blockingChannel) Send(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (blockingChannel) Update(ctx context.Context, _, _ string) (telegram.UpdateResult, error) {
	<-ctx.Done()
	return telegram.Updated, ctx.Err()
}
