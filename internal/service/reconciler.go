package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/quocanhngo/airguard/internal/model"
	"github.com/quocanhngo/airguard/pkg/metrics"
	"github.com/quocanhngo/airguard/pkg/telegram"
)

// MessageChannel is the push/edit notification surface
type MessageChannel interface {
	Send(ctx context.Context, text string) (string, error)
	Update(ctx context.Context, ref, text string) (telegram.UpdateResult, error)
}

// MessageRefStore is the part of the device registry the reconciler touches
type MessageRefStore interface {
	FindByUID(ctx context.Context, uid string) (*model.Device, error)
	SetLiveMessageRef(ctx context.Context, uid string, ref *string) error
}

// Reconcile actions
const (
	ActionSent    = "sent"
	ActionUpdated = "updated"
	ActionResent  = "resent"
)

// Reconciliation describes what one reconcile call did
type Reconciliation struct {
	Ref    string
	Action string
}

// Reconciler keeps at most one live message per device. Calls for the same
// device are serialized; different devices proceed independently.
type Reconciler struct {
	devices MessageRefStore
	channel MessageChannel
	timeout time.Duration
	locks   *keyedMutex
	logger  *log.Logger
}

func NewReconciler(devices MessageRefStore, channel MessageChannel, timeout time.Duration, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{
		devices: devices,
		channel: channel,
		timeout: timeout,
		locks:   newKeyedMutex(),
		logger:  logger,
	}
}

// Reconcile brings the device's live message in line with text. The stored
// reference is read and written under the device lock and only written after
// the channel succeeded.
func (r *Reconciler) Reconcile(ctx context.Context, uid, text string) (Reconciliation, error) {
	unlock := r.locks.Lock(uid)
	defer unlock()
	return r.reconcileLocked(ctx, uid, text)
}

// reconcileLocked expects the caller to hold the lock for uid
func (r *Reconciler) reconcileLocked(ctx context.Context, uid, text string) (Reconciliation, error) {
	device, err := r.devices.FindByUID(ctx, uid)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if device == nil {
		return Reconciliation{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, uid)
	}

	result, err := r.deliver(ctx, device.LiveMessageRef, text)
	if err != nil {
		metrics.ReconcileTotal.WithLabelValues("failed").Inc()
		return Reconciliation{}, err
	}

	if err := r.devices.SetLiveMessageRef(ctx, uid, &result.Ref); err != nil {
		metrics.ReconcileTotal.WithLabelValues("failed").Inc()
		return Reconciliation{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	metrics.ReconcileTotal.WithLabelValues(result.Action).Inc()
	return result, nil
}

// deliver gives every channel call its own deadline, so a fallback send is
// not starved by the update that preceded it
func (r *Reconciler) deliver(ctx context.Context, current *string, text string) (Reconciliation, error) {
	if current == nil || *current == "" {
		ref, err := r.send(ctx, text)
		if err != nil {
			return Reconciliation{}, fmt.Errorf("%w: %w", ErrChannelTransport, err)
		}
		return Reconciliation{Ref: ref, Action: ActionSent}, nil
	}

	res, err := r.update(ctx, *current, text)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("%w: %w", ErrChannelTransport, err)
	}
	if res == telegram.Updated {
		return Reconciliation{Ref: *current, Action: ActionUpdated}, nil
	}

	r.logger.Printf("♻️  Message %s no longer editable, sending a new one", *current)
	ref, err := r.send(ctx, text)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("%w: fallback send: %w", ErrChannelTransport, err)
	}
	return Reconciliation{Ref: ref, Action: ActionResent}, nil
}

func (r *Reconciler) send(ctx context.Context, text string) (string, error) {
	ctx, cancel := r.callContext(ctx)
	defer cancel()
	return r.channel.Send(ctx, text)
}

func (r *Reconciler) update(ctx context.Context, ref, text string) (telegram.UpdateResult, error) {
	ctx, cancel := r.callContext(ctx)
	defer cancel()
	return r.channel.Update(ctx, ref, text)
}

func (r *Reconciler) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}
