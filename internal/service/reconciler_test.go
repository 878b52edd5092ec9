package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/quocanhngo/airguard/pkg/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_FirstCallSends(t *testing.T) {
	devices := newMemDevices("dev-1")
	ch := newFakeChannel()
	r := NewReconciler(devices, ch, time.Second, discardLogger)

	got, err := r.Reconcile(context.Background(), "dev-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, ActionSent, got.Action)
	assert.Equal(t, "msg-1", got.Ref)
	require.NotNil(t, devices.ref("dev-1"))
	assert.Equal(t, "msg-1", *devices.ref("dev-1"))
	assert.Equal(t, 1, devices.refWrites)
}

func TestReconcile_Idempotent(t *testing.T) {
	devices := newMemDevices("dev-1")
	ch := newFakeChannel()
	r := NewReconciler(devices, ch, time.Second, discardLogger)
	ctx := context.Background()

	first, err := r.Reconcile(ctx, "dev-1", "same")
	require.NoError(t, err)
	second, err := r.Reconcile(ctx, "dev-1", "same")
	require.NoError(t, err)

	assert.Equal(t, first.Ref, second.Ref)
	assert.Equal(t, ActionUpdated, second.Action)
	sends, updates := ch.counts()
	assert.Equal(t, 1, sends)
	assert.Equal(t, 1, updates)
	assert.Equal(t, first.Ref, *devices.ref("dev-1"))
}

func TestReconcile_RejectedUpdateFallsBackToSend(t *testing.T) {
	devices := newMemDevices("dev-1")
	ch := newFakeChannel()
	r := NewReconciler(devices, ch, time.Second, discardLogger)
	ctx := context.Background()

	_, err := r.Reconcile(ctx, "dev-1", "v1")
	require.NoError(t, err)

	ch.reject = true
	got, err := r.Reconcile(ctx, "dev-1", "v2")
	require.NoError(t, err)

	assert.Equal(t, ActionResent, got.Action)
	assert.Equal(t, "msg-2", got.Ref)
	sends, updates := ch.counts()
	assert.Equal(t, 2, sends)
	assert.Equal(t, 1, updates)
	assert.Equal(t, "msg-2", *devices.ref("dev-1"))
	assert.Equal(t, 2, devices.refWrites)
}

func TestReconcile_TransportErrorKeepsReference(t *testing.T) {
	devices := newMemDevices("dev-1")
	ch := newFakeChannel()
	r := NewReconciler(devices, ch, time.Second, discardLogger)
	ctx := context.Background()

	_, err := r.Reconcile(ctx, "dev-1", "v1")
	require.NoError(t, err)

	ch.updateErr = errors.New("connection reset")
	_, err = r.Reconcile(ctx, "dev-1", "v2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChannelTransport))

	sends, _ := ch.counts()
	assert.Equal(t, 1, sends, "transport errors must not trigger the fallback send")
	assert.Equal(t, "msg-1", *devices.ref("dev-1"))
	assert.Equal(t, 1, devices.refWrites)
}

func TestReconcile_UpdateAndFallbackBothFail(t *testing.T) {
	devices := newMemDevices("dev-1")
	ch := newFakeChannel()
	r := NewReconciler(devices, ch, time.Second, discardLogger)
	ctx := context.Background()

	_, err := r.Reconcile(ctx, "dev-1", "v1")
	require.NoError(t, err)

	ch.reject = true
	ch.sendErr = errors.New("timeout")
	_, err = r.Reconcile(ctx, "dev-1", "v2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChannelTransport))
	assert.Equal(t, "msg-1", *devices.ref("dev-1"))
	assert.Equal(t, 1, devices.refWrites)
}

func TestReconcile_SendFailureLeavesNoReference(t *testing.T) {
	devices := newMemDevices("dev-1")
	ch := newFakeChannel()
	ch.sendErr = errors.New("unreachable")
	r := NewReconciler(devices, ch, time.Second, discardLogger)

	_, err := r.Reconcile(context.Background(), "dev-1", "v1")
	assert.True(t, errors.Is(err, ErrChannelTransport))
	assert.Nil(t, devices.ref("dev-1"))
	assert.Zero(t, devices.refWrites)
}

func TestReconcile_StoreErrors(t *testing.T) {
	devices := newMemDevices()
	r := NewReconciler(devices, newFakeChannel(), time.Second, discardLogger)

	_, err := r.Reconcile(context.Background(), "ghost", "x")
	assert.True(t, errors.Is(err, ErrDeviceNotFound))

	devices.findErr = errors.New("db down")
	_, err = r.Reconcile(context.Background(), "ghost", "x")
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
}

func TestReconcile_ConcurrentCallsSendOnce(t *testing.T) {
	const n = 12
	devices := newMemDevices("dev-1")
	ch := newFakeChannel()
	ch.delay = 5 * time.Millisecond
	r := NewReconciler(devices, ch, time.Second, discardLogger)

	var wg sync.WaitGroup
	refs := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := r.Reconcile(context.Background(), "dev-1", "status")
			refs[i], errs[i] = res.Ref, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "msg-1", refs[i])
	}
	sends, updates := ch.counts()
	assert.Equal(t, 1, sends)
	assert.Equal(t, n-1, updates)
	for _, ref := range ch.updRefs {
		assert.Equal(t, "msg-1", ref)
	}
	assert.Zero(t, r.locks.size())
}

func TestReconcile_DevicesAreIndependent(t *testing.T) {
	devices := newMemDevices("a", "b")
	ch := newFakeChannel()
	r := NewReconciler(devices, ch, time.Second, discardLogger)
	ctx := context.Background()

	ra, err := r.Reconcile(ctx, "a", "x")
	require.NoError(t, err)
	rb, err := r.Reconcile(ctx, "b", "x")
	require.NoError(t, err)
	assert.NotEqual(t, ra.Ref, rb.Ref)
}

func TestReconcile_ChannelTimeoutIsBounded(t *testing.T) {
	devices := newMemDevices("dev-1")
	r := NewReconciler(devices, blockingChannel{}, 20*time.Millisecond, discardLogger)

	start := time.Now()
	_, err := r.Reconcile(context.Background(), "dev-1", "x")
	assert.True(t, errors.Is(err, ErrChannelTransport))
	assert.Less(t, time.Since(start), time.Second)
}

// slowRejectingChannel spends most of a call budget on each call and
// rejects every update
type slowRejectingChannel struct {
	latency time.Duration
}

func (c slowRejectingChannel) wait(ctx context.Context) error {
	select {
	case <-time.After(c.latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c slowRejectingChannel) Send(ctx context.Context, _ string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	return "fresh", nil
}

func (c slowRejectingChannel) Update(ctx context.Context, _, _ string) (telegram.UpdateResult, error) {
	if err := c.wait(ctx); err != nil {
		return telegram.Updated, err
	}
	return telegram.Rejected, nil
}

func TestReconcile_FallbackSendGetsItsOwnDeadline(t *testing.T) {
	devices := newMemDevices("dev-1")
	stale := "stale"
	require.NoError(t, devices.SetLiveMessageRef(context.Background(), "dev-1", &stale))

	r := NewReconciler(devices, slowRejectingChannel{latency: 60 * time.Millisecond}, 100*time.Millisecond, discardLogger)
	res, err := r.Reconcile(context.Background(), "dev-1", "x")
	require.NoError(t, err)
	assert.Equal(t, ActionResent, res.Action)
	assert.Equal(t, "fresh", *devices.ref("dev-1"))
}
