package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robinstudios/dot/internal/common/logger"
)

func newTestBus(t *testing.T) *MemoryEventBus {
	log, err := logger.NewLogger(logger.LoggingConfig{Level: "error", Format: "json"})
	require.NoError(t, err)
	b := NewMemoryEventBus(log)
	t.Cleanup(b.Close)
	return b
}

func TestMemoryEventBus_PublishSubscribe(t *testing.T) {
	b := newTestBus(t)
	received := make(chan *Event, 1)

	sub, err := b.Subscribe("export.job.j1", func(ctx context.Context, e *Event) error {
		received <- e
		return nil
	})
	require.NoError(t, err)
	defer func() { _ = sub.Unsubscribe() }()

	event := NewEvent("export.job.progress", "test", map[string]interface{}{"progress": 20.0})
	require.NoError(t, b.Publish(context.Background(), "export.job.j1", event))

	select {
	case e := <-received:
		assert.Equal(t, event.ID, e.ID)
		assert.Equal(t, "export.job.progress", e.Type)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestMemoryEventBus_DeliversInPublishOrder(t *testing.T) {
	b := newTestBus(t)

	var mu sync.Mutex
	var got []float64
	done := make(chan struct{})

	_, err := b.Subscribe("export.job.*", func(ctx context.Context, e *Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Data["progress"].(float64))
		if len(got) == 50 {
			close(done)
		}
		return nil
	})
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		require.NoError(t, b.Publish(context.Background(), "export.job.j1",
			NewEvent("export.job.progress", "test", map[string]interface{}{"progress": float64(i)})))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for events")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, p := range got {
		assert.Equal(t, float64(i), p)
	}
}

func TestMemoryEventBus_Wildcards(t *testing.T) {
	b := newTestBus(t)
	var single, multi int32

	_, err := b.Subscribe("export.job.*", func(ctx context.Context, e *Event) error {
		atomic.AddInt32(&single, 1)
		return nil
	})
	require.NoError(t, err)
	_, err = b.Subscribe("export.>", func(ctx context.Context, e *Event) error {
		atomic.AddInt32(&multi, 1)
		return nil
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, "export.job.a", NewEvent("t", "s", nil)))
	require.NoError(t, b.Publish(ctx, "export.job.a.extra", NewEvent("t", "s", nil)))
	require.NoError(t, b.Publish(ctx, "generation.completed", NewEvent("t", "s", nil)))

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&single) == 1 && atomic.LoadInt32(&multi) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryEventBus_UnsubscribeAndClose(t *testing.T) {
	b := newTestBus(t)
	var count int32

	sub, err := b.Subscribe("x", func(ctx context.Context, e *Event) error {
		atomic.AddInt32(&count, 1)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, sub.Unsubscribe())
	assert.False(t, sub.IsValid())

	require.NoError(t, b.Publish(context.Background(), "x", NewEvent("t", "s", nil)))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&count))

	b.Close()
	assert.False(t, b.IsConnected())
	assert.Error(t, b.Publish(context.Background(), "x", NewEvent("t", "s", nil)))
}
