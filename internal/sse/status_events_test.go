package sse

import (
	"context"
	"testing"
	"time"

	"festival-ticketing/internal/recon"
	"festival-ticketing/internal/status"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeAndEmit(t *testing.T) {
	emitter := NewStatusEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := emitter.Subscribe(ctx, "FEST-1-000001")
	assert.Equal(t, 1, emitter.ClientCount("FEST-1-000001"))

	emitter.EmitStatusChange("FEST-1-000001", recon.Result{
		OrderNumber: "FEST-1-000001",
		Outcome:     recon.OutcomeTransitioned,
		NewStatus:   status.Settlement,
	})

	select {
	case result := <-events:
		assert.Equal(t, status.Settlement, result.NewStatus)
	case <-time.After(time.Second):
		t.Fatal("expected a status event")
	}
}

func TestEmit_OnlyReachesMatchingOrder(t *testing.T) {
	emitter := NewStatusEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := emitter.Subscribe(ctx, "ORDER-A")
	b := emitter.Subscribe(ctx, "ORDER-B")

	emitter.EmitStatusChange("ORDER-A", recon.Result{OrderNumber: "ORDER-A"})

	select {
	case <-a:
	case <-time.After(time.Second):
		t.Fatal("subscriber for ORDER-A should receive the event")
	}

	select {
	case <-b:
		t.Fatal("subscriber for ORDER-B must not receive ORDER-A events")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestContextCancelRemovesSubscriber(t *testing.T) {
	emitter := NewStatusEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())

	events := emitter.Subscribe(ctx, "FEST-1-000001")
	require.Equal(t, 1, emitter.ClientCount("FEST-1-000001"))

	cancel()

	// The channel closes once the removal goroutine runs.
	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel should be closed after context cancel")
	}
	assert.Equal(t, 0, emitter.ClientCount("FEST-1-000001"))
}

func TestEmit_SlowClientNeverBlocks(t *testing.T) {
	emitter := NewStatusEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	emitter.Subscribe(ctx, "FEST-1-000001") // nobody reads

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			emitter.EmitStatusChange("FEST-1-000001", recon.Result{})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit must not block on a slow client")
	}
}
