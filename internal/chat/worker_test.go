package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDispatcherKeepsChatOrder(t *testing.T) {
	f := newFixture()
	f.seedAdmin()
	d := NewDispatcher(f.engine)
	ctx := context.Background()

	// The whole creation dialogue fired back to back only produces a
	// consistent point if the worker handles events strictly in order.
	d.Dispatch(ctx, &Event{ChatID: adminChatID, SenderID: adminChatID, Kind: EventCallback, Text: "pt_create"})
	d.Dispatch(ctx, &Event{ChatID: adminChatID, SenderID: adminChatID, Kind: EventText, Text: "Clock tower"})
	d.Dispatch(ctx, &Event{ChatID: adminChatID, SenderID: adminChatID, Kind: EventText, Text: "The tall one"})
	d.Dispatch(ctx, &Event{ChatID: adminChatID, SenderID: adminChatID, Kind: EventLocation, Latitude: 3, Longitude: 4})

	require.Eventually(t, func() bool {
		points, _ := f.store.Points()
		return len(points) == 1
	}, time.Second, 5*time.Millisecond)

	points, _ := f.store.Points()
	require.Equal(t, "Clock tower", points[0].Name)
	require.Equal(t, "The tall one", points[0].Description)
	require.Equal(t, 3.0, points[0].Latitude)
}

func TestDispatcherWorkerPerChat(t *testing.T) {
	f := newFixture()
	d := NewDispatcher(f.engine)
	ctx := context.Background()

	for chat := int64(1); chat <= 5; chat++ {
		d.Dispatch(ctx, &Event{ChatID: chat, SenderID: chat, Kind: EventText, Text: "hello"})
	}
	require.Equal(t, 5, d.Workers())

	// Same chat again reuses its worker.
	d.Dispatch(ctx, &Event{ChatID: 1, SenderID: 1, Kind: EventText, Text: "again"})
	require.Equal(t, 5, d.Workers())
}

func TestDispatcherDropsWhenChatFloods(t *testing.T) {
	f := newFixture()
	d := NewDispatcher(f.engine)
	ctx := context.Background()

	// Far beyond queue depth; the dispatcher must not block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < chatQueueDepth*4; i++ {
			d.Dispatch(ctx, &Event{ChatID: 9, SenderID: 9, Kind: EventText, Text: fmt.Sprintf("msg %v", i)})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch blocked on a flooded chat queue")
	}
}
