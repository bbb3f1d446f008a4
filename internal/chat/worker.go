package chat

import (
	"context"
	"sync"
	"time"

	"questrail.io/questrail/pkg/log"
)

const (
	chatQueueDepth = 64
	chatQueueIdle  = 10 * time.Minute
)

// Dispatcher fans inbound events out to one worker goroutine per chat,
// so each dialogue sees its events strictly in order while separate
// chats proceed concurrently. Idle workers are reclaimed.
type Dispatcher struct {
	engine *Engine

	mu     sync.Mutex
	queues map[int64]chan *Event
}

func NewDispatcher(engine *Engine) *Dispatcher {
	return &Dispatcher{
		engine: engine,
		queues: make(map[int64]chan *Event),
	}
}

// Dispatch enqueues the event for its chat worker. A chat flooding
// faster than its dialogue handles is dropped with a warning rather
// than stalling other chats.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	queue, ok := d.queues[ev.ChatID]
	if !ok {
		queue = make(chan *Event, chatQueueDepth)
		d.queues[ev.ChatID] = queue
		go d.drain(ctx, ev.ChatID, queue)
	}
	select {
	case queue <- ev:
	default:
		log.Warnf("Chat %v queue full, dropping %v event", ev.ChatID, ev.Kind)
	}
}

func (d *Dispatcher) drain(ctx context.Context, chatID int64, queue chan *Event) {
	idle := time.NewTimer(chatQueueIdle)
	defer idle.Stop()
	for {
		select {
		case ev := <-queue:
			d.engine.HandleEvent(ctx, ev)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(chatQueueIdle)
		case <-idle.C:
			// Dispatch holds the lock while enqueueing, so checking
			// emptiness under it makes removal race free.
			d.mu.Lock()
			if len(queue) == 0 {
				delete(d.queues, chatID)
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
			idle.Reset(chatQueueIdle)
		case <-ctx.Done():
			return
		}
	}
}

// Workers reports the live worker count, used by tests and the health
// endpoint.
func (d *Dispatcher) Workers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}
