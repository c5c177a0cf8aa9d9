// Package events provides a fan-out pub/sub bus carrying deployment events
// to SSE subscribers.
package events

import (
	"sync"

	"github.com/kemeter/ring/internal/types"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// Bus is a fan-out pub/sub bus. Subscribers receive all deployment events
// published after they subscribe. Slow subscribers that fall behind have
// events dropped rather than blocking publishers.
type Bus struct {
	mu   sync.RWMutex
	subs map[uint64]chan types.DeploymentEvent
	next uint64
}

// New creates a ready-to-use Bus.
func New() *Bus {
	return &Bus{
		subs: make(map[uint64]chan types.DeploymentEvent),
	}
}

// Publish sends an event to all current subscribers. If a subscriber's buffer
// is full, the event is dropped for that subscriber (non-blocking).
func (b *Bus) Publish(evt types.DeploymentEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			// Subscriber buffer full -- drop the event rather than blocking.
		}
	}
}

// Subscribe returns a channel that receives all future events and a cancel
// function that unsubscribes and closes the channel. The caller must invoke
// cancel when done to avoid resource leaks.
func (b *Bus) Subscribe() (<-chan types.DeploymentEvent, func()) {
	ch := make(chan types.DeploymentEvent, subscriberBufferSize)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}

	return ch, cancel
}
