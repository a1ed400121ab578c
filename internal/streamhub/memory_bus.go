package streamhub

import (
	"context"
	"sync"
)

// memoryBus fans out frames to subscribers of the same process via
// buffered channels. It is the default bus when no NATS URL is
// configured, and what every unit test runs against.
type memoryBus struct {
	mu   sync.Mutex
	subs map[string][]chan Frame
}

func newMemoryBus() *memoryBus {
	return &memoryBus{subs: make(map[string][]chan Frame)}
}

func (b *memoryBus) publish(subject string, frame Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[subject] {
		select {
		case ch <- frame:
		default:
			// slow subscriber drops a frame rather than blocking the run
		}
	}
	return nil
}

func (b *memoryBus) subscribe(ctx context.Context, subject string) (<-chan Frame, func(), error) {
	ch := make(chan Frame, 64)

	b.mu.Lock()
	b.subs[subject] = append(b.subs[subject], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[subject]
		for i, c := range subs {
			if c == ch {
				b.subs[subject] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(ch)
	}
	return ch, cancel, nil
}
