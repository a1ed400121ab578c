package streamhub

import (
	"context"
	"fmt"
	"sync"
)

// Hub tracks one active publisher and at most one active subscriber per
// run id, serializing frame delivery the same way the sandbox router
// serializes operations on a single sandbox entry via a per-key mutex.
type Hub struct {
	bus bus

	mu       sync.Mutex
	active   map[string]bool // run ids with a subscriber already attached
}

// Config selects the Hub's transport. An empty NATSURL uses the
// in-process bus.
type Config struct {
	NATSURL string
}

// New builds a Hub. If cfg.NATSURL is set, frames are published and
// delivered over NATS; otherwise an in-process channel bus is used.
func New(cfg Config) (*Hub, error) {
	if cfg.NATSURL == "" {
		return &Hub{bus: newMemoryBus(), active: make(map[string]bool)}, nil
	}
	nb, err := newNATSBus(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	return &Hub{bus: nb, active: make(map[string]bool)}, nil
}

func subject(runID string) string {
	return "codeexec.runs." + runID
}

// Publish sends frame to any subscriber currently attached to runID. It
// is safe to call with no subscriber attached: the frame is simply
// dropped, matching a live-tail semantics rather than a durable log.
func (h *Hub) Publish(runID string, frame Frame) error {
	return h.bus.publish(subject(runID), frame)
}

// Subscribe attaches the caller as the (sole) live subscriber for runID
// until ctx is cancelled or the returned cancel func is called. A second
// concurrent Subscribe for the same run id is rejected: the stream hub
// delivers to one viewer at a time per run.
func (h *Hub) Subscribe(ctx context.Context, runID string) (<-chan Frame, func(), error) {
	h.mu.Lock()
	if h.active[runID] {
		h.mu.Unlock()
		return nil, nil, fmt.Errorf("streamhub: run %q already has an active subscriber", runID)
	}
	h.active[runID] = true
	h.mu.Unlock()

	ch, busCancel, err := h.bus.subscribe(ctx, subject(runID))
	if err != nil {
		h.mu.Lock()
		delete(h.active, runID)
		h.mu.Unlock()
		return nil, nil, err
	}

	cancel := func() {
		busCancel()
		h.mu.Lock()
		delete(h.active, runID)
		h.mu.Unlock()
	}
	return ch, cancel, nil
}
