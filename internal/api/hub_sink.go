package api

import (
	"sync"

	"github.com/codeexec/gateway/internal/streamhub"
)

// hubSink adapts orchestrator.Sink onto a streamhub.Hub for one streaming
// run. The first "connected" frame the orchestrator sends carries the
// freshly minted run id; hubSink surfaces that id once, over idReady, so
// the HTTP handler can respond to the caller before the run finishes.
type hubSink struct {
	hub *streamhub.Hub

	idReady  chan string
	admitErr chan error

	mu       sync.Mutex
	runID    string
	resolved bool
}

func newHubSink(hub *streamhub.Hub) *hubSink {
	return &hubSink{
		hub:      hub,
		idReady:  make(chan string, 1),
		admitErr: make(chan error, 1),
	}
}

// Send implements orchestrator.Sink.
func (s *hubSink) Send(kind, data string) {
	s.mu.Lock()
	if kind == "connected" && !s.resolved {
		s.runID = data
		s.resolved = true
		s.mu.Unlock()
		s.idReady <- data
	} else {
		s.mu.Unlock()
	}

	s.mu.Lock()
	runID := s.runID
	s.mu.Unlock()
	if runID == "" {
		return
	}
	s.hub.Publish(runID, streamhub.Frame{Kind: streamhub.FrameKind(kind), Data: data})
}

// fail is called when the pipeline returns an error. If a run id was
// never minted (the failure happened during admission), it surfaces on
// admitErr so the HTTP handler can respond synchronously; otherwise it is
// published as an error frame to whatever subscriber is attached.
func (s *hubSink) fail(err error) {
	s.mu.Lock()
	runID := s.runID
	resolved := s.resolved
	s.mu.Unlock()

	if !resolved {
		s.admitErr <- err
		return
	}
	s.hub.Publish(runID, streamhub.Frame{Kind: streamhub.FrameError, Data: err.Error()})
}
