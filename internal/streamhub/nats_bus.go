package streamhub

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

// natsBus publishes run frames over a shared NATS connection so multiple
// gateway processes behind a load balancer can each terminate a
// subscriber's websocket while the run executes on whichever process
// happened to accept it.
type natsBus struct {
	nc *nats.Conn
}

func newNATSBus(url string) (*natsBus, error) {
	nc, err := nats.Connect(url, nats.Name("codeexec-gateway"))
	if err != nil {
		return nil, fmt.Errorf("streamhub: connect to nats: %w", err)
	}
	return &natsBus{nc: nc}, nil
}

func (b *natsBus) publish(subject string, frame Frame) error {
	raw, err := frame.marshal()
	if err != nil {
		return fmt.Errorf("streamhub: marshal frame: %w", err)
	}
	return b.nc.Publish(subject, raw)
}

func (b *natsBus) subscribe(ctx context.Context, subject string) (<-chan Frame, func(), error) {
	out := make(chan Frame, 64)
	sub, err := b.nc.Subscribe(subject, func(msg *nats.Msg) {
		frame, err := unmarshalFrame(msg.Data)
		if err != nil {
			return
		}
		select {
		case out <- frame:
		default:
		}
	})
	if err != nil {
		close(out)
		return nil, nil, fmt.Errorf("streamhub: subscribe %s: %w", subject, err)
	}

	cancel := func() {
		sub.Unsubscribe()
		close(out)
	}
	return out, cancel, nil
}
