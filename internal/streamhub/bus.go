package streamhub

import "context"

// bus is the internal publish/subscribe substrate a Hub sits on top of.
// Two implementations exist: an in-process channel bus for single-process
// deployments and tests, and a NATS-backed bus for gateways that want the
// stream fan-out to survive a process restart of the HTTP-facing side
// while the run itself is still executing elsewhere.
type bus interface {
	publish(subject string, frame Frame) error
	subscribe(ctx context.Context, subject string) (<-chan Frame, func(), error)
}
