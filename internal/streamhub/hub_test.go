package streamhub

import (
	"context"
	"testing"
	"time"
)

func TestPublishSubscribeRoundTrip(t *testing.T) {
	h, err := New(Config{})
	if err != nil {
		t.Fatalf("new hub: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, unsub, err := h.Subscribe(ctx, "run_abc123456789")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub()

	if err := h.Publish("run_abc123456789", Frame{Kind: FrameStdout, Data: "hello"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case f := <-ch:
		if f.Kind != FrameStdout || f.Data != "hello" {
			t.Fatalf("unexpected frame: %+v", f)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}
}

func TestSubscribeRejectsSecondSubscriber(t *testing.T) {
	h, _ := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, unsub, err := h.Subscribe(ctx, "run_abc123456789")
	if err != nil {
		t.Fatalf("first subscribe: %v", err)
	}
	defer unsub()

	if _, _, err := h.Subscribe(ctx, "run_abc123456789"); err == nil {
		t.Fatal("expected second subscribe for same run to fail")
	}
}

func TestSubscribeAllowedAfterUnsubscribe(t *testing.T) {
	h, _ := New(Config{})
	ctx := context.Background()

	_, unsub, err := h.Subscribe(ctx, "run_abc123456789")
	if err != nil {
		t.Fatalf("first subscribe: %v", err)
	}
	unsub()

	if _, unsub2, err := h.Subscribe(ctx, "run_abc123456789"); err != nil {
		t.Fatalf("expected resubscribe to succeed, got %v", err)
	} else {
		unsub2()
	}
}

func TestPublishWithNoSubscriberDoesNotBlock(t *testing.T) {
	h, _ := New(Config{})
	if err := h.Publish("run_nobody_listening", Frame{Kind: FrameStdout, Data: "x"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
}
