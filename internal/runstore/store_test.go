package runstore

import (
	"testing"
	"time"

	"github.com/codeexec/gateway/pkg/types"
)

func TestPutAndGetRoundTrip(t *testing.T) {
	s := New()
	rec := &types.RunRecord{ID: "run_abc123456789", Status: types.RunStatusSucceeded, CreatedAt: time.Now()}
	s.Put(rec)

	got, err := s.Get("run_abc123456789")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != rec.ID || got.Status != rec.Status {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestGetMissingReturnsError(t *testing.T) {
	s := New()
	if _, err := s.Get("run_doesnotexist12"); err == nil {
		t.Fatal("expected error for missing run")
	}
}

func TestPutOverwritesExistingRecord(t *testing.T) {
	s := New()
	s.Put(&types.RunRecord{ID: "run_abc123456789", Status: types.RunStatusKilled})
	s.Put(&types.RunRecord{ID: "run_abc123456789", Status: types.RunStatusSucceeded})

	got, err := s.Get("run_abc123456789")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != types.RunStatusSucceeded {
		t.Fatalf("expected overwritten status, got %v", got.Status)
	}
}
