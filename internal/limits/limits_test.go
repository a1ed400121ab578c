package limits

import (
	"testing"

	"github.com/codeexec/gateway/pkg/types"
)

func testPolicy() Policy {
	return Policy{
		Defaults: types.RunLimits{
			TimeoutMS:        5000,
			MemoryMB:         256,
			CPUMS:            5000,
			MaxOutputBytes:   1 << 20,
			MaxArtifactBytes: 25 << 20,
			MaxArtifactFiles: 32,
		},
		Max: types.RunLimits{
			TimeoutMS:        60000,
			MemoryMB:         2048,
			CPUMS:            60000,
			MaxOutputBytes:   10 << 20,
			MaxArtifactBytes: 100 << 20,
			MaxArtifactFiles: 256,
		},
	}
}

func TestMergeEmptyEqualsDefaults(t *testing.T) {
	p := testPolicy()
	eff, err := p.Merge(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eff != p.Defaults {
		t.Fatalf("expected defaults, got %+v", eff)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	p := testPolicy()
	partial := &types.RunLimits{TimeoutMS: 1000}
	first, err := p.Merge(partial)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := p.Merge(&first)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("merge not idempotent: %+v != %+v", first, second)
	}
}

func TestMergeRejectsFieldOverMax(t *testing.T) {
	p := testPolicy()
	cases := []struct {
		name    string
		partial types.RunLimits
	}{
		{"timeout", types.RunLimits{TimeoutMS: 999999999}},
		{"memory", types.RunLimits{MemoryMB: 999999999}},
		{"cpu", types.RunLimits{CPUMS: 999999999}},
		{"output", types.RunLimits{MaxOutputBytes: 999999999}},
		{"artifact bytes", types.RunLimits{MaxArtifactBytes: 999999999}},
		{"artifact files", types.RunLimits{MaxArtifactFiles: 999999999}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := p.Merge(&tc.partial); err == nil {
				t.Fatalf("expected error for %s exceeding max", tc.name)
			}
		})
	}
}

func TestMergeRejectsNonPositive(t *testing.T) {
	p := testPolicy()
	negative := types.RunLimits{TimeoutMS: -1, MemoryMB: 256, CPUMS: 1000, MaxOutputBytes: 1024, MaxArtifactBytes: 1024, MaxArtifactFiles: 1}
	if _, err := p.Merge(&negative); err == nil {
		t.Fatal("expected error for negative timeout")
	}
}
