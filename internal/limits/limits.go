// Package limits implements the pure clamp-and-validate policy that turns a
// caller-supplied, possibly partial RunLimits into the effective limits a
// run is admitted under.
package limits

import (
	"fmt"

	"github.com/codeexec/gateway/pkg/types"
)

// Policy holds the configured defaults and hard maxima for every RunLimits
// field. A field's default must never exceed its own maximum; Load callers
// are responsible for that invariant (see internal/config).
type Policy struct {
	Defaults types.RunLimits
	Max      types.RunLimits
}

// field names, used in validation error messages.
const (
	fieldTimeout    = "timeout_ms"
	fieldMemory     = "memory_mb"
	fieldCPU        = "cpu_ms"
	fieldOutput     = "max_output_bytes"
	fieldArtifactB  = "max_artifact_bytes"
	fieldArtifactN  = "max_artifact_files"
)

// Merge produces the effective RunLimits for a request. Missing fields
// (zero value) take the policy default. Any field exceeding its configured
// maximum, or any field that is zero or negative after defaulting, fails
// the request naming the offending field. The result is safe to treat as
// immutable.
func (p Policy) Merge(partial *types.RunLimits) (types.RunLimits, error) {
	eff := p.Defaults

	if partial != nil {
		if partial.TimeoutMS != 0 {
			eff.TimeoutMS = partial.TimeoutMS
		}
		if partial.MemoryMB != 0 {
			eff.MemoryMB = partial.MemoryMB
		}
		if partial.CPUMS != 0 {
			eff.CPUMS = partial.CPUMS
		}
		if partial.MaxOutputBytes != 0 {
			eff.MaxOutputBytes = partial.MaxOutputBytes
		}
		if partial.MaxArtifactBytes != 0 {
			eff.MaxArtifactBytes = partial.MaxArtifactBytes
		}
		if partial.MaxArtifactFiles != 0 {
			eff.MaxArtifactFiles = partial.MaxArtifactFiles
		}
	}

	if err := checkField(fieldTimeout, eff.TimeoutMS, p.Max.TimeoutMS); err != nil {
		return types.RunLimits{}, err
	}
	if err := checkField(fieldMemory, eff.MemoryMB, p.Max.MemoryMB); err != nil {
		return types.RunLimits{}, err
	}
	if err := checkField(fieldCPU, eff.CPUMS, p.Max.CPUMS); err != nil {
		return types.RunLimits{}, err
	}
	if err := checkField(fieldOutput, eff.MaxOutputBytes, p.Max.MaxOutputBytes); err != nil {
		return types.RunLimits{}, err
	}
	if err := checkField(fieldArtifactB, eff.MaxArtifactBytes, p.Max.MaxArtifactBytes); err != nil {
		return types.RunLimits{}, err
	}
	if err := checkField(fieldArtifactN, int64(eff.MaxArtifactFiles), int64(p.Max.MaxArtifactFiles)); err != nil {
		return types.RunLimits{}, err
	}

	return eff, nil
}

func checkField(name string, value, max int64) error {
	if value <= 0 {
		return fmt.Errorf("limits: field %q must be positive, got %d", name, value)
	}
	if value > max {
		return fmt.Errorf("limits: field %q exceeds maximum (%d > %d)", name, value, max)
	}
	return nil
}
