// Package sandbox defines the sandbox runner capability: launching one
// process per run inside an isolated environment and reporting its
// outcome. Upper layers (the orchestrator) depend only on the Runner
// interface, never on a concrete backend, so a container runtime can be
// swapped for another without touching orchestration logic.
package sandbox

import (
	"context"
	"time"

	"github.com/codeexec/gateway/pkg/types"
)

// RunSpec is everything a Runner needs to execute one run.
type RunSpec struct {
	RunID     string
	Language  types.Language
	Args      []string
	Env       map[string]string
	Limits    types.RunLimits
	WorkDir   string // host directory staged with code + uploaded files, bind-mounted read-write
	EntryFile string // language-specific entry point inside WorkDir, e.g. "main.py"
}

// RunResult is what a Runner reports back after a run finishes, times
// out, or is killed for exceeding a resource limit.
type RunResult struct {
	Status   types.RunStatus
	ExitCode int
	Stdout   string
	Stderr   string
	Usage    types.UsageRecord
	// Artifacts lists candidate output paths, relative to WorkDir/outputs,
	// in the order the runner discovered them. The orchestrator applies
	// its own count/byte caps and path checks before persisting any of
	// these; the runner does no filtering of its own.
	Artifacts []string
}

// Runner is the sandbox execution capability. Implementations range from
// a real container backend to an in-memory mock used in orchestrator
// tests; both satisfy the same contract.
type Runner interface {
	Run(ctx context.Context, spec RunSpec) (*RunResult, error)
}

// classifyExit maps a raw process exit code and timeout flag to a
// RunStatus, per the bootstrap contract's reserved exit codes.
func classifyExit(exitCode int, timedOut bool, oom bool) types.RunStatus {
	switch {
	case timedOut || exitCode == 124:
		return types.RunStatusTimeout
	case oom:
		return types.RunStatusOOM
	case exitCode == 0:
		return types.RunStatusSucceeded
	default:
		return types.RunStatusFailed
	}
}

// defaultTimeout bounds how long a run is allowed to occupy a container
// slot if a caller omits Limits.TimeoutMS entirely (should not happen
// once internal/limits.Merge has run, but Runner defends against it too).
const defaultTimeout = 30 * time.Second
