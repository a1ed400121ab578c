package sandbox

import (
	"context"
	"sync"

	"github.com/codeexec/gateway/pkg/types"
)

// MockRunner is a Runner test double that returns a scripted RunResult
// per RunID (or a default outcome when no script entry exists), without
// touching podman or the filesystem. It records every RunSpec it
// received so orchestrator tests can assert on staging behavior.
type MockRunner struct {
	mu       sync.Mutex
	outcomes map[string]*RunResult
	errs     map[string]error
	Default  *RunResult
	Calls    []RunSpec
}

// NewMockRunner returns a MockRunner that succeeds with an empty outcome
// unless a specific outcome or error has been scripted for a run id.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		outcomes: make(map[string]*RunResult),
		errs:     make(map[string]error),
		Default:  &RunResult{Status: types.RunStatusSucceeded, ExitCode: 0},
	}
}

// ScriptOutcome makes every later Run call for runID return outcome.
func (m *MockRunner) ScriptOutcome(runID string, outcome *RunResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[runID] = outcome
}

// ScriptError makes every later Run call for runID return err.
func (m *MockRunner) ScriptError(runID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[runID] = err
}

// Run implements Runner.
func (m *MockRunner) Run(ctx context.Context, spec RunSpec) (*RunResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, spec)

	if err, ok := m.errs[spec.RunID]; ok {
		return nil, err
	}
	if outcome, ok := m.outcomes[spec.RunID]; ok {
		return outcome, nil
	}
	return m.Default, nil
}
