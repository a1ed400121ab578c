package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/codeexec/gateway/internal/metrics"
	"github.com/codeexec/gateway/internal/podmanexec"
	"github.com/codeexec/gateway/pkg/types"
)

// bootstrapPath is where every runner image is expected to install its
// entrypoint script, per the bootstrap contract.
const bootstrapPath = "/opt/bootstrap/entrypoint.py"

// bootstrapRequest is the JSON document written to the container's stdin,
// mirrored from original_source/runners/go/entrypoint.py's input schema.
type bootstrapRequest struct {
	ID      string            `json:"id"`
	Entry   string            `json:"entry"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
	Limits  bootstrapLimits   `json:"limits"`
}

type bootstrapLimits struct {
	TimeoutMS      int64 `json:"timeout_ms"`
	MemoryMB       int64 `json:"memory_mb"`
	CPUMS          int64 `json:"cpu_ms"`
	MaxOutputBytes int64 `json:"max_output_bytes"`
}

// bootstrapUsage mirrors usage.json, the file the bootstrap script writes
// into the working directory before exiting.
type bootstrapUsage struct {
	WallMS    int64 `json:"wall_ms"`
	CPUMS     int64 `json:"cpu_ms"`
	MaxRSSMB  int64 `json:"max_rss_mb"`
	CompileMS int64 `json:"compile_ms"`
}

// PodmanRunner is the production Runner backend: one ephemeral, hardened
// podman container per run.
type PodmanRunner struct {
	client   *podmanexec.Client
	iso      IsolationConfig
	log      *zap.SugaredLogger
	profiles string // directory holding generated seccomp profiles
}

// NewPodmanRunner builds a PodmanRunner. profilesDir must be writable;
// a seccomp profile is generated into it once and reused across runs.
func NewPodmanRunner(client *podmanexec.Client, iso IsolationConfig, profilesDir string, log *zap.SugaredLogger) (*PodmanRunner, error) {
	if !iso.DisableSecurity && iso.SeccompProfilePath == "" {
		path := filepath.Join(profilesDir, "runner-seccomp.json")
		if err := BuildSeccompProfile(path); err != nil {
			return nil, fmt.Errorf("sandbox: build seccomp profile: %w", err)
		}
		iso.SeccompProfilePath = path
	}
	return &PodmanRunner{client: client, iso: iso, log: log, profiles: profilesDir}, nil
}

// Run launches one container for spec and blocks until it exits, the
// context is cancelled, or the run's own timeout elapses.
func (r *PodmanRunner) Run(ctx context.Context, spec RunSpec) (*RunResult, error) {
	launchStart := time.Now()
	defer func() {
		metrics.SandboxLaunchDuration.WithLabelValues(string(spec.Language)).Observe(time.Since(launchStart).Seconds())
	}()

	image, ok := imageFor(spec.Language)
	if !ok {
		return nil, fmt.Errorf("sandbox: no runner image for language %q", spec.Language)
	}

	timeout := time.Duration(spec.Limits.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := bootstrapRequest{
		ID:    spec.RunID,
		Entry: spec.EntryFile,
		Args:  spec.Args,
		Env:   Sanitize(spec.Env),
		Limits: bootstrapLimits{
			TimeoutMS:      spec.Limits.TimeoutMS,
			MemoryMB:       spec.Limits.MemoryMB,
			CPUMS:          spec.Limits.CPUMS,
			MaxOutputBytes: spec.Limits.MaxOutputBytes,
		},
	}
	stdin, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("sandbox: marshal bootstrap request: %w", err)
	}

	podmanSpec := podmanexec.Spec{
		Image:          image,
		Command:        []string{"python3", bootstrapPath},
		Env:            req.Env,
		WorkDir:        "/work",
		Binds:          []podmanexec.Bind{{HostPath: spec.WorkDir, ContainerPath: "/work"}},
		Memory:         fmt.Sprintf("%dm", spec.Limits.MemoryMB),
		CPUs:           strconv.FormatFloat(float64(spec.Limits.CPUMS)/1000/float64(timeout.Seconds()+1), 'f', -1, 64),
		PidsLimit:      256,
		NetworkMode:    r.networkMode(),
		ReadOnlyRootFS: !r.iso.DisableSecurity,
		TmpFS:          map[string]string{"/tmp": "rw,size=64m"},
		CapDrop:        []string{"ALL"},
		SecurityOpts:   r.iso.SecurityOpts(),
		Stdin:          bytes.NewReader(stdin),
		MaxOutputBytes: spec.Limits.MaxOutputBytes,
	}

	outcome, err := r.client.RunOnce(runCtx, podmanSpec)
	if err != nil {
		return nil, fmt.Errorf("sandbox: run container: %w", err)
	}

	usage := readUsage(spec.WorkDir, spec.Limits)
	oom := outcome.ExitCode == 137
	status := classifyExit(outcome.ExitCode, outcome.TimedOut, oom)

	return &RunResult{
		Status:    status,
		ExitCode:  outcome.ExitCode,
		Stdout:    outcome.Stdout,
		Stderr:    outcome.Stderr,
		Usage:     usage,
		Artifacts: listOutputCandidates(spec.WorkDir),
	}, nil
}

func (r *PodmanRunner) networkMode() string {
	if r.iso.DisableSecurity {
		return "slirp4netns"
	}
	return "none"
}

// readUsage loads usage.json from a run's working directory. The
// bootstrap script is expected to write this before exiting; when it is
// missing — the common case when the sandbox was killed before it could
// finalize — the effective limits are substituted as a conservative
// upper bound on resource use rather than reporting zero usage.
func readUsage(workDir string, limits types.RunLimits) types.UsageRecord {
	raw, err := os.ReadFile(filepath.Join(workDir, "usage.json"))
	if err != nil {
		return types.UsageRecord{
			WallMS:   limits.TimeoutMS,
			CPUMS:    limits.CPUMS,
			MaxRSSMB: limits.MemoryMB,
		}
	}
	var u bootstrapUsage
	if err := json.Unmarshal(raw, &u); err != nil {
		return types.UsageRecord{
			WallMS:   limits.TimeoutMS,
			CPUMS:    limits.CPUMS,
			MaxRSSMB: limits.MemoryMB,
		}
	}
	return types.UsageRecord{
		WallMS:    u.WallMS,
		CPUMS:     u.CPUMS,
		MaxRSSMB:  u.MaxRSSMB,
		CompileMS: u.CompileMS,
	}
}

// listOutputCandidates walks workDir/outputs and returns file paths
// relative to that directory, in lexical directory-iteration order —
// the order the orchestrator's artifact collection loop (spec step 10)
// consumes them in.
func listOutputCandidates(workDir string) []string {
	root := filepath.Join(workDir, "outputs")
	var out []string
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		out = append(out, rel)
		return nil
	})
	return out
}
