// Package orchestrator composes the leaf components — limits, artifact
// store, sandbox runner, run store — into the single pipeline that turns
// a run request into a run record: validate, stage inputs, invoke the
// sandbox, classify the outcome, collect artifacts, persist, clean up.
//
// Grounded on the teacher's createSandbox handler in internal/api/sandbox.go
// for the overall "validate -> clamp -> delegate -> assemble -> persist"
// shape, but written as a pure function of its inputs with no
// echo.Context dependency: the HTTP-specific parts stay in internal/api.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/google/shlex"
	"go.uber.org/zap"

	"github.com/codeexec/gateway/internal/apierr"
	"github.com/codeexec/gateway/internal/artifactstore"
	"github.com/codeexec/gateway/internal/idgen"
	"github.com/codeexec/gateway/internal/limits"
	"github.com/codeexec/gateway/internal/runstore"
	"github.com/codeexec/gateway/internal/sandbox"
	"github.com/codeexec/gateway/pkg/types"
)

const (
	maxCodeBytes           = 200 << 10
	maxSingleUploadBytes   = 10 << 20
	maxCumulativeStageBytes = 25 << 20
)

// Sink receives incremental frames while a streaming run executes.
type Sink interface {
	Send(kind, data string)
}

// Orchestrator wires the leaf components together behind CreateRun.
type Orchestrator struct {
	limits    limits.Policy
	store     *artifactstore.Store
	runs      *runstore.Store
	runner    sandbox.Runner
	workRoot  string
	log       *zap.SugaredLogger
}

// Config holds Orchestrator dependencies.
type Config struct {
	Limits   limits.Policy
	Store    *artifactstore.Store
	Runs     *runstore.Store
	Runner   sandbox.Runner
	WorkRoot string
}

// New builds an Orchestrator from cfg.
func New(cfg Config, log *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{
		limits:   cfg.Limits,
		store:    cfg.Store,
		runs:     cfg.Runs,
		runner:   cfg.Runner,
		workRoot: cfg.WorkRoot,
		log:      log,
	}
}

// CreateRun implements the full pipeline for a synchronous run request.
func (o *Orchestrator) CreateRun(ctx context.Context, req types.RunRequest, tenantID string) (*types.RunRecord, error) {
	return o.run(ctx, req, tenantID, nil)
}

// CreateRunWithStreaming is identical to CreateRun except sink receives
// incremental frames as the run progresses.
func (o *Orchestrator) CreateRunWithStreaming(ctx context.Context, req types.RunRequest, tenantID string, sink Sink) (*types.RunRecord, error) {
	return o.run(ctx, req, tenantID, sink)
}

func (o *Orchestrator) run(ctx context.Context, req types.RunRequest, tenantID string, sink Sink) (*types.RunRecord, error) {
	// 1. validate
	if !limits.IsSupportedLanguage(req.Language) {
		return nil, apierr.Validationf("language", "unsupported language %q", req.Language)
	}
	if len(req.Code) == 0 {
		return nil, apierr.Validationf("code", "code must not be empty")
	}
	if len(req.Code) > maxCodeBytes {
		return nil, apierr.Validationf("code", "code exceeds %d bytes", maxCodeBytes)
	}
	if !utf8.ValidString(req.Code) {
		return nil, apierr.Validationf("code", "code must be valid UTF-8")
	}

	// 2. merge limits
	effective, err := o.limits.Merge(req.Limits)
	if err != nil {
		return nil, apierr.Field(apierr.KindValidation, "limits", err)
	}

	args := req.Args
	if len(args) == 0 && req.ArgsString != "" {
		split, err := shlex.Split(req.ArgsString)
		if err != nil {
			return nil, apierr.Validationf("args_string", "could not parse args_string: %v", err)
		}
		args = split
	}

	// 3. mint run id
	runID := idgen.Run()

	// This "connected" send is an internal signal to hubSink so it can
	// surface the freshly minted run id to the HTTP handler before the
	// pipeline finishes; it is not the client-visible connected-on-attach
	// frame, which the stream handler emits itself once a subscriber
	// actually attaches.
	if sink != nil {
		sink.Send("connected", runID)
	}

	// 4. create workdir
	workDir := filepath.Join(o.workRoot, runID)
	inputsDir := filepath.Join(workDir, "inputs")
	outputsDir := filepath.Join(workDir, "outputs")
	if err := os.MkdirAll(inputsDir, 0700); err != nil {
		return nil, fmt.Errorf("orchestrator: create inputs dir: %w", err)
	}
	if err := os.MkdirAll(outputsDir, 0700); err != nil {
		return nil, fmt.Errorf("orchestrator: create outputs dir: %w", err)
	}
	defer o.cleanupWorkDir(workDir)

	// 5. stage inputs
	if err := o.stageInputs(inputsDir, req.Files); err != nil {
		return nil, err
	}

	// 6. hash code
	sum := sha256.Sum256([]byte(req.Code))
	codeHash := hex.EncodeToString(sum[:])

	entry := req.EntryFile
	if entry == "" {
		entry = sandbox.EntryFileFor(req.Language)
	}
	if err := os.WriteFile(filepath.Join(workDir, entry), []byte(req.Code), 0600); err != nil {
		return nil, fmt.Errorf("orchestrator: write entry file: %w", err)
	}

	// 7. build environment
	env := sandbox.Sanitize(req.Env)

	if sink != nil {
		sink.Send("status", "running")
	}

	// 8. invoke sandbox
	result, err := o.runner.Run(ctx, sandbox.RunSpec{
		RunID:     runID,
		Language:  req.Language,
		Args:      args,
		Env:       env,
		Limits:    effective,
		WorkDir:   workDir,
		EntryFile: entry,
	})
	if err != nil {
		return nil, apierr.New(apierr.KindSandboxFailure, err)
	}

	// 9. classify status
	status := result.Status
	if status == types.RunStatusSucceeded && result.ExitCode != 0 {
		status = types.RunStatusFailed
	}

	if sink != nil {
		if result.Stdout != "" {
			sink.Send("stdout", result.Stdout)
		}
		if result.Stderr != "" {
			sink.Send("stderr", result.Stderr)
		}
	}

	// 10. collect artifacts
	artifacts, err := o.collectArtifacts(outputsDir, result.Artifacts, effective, tenantID)
	if err != nil {
		return nil, err
	}

	// 11. truncate captured streams
	stdout := truncateBytes(result.Stdout, effective.MaxOutputBytes)
	stderr := truncateBytes(result.Stderr, effective.MaxOutputBytes)

	// 12. assemble
	exitCode := result.ExitCode
	rec := &types.RunRecord{
		ID:         runID,
		Status:     status,
		ExitCode:   &exitCode,
		Stdout:     stdout,
		Stderr:     stderr,
		Usage:      result.Usage,
		Artifacts:  artifacts,
		Limits:     effective,
		CreatedAt:  time.Now(),
		Language:   req.Language,
		CodeSHA256: codeHash,
	}

	o.runs.Put(rec)

	if sink != nil {
		// The complete frame carries the full run record as JSON.
		data, _ := json.Marshal(rec)
		sink.Send("complete", string(data))
	}

	// 14. return
	return rec, nil
}

// cleanupWorkDir removes a run's working directory best-effort; failures
// are logged, never propagated, per spec step 13.
func (o *Orchestrator) cleanupWorkDir(workDir string) {
	if err := os.RemoveAll(workDir); err != nil && o.log != nil {
		o.log.Warnw("orchestrator: failed to remove workdir", "path", workDir, "error", err)
	}
}

func truncateBytes(s string, max int64) string {
	if max <= 0 || int64(len(s)) <= max {
		return s
	}
	return s[:max]
}

