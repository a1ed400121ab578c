package podmanexec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Spec describes a single ephemeral container invocation: run cfg.Command
// in cfg.Image with the given hardening options, feeding cfg.Stdin and
// capturing stdout/stderr up to cfg.MaxOutputBytes each.
type Spec struct {
	Image          string
	Command        []string
	Env            map[string]string
	WorkDir        string
	Binds          []Bind
	Memory         string // e.g. "512m"
	CPUs           string // e.g. "1"
	PidsLimit      int
	NetworkMode    string // "none" in production; the sandbox runner sets another mode only under IsolationConfig.DisableSecurity
	ReadOnlyRootFS bool
	TmpFS          map[string]string
	CapDrop        []string
	SecurityOpts   []string // seccomp=<profile>, apparmor=<profile>, no-new-privileges
	Stdin          io.Reader
	MaxOutputBytes int64
}

// Bind is a host path mounted into the container.
type Bind struct {
	HostPath      string
	ContainerPath string
	ReadOnly      bool
}

// Outcome is the result of running a Spec to completion.
type Outcome struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// TimedOut is true if the context deadline was hit before the
	// container exited; ExitCode is 124 in that case.
	TimedOut bool
}

// truncatingBuffer caps how many bytes it will retain, discarding the rest
// while counting every byte written in written; Outcome does not expose
// that count.
type truncatingBuffer struct {
	buf     bytes.Buffer
	max     int64
	written int64
}

func (t *truncatingBuffer) Write(p []byte) (int, error) {
	t.written += int64(len(p))
	if remaining := t.max - int64(t.buf.Len()); remaining > 0 {
		if int64(len(p)) > remaining {
			t.buf.Write(p[:remaining])
		} else {
			t.buf.Write(p)
		}
	}
	return len(p), nil
}

// RunOnce launches a fresh, unnamed container for spec, waits for it to
// exit or the context to expire, and removes it unconditionally
// afterward via --rm.
func (c *Client) RunOnce(ctx context.Context, spec Spec) (*Outcome, error) {
	args := []string{"run", "--rm", "-i"}

	if spec.NetworkMode != "" {
		args = append(args, "--network", spec.NetworkMode)
	}
	if spec.Memory != "" {
		args = append(args, "--memory", spec.Memory)
	}
	if spec.CPUs != "" {
		args = append(args, "--cpus", spec.CPUs)
	}
	if spec.PidsLimit > 0 {
		args = append(args, "--pids-limit", strconv.Itoa(spec.PidsLimit))
	}
	if spec.ReadOnlyRootFS {
		args = append(args, "--read-only")
	}
	for mount, opts := range spec.TmpFS {
		args = append(args, "--tmpfs", fmt.Sprintf("%s:%s", mount, opts))
	}
	for _, cp := range spec.CapDrop {
		args = append(args, "--cap-drop", cp)
	}
	for _, opt := range spec.SecurityOpts {
		args = append(args, "--security-opt", opt)
	}
	for k, v := range spec.Env {
		args = append(args, "--env", fmt.Sprintf("%s=%s", k, v))
	}
	if spec.WorkDir != "" {
		args = append(args, "--workdir", spec.WorkDir)
	}
	for _, b := range spec.Binds {
		mode := "rw"
		if b.ReadOnly {
			mode = "ro"
		}
		args = append(args, "--volume", fmt.Sprintf("%s:%s:%s", b.HostPath, b.ContainerPath, mode))
	}

	args = append(args, spec.Image)
	args = append(args, spec.Command...)

	cmd := exec.CommandContext(ctx, c.binaryPath, args...)
	cmd.Env = append(cmd.Env, "REGISTRY_AUTH_FILE="+c.authFile)

	max := spec.MaxOutputBytes
	if max <= 0 {
		max = 10 << 20
	}
	stdout := &truncatingBuffer{max: max}
	stderr := &truncatingBuffer{max: max}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if spec.Stdin != nil {
		cmd.Stdin = spec.Stdin
	}

	start := time.Now()
	err := cmd.Run()
	_ = time.Since(start)

	outcome := &Outcome{Stdout: stdout.buf.String(), Stderr: stderr.buf.String()}

	if err != nil {
		if ctx.Err() != nil {
			outcome.TimedOut = true
			outcome.ExitCode = 124
			return outcome, nil
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			outcome.ExitCode = exitErr.ExitCode()
			return outcome, nil
		}
		return nil, fmt.Errorf("podmanexec: run container: %w", err)
	}

	outcome.ExitCode = 0
	return outcome, nil
}

// ImageExists reports whether image is present in local storage.
func (c *Client) ImageExists(ctx context.Context, image string) (bool, error) {
	result, err := c.Run(ctx, "image", "exists", image)
	if err != nil {
		return false, err
	}
	return result.ExitCode == 0, nil
}

// PullImage pulls image into local storage.
func (c *Client) PullImage(ctx context.Context, image string) error {
	result, err := c.Run(ctx, "pull", image)
	if err != nil {
		return fmt.Errorf("podmanexec: pull %s: %w", image, err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("podmanexec: pull %s failed (exit %d): %s", image, result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	return nil
}
