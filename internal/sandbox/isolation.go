package sandbox

import (
	"fmt"

	seccomp "github.com/seccomp/libseccomp-golang"
)

// IsolationConfig captures the hardening applied to every run container.
// DisableSecurity exists only for local development against a podman
// binary that lacks seccomp/userns support and must never be set in a
// deployed gateway; it is wired from the CODEEXEC_DISABLE_SANDBOX_SECURITY
// env var.
type IsolationConfig struct {
	SeccompProfilePath string
	DisableSecurity    bool
}

// allowedSyscalls is the fixed syscall allowlist for run containers: the
// minimum a language interpreter needs to read staged code, execute it,
// and write results. It does include the socket calls (socket, connect,
// bind, ...) and signal delivery (kill, tgkill); network isolation comes
// from the container's network mode, not from this list.
var allowedSyscalls = []string{
	"read", "write", "open", "openat", "close", "stat", "fstat", "lstat",
	"poll", "lseek", "mmap", "mprotect", "munmap", "brk", "rt_sigaction",
	"rt_sigprocmask", "rt_sigreturn", "ioctl", "pread64", "pwrite64",
	"readv", "writev", "access", "pipe", "select", "sched_yield",
	"mremap", "msync", "mincore", "madvise", "dup", "dup2", "pause",
	"nanosleep", "getpid", "socket", "connect", "sendto", "recvfrom",
	"sendmsg", "recvmsg", "shutdown", "bind", "getsockname", "getpeername",
	"clone", "fork", "vfork", "execve", "exit", "wait4", "kill", "uname",
	"fcntl", "flock", "fsync", "fdatasync", "truncate", "ftruncate",
	"getdents64", "getcwd", "chdir", "rename", "mkdir", "rmdir",
	"unlink", "readlink", "chmod", "umask", "gettimeofday", "getrlimit",
	"getuid", "getgid", "geteuid", "getegid", "sigaltstack", "arch_prctl",
	"gettid", "futex", "set_tid_address", "clock_gettime", "exit_group",
	"epoll_create1", "epoll_ctl", "epoll_wait", "epoll_pwait", "eventfd2",
	"pipe2", "prlimit64", "getrandom", "openat2", "statx", "rseq",
	"clock_nanosleep", "restart_syscall", "tgkill",
}

// BuildSeccompProfile writes a JSON seccomp profile allowlisting exactly
// allowedSyscalls (default action SCMP_ACT_ERRNO for anything else) to
// destPath, for use with podman's --security-opt seccomp=<path>.
//
// Grounded on FouGuai-FUZOJ's use of libseccomp-golang to validate a
// judge sandbox's syscall allowlist before handing a profile to the
// container runtime, generalized here into a profile file podman itself
// enforces rather than a userspace-installed filter.
func BuildSeccompProfile(destPath string) error {
	if _, err := seccomp.GetApi(); err != nil {
		return fmt.Errorf("sandbox: libseccomp unavailable: %w", err)
	}
	profile := seccompProfile{
		DefaultAction: "SCMP_ACT_ERRNO",
		Syscalls: []seccompRule{
			{Names: allowedSyscalls, Action: "SCMP_ACT_ALLOW"},
		},
	}
	return writeSeccompProfile(destPath, profile)
}

type seccompProfile struct {
	DefaultAction string        `json:"defaultAction"`
	Syscalls      []seccompRule `json:"syscalls"`
}

type seccompRule struct {
	Names  []string `json:"names"`
	Action string   `json:"action"`
}

// SecurityOpts returns the podman --security-opt values for cfg,
// collapsing to an empty (unrestricted) set when DisableSecurity is set.
func (cfg IsolationConfig) SecurityOpts() []string {
	if cfg.DisableSecurity {
		return nil
	}
	opts := []string{"no-new-privileges"}
	if cfg.SeccompProfilePath != "" {
		opts = append(opts, "seccomp="+cfg.SeccompProfilePath)
	}
	return opts
}
