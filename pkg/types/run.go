package types

import "time"

// Language is a closed enumeration of supported execution targets. Any other
// value is rejected at admission.
type Language string

const (
	LanguagePython Language = "python"
	LanguageNode   Language = "node"
	LanguageRuby   Language = "ruby"
	LanguagePHP    Language = "php"
	LanguageGo     Language = "go"
)

// RunStatus is the externally visible outcome of a run.
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusTimeout   RunStatus = "timeout"
	RunStatusOOM       RunStatus = "oom"
	RunStatusKilled    RunStatus = "killed"
)

// FileStagingEntry pairs an uploaded file with a destination path under the
// sandbox's inputs directory.
type FileStagingEntry struct {
	FileID string `json:"file_id"`
	Path   string `json:"path"`
}

// RunRequest is the caller-supplied description of a run to admit.
type RunRequest struct {
	Language Language               `json:"language"`
	Code     string                 `json:"code"`
	Args     []string               `json:"args,omitempty"`
	// ArgsString is an alternate, single-string form of Args (e.g. from a
	// CLI flag or a form field) that the orchestrator word-splits with
	// shell quoting rules before use. Ignored when Args is already set.
	ArgsString string                `json:"args_string,omitempty"`
	Files    []FileStagingEntry     `json:"files,omitempty"`
	Limits   *RunLimits             `json:"limits,omitempty"`
	Env      map[string]string      `json:"env,omitempty"`

	// EntryFile overrides the conventional per-language entry file name
	// (main.py, main.js, ...). Not exposed on the public HTTP surface; used
	// only to exercise the bootstrap contract in tests.
	EntryFile string `json:"-"`
}

// UsageRecord captures observed resource consumption for one run.
type UsageRecord struct {
	WallMS    int64 `json:"wall_ms"`
	CPUMS     int64 `json:"cpu_ms"`
	MaxRSSMB  int64 `json:"max_rss_mb"`
	CompileMS int64 `json:"compile_ms,omitempty"`
}

// RunRecord is the record returned to the caller and stored by run id.
type RunRecord struct {
	ID        string     `json:"id"`
	Status    RunStatus  `json:"status"`
	ExitCode  *int       `json:"exit_code"`
	Stdout    string     `json:"stdout"`
	Stderr    string     `json:"stderr"`
	Usage     UsageRecord `json:"usage"`
	Artifacts []ArtifactDescriptor `json:"artifacts"`
	Limits    RunLimits  `json:"limits"`
	CreatedAt time.Time  `json:"created_at"`
	Language  Language   `json:"language"`
	CodeSHA256 string    `json:"code_sha256"`
}
