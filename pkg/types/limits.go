package types

// RunLimits bounds the resources a single run may consume. Every field has a
// configurable default and a hard maximum; a caller-supplied override may
// lower a field but never raise it past the maximum (see internal/limits).
type RunLimits struct {
	TimeoutMS         int64 `json:"timeout_ms"`
	MemoryMB          int64 `json:"memory_mb"`
	CPUMS             int64 `json:"cpu_ms"`
	MaxOutputBytes    int64 `json:"max_output_bytes"`
	MaxArtifactBytes  int64 `json:"max_artifact_bytes"`
	MaxArtifactFiles  int   `json:"max_artifact_files"`
}
