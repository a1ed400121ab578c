package types

import "time"

// UploadedFile describes a file a tenant uploaded for later staging into a
// run's inputs directory. Immutable once created: its SHA-256 is computed
// once at upload and never recomputed.
type UploadedFile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	SHA256      string `json:"sha256"`
	ContentType string `json:"content_type"`
	Path        string `json:"-"`
}

// ArtifactDescriptor describes a file a run produced under outputs/, moved
// into the content-addressed artifact store and reachable only via a
// signed URL.
type ArtifactDescriptor struct {
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	SHA256      string    `json:"sha256"`
	URL         string    `json:"url"`
	ExpiresAt   time.Time `json:"expires_at"`
	ContentType string    `json:"content_type"`
}
