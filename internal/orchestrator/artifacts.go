package orchestrator

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/codeexec/gateway/internal/metrics"
	"github.com/codeexec/gateway/pkg/types"
)

// collectArtifacts iterates the sandbox's candidate output paths in
// order, drops anything not under outputsDir, and stops once either the
// file-count or aggregate-byte cap would be exceeded — per spec step 10,
// candidates past the cap are silently dropped, not an error.
func (o *Orchestrator) collectArtifacts(outputsDir string, candidates []string, effective types.RunLimits, tenantID string) ([]types.ArtifactDescriptor, error) {
	var (
		descriptors []types.ArtifactDescriptor
		totalBytes  int64
	)

	for _, rel := range candidates {
		if len(descriptors) >= effective.MaxArtifactFiles {
			break
		}
		if pathEscapes(rel) || filepath.IsAbs(rel) {
			continue
		}

		full := filepath.Join(outputsDir, rel)
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			continue
		}
		if totalBytes+info.Size() > effective.MaxArtifactBytes {
			break
		}

		desc, err := o.store.IngestArtifact(full, filepath.Base(rel), contentTypeFor(rel))
		if err != nil {
			return nil, err
		}
		metrics.ArtifactBytesStored.WithLabelValues(tenantID).Add(float64(desc.Size))
		totalBytes += desc.Size
		descriptors = append(descriptors, *desc)
	}
	return descriptors, nil
}

func contentTypeFor(name string) string {
	switch {
	case strings.HasSuffix(name, ".json"):
		return "application/json"
	case strings.HasSuffix(name, ".txt"):
		return "text/plain"
	case strings.HasSuffix(name, ".png"):
		return "image/png"
	case strings.HasSuffix(name, ".csv"):
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
