package orchestrator

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/codeexec/gateway/internal/apierr"
	"github.com/codeexec/gateway/pkg/types"
)

// stageInputs copies each requested uploaded file into inputsDir,
// rejecting path traversal and oversized staging per spec step 5.
func (o *Orchestrator) stageInputs(inputsDir string, files []types.FileStagingEntry) error {
	var cumulative int64

	for _, f := range files {
		if filepath.IsAbs(f.Path) {
			return apierr.Validationf("files", "destination path %q must not be absolute", f.Path)
		}
		if pathEscapes(f.Path) {
			return apierr.Validationf("files", "destination path %q must not contain .. segments", f.Path)
		}

		uploaded, err := o.store.GetUpload(f.FileID)
		if err != nil {
			return apierr.Field(apierr.KindNotFound, "files", err)
		}
		if uploaded.Size > maxSingleUploadBytes {
			return apierr.Validationf("files", "file %q exceeds the %d byte single-file limit", f.FileID, maxSingleUploadBytes)
		}
		cumulative += uploaded.Size
		if cumulative > maxCumulativeStageBytes {
			return apierr.Validationf("files", "staged files exceed the %d byte cumulative limit", maxCumulativeStageBytes)
		}

		dst := filepath.Join(inputsDir, f.Path)
		if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
			return err
		}
		if err := copyUpload(o, f.FileID, dst); err != nil {
			return err
		}
	}
	return nil
}

func copyUpload(o *Orchestrator, fileID, dst string) error {
	src, err := o.store.OpenUpload(fileID)
	if err != nil {
		return apierr.Field(apierr.KindNotFound, "files", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}

// pathEscapes reports whether path contains a ".." segment, checked
// component-by-component so "a..b" (no traversal) isn't rejected while
// "a/../b" is.
func pathEscapes(path string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}
