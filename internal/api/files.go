package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/codeexec/gateway/internal/apierr"
	"github.com/codeexec/gateway/internal/auth"
	"github.com/codeexec/gateway/internal/metrics"
)

var errForbiddenSignature = errors.New("invalid or expired download signature")

// handleUploadFile implements POST /v1/files: a multipart/form-data
// upload under the "file" field, stored content-addressed and returned
// as an UploadedFile descriptor for later staging into a run.
func (s *Server) handleUploadFile(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return writeError(c, apierr.Validationf("file", "missing multipart field %q", "file"))
	}

	f, err := fh.Open()
	if err != nil {
		return writeError(c, apierr.New(apierr.KindValidation, err))
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	uploaded, err := s.store.StoreUpload(f, fh.Filename, contentType)
	if err != nil {
		return writeError(c, apierr.New(apierr.KindSandboxFailure, err))
	}

	return c.JSON(http.StatusOK, uploaded)
}

// handleDownloadArtifact implements GET /v1/files/{id}?payload=...&sig=...:
// a signature-gated download of a previously produced artifact. Auth here
// is the signed URL itself, not a bearer token, per spec.md §6.
func (s *Server) handleDownloadArtifact(c echo.Context) error {
	id := c.Param("id")
	payload := c.QueryParam("payload")
	sig := c.QueryParam("sig")

	if !s.store.Signer().Verify(c.Request().URL.Path, payload, sig, time.Now()) {
		return writeError(c, apierr.New(apierr.KindForbidden, errForbiddenSignature))
	}

	rc, contentType, err := s.store.OpenArtifact(id)
	if err != nil {
		return writeError(c, apierr.New(apierr.KindNotFound, err))
	}
	defer rc.Close()

	tenantID, _ := auth.GetTenantID(c)
	counted := &countingReader{r: rc}
	defer func() {
		metrics.ArtifactBytesServed.WithLabelValues(tenantID).Add(float64(counted.n))
	}()

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+id+`"`)
	return c.Stream(http.StatusOK, contentType, counted)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
