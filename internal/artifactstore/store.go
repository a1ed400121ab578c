// Package artifactstore implements the content-addressed filesystem store
// for uploaded inputs and produced outputs, and mints HMAC-signed,
// time-limited download URLs for produced outputs (artifacts).
//
// Layout, grounded on the teacher's per-id directory convention
// (internal/sandbox/quota.go's filepath.Join(dataDir, sandboxID)):
//
//	<root>/uploads/<file_id>/<name>
//	<root>/uploads/<file_id>/meta.json
//	<root>/artifacts/<artifact_id>/<name>
//	<root>/artifacts/<artifact_id>/meta.json
package artifactstore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/codeexec/gateway/internal/idgen"
	"github.com/codeexec/gateway/pkg/types"
)

const compressThreshold = 64 << 10 // 64 KiB

// Store is the content-addressed filesystem artifact store.
type Store struct {
	root      string
	signer    *Signer
	publicURL string // base URL used when minting signed links, e.g. https://api.example.com
	ttl       time.Duration
	log       *zap.SugaredLogger
}

// Config configures a Store.
type Config struct {
	Root      string
	SigningKey []byte
	PublicURL string
	TTL       time.Duration // defaults to 10 minutes
}

// New creates a Store rooted at cfg.Root, creating uploads/ and artifacts/
// subdirectories if they don't exist.
func New(cfg Config, log *zap.SugaredLogger) (*Store, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	for _, sub := range []string{"uploads", "artifacts"} {
		if err := os.MkdirAll(filepath.Join(cfg.Root, sub), 0755); err != nil {
			return nil, fmt.Errorf("artifactstore: create %s: %w", sub, err)
		}
	}
	return &Store{
		root:      cfg.Root,
		signer:    NewSigner(cfg.SigningKey),
		publicURL: cfg.PublicURL,
		ttl:       cfg.TTL,
		log:       log,
	}, nil
}

type sidecar struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	SHA256      string `json:"sha256"`
	ContentType string `json:"content_type"`
	Compressed  bool   `json:"compressed"`
}

// StoreUpload persists an uploaded file under uploads/<file_id>/, hashing it
// as it is copied. The SHA-256 is computed once, here, and never
// recomputed — uploaded files are immutable.
func (s *Store) StoreUpload(r io.Reader, name, contentType string) (*types.UploadedFile, error) {
	id := idgen.File()
	dir := filepath.Join(s.root, "uploads", id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("artifactstore: mkdir %s: %w", dir, err)
	}

	size, sum, compressed, err := writeContentAddressed(r, filepath.Join(dir, name))
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	sc := sidecar{ID: id, Name: name, Size: size, SHA256: sum, ContentType: contentType, Compressed: compressed}
	if err := writeSidecar(dir, sc); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	return &types.UploadedFile{
		ID:          id,
		Name:        name,
		Size:        size,
		SHA256:      sum,
		ContentType: contentType,
		Path:        filepath.Join(dir, name),
	}, nil
}

// GetUpload looks up an uploaded file by id, reading its sidecar metadata.
func (s *Store) GetUpload(id string) (*types.UploadedFile, error) {
	dir := filepath.Join(s.root, "uploads", id)
	sc, err := readSidecar(dir)
	if err != nil {
		return nil, err
	}
	return &types.UploadedFile{
		ID:          sc.ID,
		Name:        sc.Name,
		Size:        sc.Size,
		SHA256:      sc.SHA256,
		ContentType: sc.ContentType,
		Path:        filepath.Join(dir, sc.Name),
	}, nil
}

// OpenUpload opens an uploaded file's content for reading, transparently
// decompressing it if it was stored zstd-compressed.
func (s *Store) OpenUpload(id string) (io.ReadCloser, error) {
	dir := filepath.Join(s.root, "uploads", id)
	sc, err := readSidecar(dir)
	if err != nil {
		return nil, err
	}
	return openContentAddressed(filepath.Join(dir, sc.Name), sc.Compressed)
}

// IngestArtifact moves srcPath (a file under a run's outputs/ directory)
// into a fresh artifact directory, computing SHA-256 during the copy,
// writing the sidecar, and deleting the source. Returns a descriptor whose
// URL is signed with an expiry of now + the store's configured TTL.
func (s *Store) IngestArtifact(srcPath, name, contentType string) (*types.ArtifactDescriptor, error) {
	id := idgen.Artifact()
	dir := filepath.Join(s.root, "artifacts", id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("artifactstore: mkdir %s: %w", dir, err)
	}

	f, err := os.Open(srcPath)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("artifactstore: open source %s: %w", srcPath, err)
	}
	size, sum, compressed, err := writeContentAddressed(f, filepath.Join(dir, name))
	f.Close()
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	sc := sidecar{ID: id, Name: name, Size: size, SHA256: sum, ContentType: contentType, Compressed: compressed}
	if err := writeSidecar(dir, sc); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	if err := os.Remove(srcPath); err != nil {
		s.log.Warnw("artifactstore: failed to remove source after ingest", "path", srcPath, "err", err)
	}

	expiresAt := time.Now().Add(s.ttl)
	url, err := s.signer.Sign(s.publicURL, "/v1/files/"+id, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("artifactstore: sign url: %w", err)
	}

	return &types.ArtifactDescriptor{
		Name:        name,
		Size:        size,
		SHA256:      sum,
		URL:         url,
		ExpiresAt:   expiresAt,
		ContentType: contentType,
	}, nil
}

// OpenArtifact opens an artifact's content for reading by id (used by the
// download handler after signature verification), plus its content type.
func (s *Store) OpenArtifact(id string) (io.ReadCloser, string, error) {
	dir := filepath.Join(s.root, "artifacts", id)
	sc, err := readSidecar(dir)
	if err != nil {
		return nil, "", err
	}
	rc, err := openContentAddressed(filepath.Join(dir, sc.Name), sc.Compressed)
	if err != nil {
		return nil, "", err
	}
	return rc, sc.ContentType, nil
}

// Signer exposes the store's URL signer for handlers that need to verify a
// download request independently of the store's own file layout.
func (s *Store) Signer() *Signer { return s.signer }

func writeSidecar(dir string, sc sidecar) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("artifactstore: marshal sidecar: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0644)
}

func readSidecar(dir string) (*sidecar, error) {
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("artifactstore: not found: %s", filepath.Base(dir))
		}
		return nil, fmt.Errorf("artifactstore: read sidecar: %w", err)
	}
	var sc sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("artifactstore: parse sidecar: %w", err)
	}
	return &sc, nil
}

