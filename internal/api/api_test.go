package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/codeexec/gateway/internal/artifactstore"
	"github.com/codeexec/gateway/internal/auth"
	"github.com/codeexec/gateway/internal/limits"
	"github.com/codeexec/gateway/internal/orchestrator"
	"github.com/codeexec/gateway/internal/ratelimit"
	"github.com/codeexec/gateway/internal/runstore"
	"github.com/codeexec/gateway/internal/sandbox"
	"github.com/codeexec/gateway/internal/streamhub"
	"github.com/codeexec/gateway/pkg/types"
)

func testPolicy() limits.Policy {
	return limits.Policy{
		Defaults: types.RunLimits{
			TimeoutMS: 5000, MemoryMB: 256, CPUMS: 5000,
			MaxOutputBytes: 64 << 10, MaxArtifactBytes: 10 << 20, MaxArtifactFiles: 10,
		},
		Max: types.RunLimits{
			TimeoutMS: 60000, MemoryMB: 1024, CPUMS: 60000,
			MaxOutputBytes: 1 << 20, MaxArtifactBytes: 50 << 20, MaxArtifactFiles: 50,
		},
	}
}

type testServer struct {
	srv   *Server
	store *artifactstore.Store
}

func newTestServer(t *testing.T, rl ratelimit.Config) *testServer {
	t.Helper()
	log := zap.NewNop().Sugar()

	store, err := artifactstore.New(artifactstore.Config{
		Root:       t.TempDir(),
		SigningKey: []byte("test-signing-key"),
		TTL:        time.Second,
	}, log)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	runner := sandbox.NewMockRunner()
	runner.Default = &sandbox.RunResult{Status: types.RunStatusSucceeded, ExitCode: 0, Stdout: "ok\n"}

	// Shared between the orchestrator (which writes completed records) and
	// the server (which serves GET /v1/runs/{id} from the same store).
	runs := runstore.New()

	orch := orchestrator.New(orchestrator.Config{
		Limits:   testPolicy(),
		Store:    store,
		Runs:     runs,
		Runner:   runner,
		WorkRoot: t.TempDir(),
	}, log)

	hub, err := streamhub.New(streamhub.Config{})
	if err != nil {
		t.Fatalf("new hub: %v", err)
	}

	srv := NewServer(Config{
		Orchestrator: orch,
		Store:        store,
		Runs:         runs,
		Limiter:      ratelimit.NewMemoryLimiter(rl),
		Hub:          hub,
		JWTIssuer:    auth.NewJWTIssuer("test-jwt-secret"),
		TenantKeys:   auth.TenantKeys{"test-key": "tenant-a"},
	}, log)

	return &testServer{srv: srv, store: store}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.srv.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealthNeedsNoAuth(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{DefaultRPS: 100, DefaultBurst: 100})
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreateRunRequiresAPIKey(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{DefaultRPS: 100, DefaultBurst: 100})
	body, _ := json.Marshal(types.RunRequest{Language: types.LanguagePython, Code: "print(1)"})
	req := httptest.NewRequest(http.MethodPost, "/v1/runs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := ts.do(req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with no API key, got %d", rec.Code)
	}
}

func TestCreateRunSucceedsWithAPIKey(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{DefaultRPS: 100, DefaultBurst: 100})
	body, _ := json.Marshal(types.RunRequest{Language: types.LanguagePython, Code: "print(1)"})
	req := httptest.NewRequest(http.MethodPost, "/v1/runs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "test-key")

	rec := ts.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got types.RunRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Status != types.RunStatusSucceeded {
		t.Fatalf("expected succeeded, got %s", got.Status)
	}

	// The record served over GET must be the same one the orchestrator wrote.
	getReq := httptest.NewRequest(http.MethodGet, "/v1/runs/"+got.ID, nil)
	getReq.Header.Set("X-API-Key", "test-key")
	getRec := ts.do(getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching run, got %d: %s", getRec.Code, getRec.Body.String())
	}
}

func TestCreateRunSucceedsWithBearerToken(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{DefaultRPS: 100, DefaultBurst: 100})
	body, _ := json.Marshal(types.RunRequest{Language: types.LanguagePython, Code: "print(1)"})
	req := httptest.NewRequest(http.MethodPost, "/v1/runs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test-key")

	rec := ts.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with bearer token, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateRunRejectsUnknownBearerToken(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{DefaultRPS: 100, DefaultBurst: 100})
	body, _ := json.Marshal(types.RunRequest{Language: types.LanguagePython, Code: "print(1)"})
	req := httptest.NewRequest(http.MethodPost, "/v1/runs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer not-a-real-key")

	rec := ts.do(req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with unknown bearer token, got %d", rec.Code)
	}
}

func TestRateLimitRejectsSixthRequest(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{DefaultRPS: 5, DefaultBurst: 5})
	body, _ := json.Marshal(types.RunRequest{Language: types.LanguagePython, Code: "print(1)"})

	var codes []int
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/runs", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", "test-key")
		codes = append(codes, ts.do(req).Code)
	}

	for i := 0; i < 5; i++ {
		if codes[i] != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, codes[i])
		}
	}
	if codes[5] != http.StatusTooManyRequests {
		t.Fatalf("expected 6th request to be rate limited, got %d", codes[5])
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src.txt")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestDownloadArtifactRejectsTamperedSignature(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{DefaultRPS: 100, DefaultBurst: 100})

	desc, err := ts.store.IngestArtifact(writeTempFile(t, "ok"), "report.txt", "text/plain")
	if err != nil {
		t.Fatalf("ingest artifact: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, desc.URL+"tampered", nil)
	rec := ts.do(req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for tampered signature, got %d", rec.Code)
	}
}

func TestDownloadArtifactRejectsExpiredURL(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{DefaultRPS: 100, DefaultBurst: 100})

	desc, err := ts.store.IngestArtifact(writeTempFile(t, "ok"), "report.txt", "text/plain")
	if err != nil {
		t.Fatalf("ingest artifact: %v", err)
	}

	// Store TTL is 1s and the signed expiry has whole-second granularity,
	// so two seconds is always past it.
	time.Sleep(2 * time.Second)

	req := httptest.NewRequest(http.MethodGet, desc.URL, nil)
	rec := ts.do(req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for expired signature, got %d", rec.Code)
	}
}

func TestDownloadArtifactSucceedsWithValidSignature(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{DefaultRPS: 100, DefaultBurst: 100})

	desc, err := ts.store.IngestArtifact(writeTempFile(t, "ok"), "report.txt", "text/plain")
	if err != nil {
		t.Fatalf("ingest artifact: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, desc.URL, nil)
	rec := ts.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("expected body %q, got %q", "ok", rec.Body.String())
	}
}

func TestGetRunNotFound(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{DefaultRPS: 100, DefaultBurst: 100})
	req := httptest.NewRequest(http.MethodGet, "/v1/runs/does-not-exist", nil)
	req.Header.Set("X-API-Key", "test-key")

	rec := ts.do(req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
