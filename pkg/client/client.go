// Package client is a small HTTP client for the code-execution gateway's
// public API, shared by cmd/gatewayctl and any Go program that wants to
// submit runs without hand-rolling requests.
//
// Grounded on the teacher's pkg/client/client.go: same doRequest-wraps-
// http.Client shape, generalized from sandbox lifecycle calls to the
// run/file surface of this gateway. Authenticates with an Authorization:
// Bearer header, the gateway's documented auth scheme.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"github.com/codeexec/gateway/pkg/types"
)

// Client is an HTTP client for the gateway API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client against baseURL (e.g. "http://localhost:8080"),
// authenticating with apiKey.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("client: marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("client: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: execute request: %w", err)
	}
	return resp, nil
}

func decodeOrError(resp *http.Response, dest interface{}) error {
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body))
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

// CreateRun submits req and blocks until the run completes.
func (c *Client) CreateRun(ctx context.Context, req types.RunRequest) (*types.RunRecord, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/runs", req)
	if err != nil {
		return nil, err
	}
	var rec types.RunRecord
	if err := decodeOrError(resp, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// StreamHint is the response to CreateRunStream: a run id, its starting
// status, and a subscription token authorizing a call to
// StreamURL(id, hint) for live frames.
type StreamHint struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Hint   string `json:"hint"`
}

// CreateRunStream submits req and returns as soon as the run has been
// admitted, without waiting for it to finish. Use the returned hint's
// token to open the run's stream endpoint.
func (c *Client) CreateRunStream(ctx context.Context, req types.RunRequest) (*StreamHint, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/runs/stream", req)
	if err != nil {
		return nil, err
	}
	var hint StreamHint
	if err := decodeOrError(resp, &hint); err != nil {
		return nil, err
	}
	return &hint, nil
}

// GetRun fetches a previously created run record by id.
func (c *Client) GetRun(ctx context.Context, runID string) (*types.RunRecord, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/runs/"+runID, nil)
	if err != nil {
		return nil, err
	}
	var rec types.RunRecord
	if err := decodeOrError(resp, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// StreamURL builds the websocket URL for subscribing to runID's live
// output, authenticated with the hint token from CreateRunStream.
func (c *Client) StreamURL(runID, hint string) string {
	u := c.baseURL + "/v1/runs/" + runID + "/stream"
	if u[:5] == "https" {
		u = "wss" + u[5:]
	} else if u[:4] == "http" {
		u = "ws" + u[4:]
	}
	return u + "?token=" + url.QueryEscape(hint)
}

// UploadFile uploads a local file's contents for later staging into a
// run's inputs via a FileStagingEntry.
func (c *Client) UploadFile(ctx context.Context, name, contentType string, r io.Reader) (*types.UploadedFile, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("client: create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("client: copy file content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("client: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/files", &buf)
	if err != nil {
		return nil, fmt.Errorf("client: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: execute request: %w", err)
	}
	var uploaded types.UploadedFile
	if err := decodeOrError(resp, &uploaded); err != nil {
		return nil, err
	}
	return &uploaded, nil
}
