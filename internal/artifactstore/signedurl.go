package artifactstore

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Signer mints and verifies HMAC-signed download URLs. No server-side state
// is kept per issued URL: the expiry and path both live inside the signed
// payload, so verification is a pure function of the request and the
// process-wide signing key.
type Signer struct {
	key []byte
}

// NewSigner returns a Signer using the given HMAC key.
func NewSigner(key []byte) *Signer {
	return &Signer{key: key}
}

type urlPayload struct {
	Path   string `json:"path"`
	Exp    int64  `json:"exp"`
	Method string `json:"method"`
}

// Sign builds a signed download URL for path, valid until expiresAt. base
// is the public base URL to prefix (e.g. "https://api.example.com"); an
// empty base yields a path-only URL.
func (s *Signer) Sign(base, path string, expiresAt time.Time) (string, error) {
	payload := urlPayload{Path: path, Exp: expiresAt.Unix(), Method: "GET"}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("signedurl: marshal payload: %w", err)
	}
	encoded := base64.URLEncoding.EncodeToString(raw)
	sig := s.mac(raw)

	return fmt.Sprintf("%s%s?payload=%s&sig=%s", base, path, encoded, sig), nil
}

func (s *Signer) mac(payload []byte) string {
	h := hmac.New(sha256.New, s.key)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// Verify checks a payload/sig pair against the request path. All failure
// reasons — bad signature, path mismatch, wrong method, expired — collapse
// to a single boolean so callers cannot distinguish them externally
// (defense in depth per spec). The signature comparison runs in constant
// time regardless of whether earlier checks already failed.
func (s *Signer) Verify(requestPath, payloadB64, sigHex string, now time.Time) bool {
	raw, decodeErr := base64.URLEncoding.DecodeString(payloadB64)

	expectedSig := s.mac(raw)
	sigOK := false
	if sigBytes, err := hex.DecodeString(sigHex); err == nil {
		if expectedBytes, err := hex.DecodeString(expectedSig); err == nil {
			sigOK = hmac.Equal(sigBytes, expectedBytes)
		}
	}

	var payload urlPayload
	parseErr := json.Unmarshal(raw, &payload)

	pathOK := parseErr == nil && payload.Path == requestPath
	methodOK := parseErr == nil && payload.Method == "GET"
	notExpired := parseErr == nil && now.Unix() <= payload.Exp

	return decodeErr == nil && sigOK && pathOK && methodOK && notExpired
}
