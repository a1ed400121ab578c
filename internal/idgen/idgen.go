// Package idgen generates the short, prefixed, random identifiers used for
// run ids, uploaded-file ids, and artifact ids throughout the gateway.
package idgen

import (
	"crypto/rand"
	"fmt"
)

const (
	alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	idLen    = 12
)

// New returns "<prefix>_" followed by 12 characters drawn uniformly from a
// 62-character alphanumeric alphabet using crypto/rand. Collision is not
// checked; probability is negligible at expected scale.
func New(prefix string) string {
	// Bytes at or above the largest multiple of len(alphabet) are rejected
	// so that b % len(alphabet) is unbiased.
	limit := 256 - 256%len(alphabet)
	buf := make([]byte, idLen)
	out := make([]byte, 0, idLen)
	for len(out) < idLen {
		if _, err := rand.Read(buf); err != nil {
			panic(fmt.Sprintf("idgen: crypto/rand unavailable: %v", err))
		}
		for _, b := range buf {
			if int(b) < limit && len(out) < idLen {
				out = append(out, alphabet[int(b)%len(alphabet)])
			}
		}
	}
	return prefix + "_" + string(out)
}

// Run mints a run id: "run_" + 12 alphanumeric characters.
func Run() string { return New("run") }

// File mints an uploaded-file id: "file_" + 12 alphanumeric characters.
func File() string { return New("file") }

// Artifact mints an artifact id, using the same alphabet and length as
// Run/File (spec requires the same generator across ids).
func Artifact() string { return New("artifact") }
