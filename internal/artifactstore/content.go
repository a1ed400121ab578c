package artifactstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// writeContentAddressed copies r into dstPath, hashing the uncompressed
// bytes as they stream through. Payloads at or above compressThreshold are
// stored zstd-compressed (dstPath + ".zst"); the sha256 always reflects the
// original, uncompressed content so a downloaded artifact's hash matches
// what a client receives after transparent decompression.
func writeContentAddressed(r io.Reader, dstPath string) (size int64, sha256Hex string, compressed bool, err error) {
	buffered, extra, isLarge, err := peek(r, compressThreshold)
	if err != nil {
		return 0, "", false, fmt.Errorf("artifactstore: read payload: %w", err)
	}

	h := sha256.New()
	tee := io.TeeReader(io.MultiReader(buffered, extra), h)

	targetPath := dstPath
	if isLarge {
		targetPath = dstPath + ".zst"
	}

	f, err := os.Create(targetPath)
	if err != nil {
		return 0, "", false, fmt.Errorf("artifactstore: create %s: %w", targetPath, err)
	}
	defer f.Close()

	var n int64
	if isLarge {
		enc, err := zstd.NewWriter(f)
		if err != nil {
			return 0, "", false, fmt.Errorf("artifactstore: zstd writer: %w", err)
		}
		n, err = io.Copy(enc, tee)
		if err != nil {
			enc.Close()
			return 0, "", false, fmt.Errorf("artifactstore: compress payload: %w", err)
		}
		if err := enc.Close(); err != nil {
			return 0, "", false, fmt.Errorf("artifactstore: finalize compression: %w", err)
		}
	} else {
		n, err = io.Copy(f, tee)
		if err != nil {
			return 0, "", false, fmt.Errorf("artifactstore: write payload: %w", err)
		}
	}

	return n, hex.EncodeToString(h.Sum(nil)), isLarge, nil
}

// openContentAddressed opens a stored file for reading, transparently
// decompressing it through a zstd reader if it was stored compressed.
func openContentAddressed(path string, compressed bool) (io.ReadCloser, error) {
	if !compressed {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("artifactstore: open %s: %w", path, err)
		}
		return f, nil
	}

	f, err := os.Open(path + ".zst")
	if err != nil {
		return nil, fmt.Errorf("artifactstore: open %s: %w", path+".zst", err)
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("artifactstore: zstd reader: %w", err)
	}
	return &decompressingReadCloser{dec: dec, file: f}, nil
}

type decompressingReadCloser struct {
	dec  *zstd.Decoder
	file *os.File
}

func (d *decompressingReadCloser) Read(p []byte) (int, error) { return d.dec.Read(p) }

func (d *decompressingReadCloser) Close() error {
	d.dec.Close()
	return d.file.Close()
}

// peek reads up to n bytes from r to decide whether the payload is large
// enough to warrant compression, without losing any bytes already read.
func peek(r io.Reader, n int) (buffered io.Reader, rest io.Reader, isLarge bool, err error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, nil, false, err
	}
	return byteReader(buf[:read]), r, read == n, nil
}

func byteReader(b []byte) io.Reader {
	return &sliceReader{b: b}
}

type sliceReader struct {
	b []byte
	i int
}

func (s *sliceReader) Read(p []byte) (int, error) {
	if s.i >= len(s.b) {
		return 0, io.EOF
	}
	n := copy(p, s.b[s.i:])
	s.i += n
	return n, nil
}
