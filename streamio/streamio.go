// Package streamio provides threshold-gated chunked file transfer.
//
// Handlers use it to keep peak memory bounded when reading or writing
// payloads above a per-format size threshold (10 MB for TXT, 50 MB for
// EPUB). Below the threshold callers take the direct whole-buffer path;
// the resulting bytes are identical either way — streaming is a memory
// optimization, never a semantic change.
package streamio

import (
	"bufio"
	"bytes"
	"io"
	"os"
)

// ChunkSize is the transfer buffer size for chunked reads and writes.
const ChunkSize = 128 * 1024

// Common thresholds, in bytes.
const (
	TxtThreshold  = 10 * 1024 * 1024
	EpubThreshold = 50 * 1024 * 1024
)

// ShouldStream reports whether the file at path meets or exceeds the
// given size threshold.
func ShouldStream(path string, threshold int64) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.Size() >= threshold, nil
}

// ReadAll reads the whole file in bounded chunks. The full content is
// still materialized in the returned buffer; the bound applies to the
// transfer buffer, keeping read syscalls and copies at ChunkSize.
func ReadAll(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if info, err := f.Stat(); err == nil && info.Size() > 0 {
		buf.Grow(int(info.Size()))
	}

	r := bufio.NewReaderSize(f, ChunkSize)
	chunk := make([]byte, ChunkSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// WriteAll writes data to path in bounded chunks through a buffered writer.
func WriteAll(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriterSize(f, ChunkSize)
	for off := 0; off < len(data); off += ChunkSize {
		end := off + ChunkSize
		if end > len(data) {
			end = len(data)
		}
		if _, err := w.Write(data[off:end]); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Copy streams from r to w in bounded chunks and returns the byte count.
func Copy(w io.Writer, r io.Reader) (int64, error) {
	buf := make([]byte, ChunkSize)
	return io.CopyBuffer(w, r, buf)
}
