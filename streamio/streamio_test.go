package streamio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestReadWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")

	// Larger than one chunk so the loop runs more than once.
	data := bytes.Repeat([]byte("0123456789abcdef"), (ChunkSize/16)*3+5)

	if err := WriteAll(path, data); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}

	got, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("round trip mismatch: got %d bytes, want %d", len(got), len(data))
	}
}

func TestReadAllMatchesOSReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	data := []byte("small file content\nwith two lines\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	chunked, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	direct, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(chunked, direct) {
		t.Error("chunked and direct reads differ")
	}
}

func TestShouldStream(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, make([]byte, 1024), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		threshold int64
		want      bool
	}{
		{1, true},
		{1024, true}, // at threshold counts as streaming
		{1025, false},
		{TxtThreshold, false},
	}
	for _, tt := range tests {
		got, err := ShouldStream(path, tt.threshold)
		if err != nil {
			t.Fatalf("ShouldStream() error = %v", err)
		}
		if got != tt.want {
			t.Errorf("ShouldStream(threshold=%d) = %v, want %v", tt.threshold, got, tt.want)
		}
	}
}

func TestShouldStreamMissingFile(t *testing.T) {
	if _, err := ShouldStream(filepath.Join(t.TempDir(), "missing"), 1); err == nil {
		t.Error("ShouldStream() on missing file: want error, got nil")
	}
}
