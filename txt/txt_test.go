package txt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/model"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadPlainFile(t *testing.T) {
	path := writeTemp(t, "story.txt", []byte("Once upon a time.\nThe end.\n"))

	h := New()
	if err := h.ReadFromFile(path); err != nil {
		t.Fatalf("ReadFromFile() error = %v", err)
	}

	meta, err := h.Metadata()
	if err != nil {
		t.Fatal(err)
	}
	if meta.Title != "story" {
		t.Errorf("Title = %q, want file stem %q", meta.Title, "story")
	}
	if meta.Format != "TXT" {
		t.Errorf("Format = %q, want TXT", meta.Format)
	}

	content, err := h.Content()
	if err != nil {
		t.Fatal(err)
	}
	if content != "Once upon a time.\nThe end.\n" {
		t.Errorf("Content() = %q", content)
	}
}

func TestQueriesBeforeReadFail(t *testing.T) {
	h := New()
	if _, err := h.Metadata(); !errs.IsKind(err, errs.KindNotFound) {
		t.Errorf("Metadata() before read: got %v, want KindNotFound", err)
	}
	if _, err := h.Content(); !errs.IsKind(err, errs.KindNotFound) {
		t.Errorf("Content() before read: got %v, want KindNotFound", err)
	}
	if _, err := h.TOC(); !errs.IsKind(err, errs.KindNotFound) {
		t.Errorf("TOC() before read: got %v, want KindNotFound", err)
	}
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	w := New()
	if err := w.SetMetadata(model.Metadata{Title: "My Book", Author: "John Doe"}); err != nil {
		t.Fatal(err)
	}
	if err := w.SetContent("Chapter 1\n\nHello."); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteToFile(path); err != nil {
		t.Fatalf("WriteToFile() error = %v", err)
	}

	r := New()
	if err := r.ReadFromFile(path); err != nil {
		t.Fatalf("ReadFromFile() error = %v", err)
	}
	meta, _ := r.Metadata()
	if meta.Title != "My Book" {
		t.Errorf("Title = %q, want My Book", meta.Title)
	}
	if meta.Author != "John Doe" {
		t.Errorf("Author = %q, want John Doe", meta.Author)
	}
	content, _ := r.Content()
	if !strings.Contains(content, "Hello.") {
		t.Errorf("content %q does not contain Hello.", content)
	}
	if strings.Contains(content, "Title:") {
		t.Errorf("header leaked into content: %q", content)
	}
}

func TestContentWithoutHeaderUntouched(t *testing.T) {
	// A body that merely mentions "Title: x" mid-text must not lose lines.
	body := "First line.\nTitle: not a header\nLast line.\n"
	path := writeTemp(t, "n.txt", []byte(body))

	h := New()
	if err := h.ReadFromFile(path); err != nil {
		t.Fatal(err)
	}
	content, _ := h.Content()
	if content != body {
		t.Errorf("content altered: %q", content)
	}
}

func TestAddChapter(t *testing.T) {
	h := New()
	if err := h.AddChapter("Chapter 1", "First."); err != nil {
		t.Fatal(err)
	}
	if err := h.AddChapter("Chapter 2", "Second."); err != nil {
		t.Fatal(err)
	}
	content, _ := h.Content()
	want := "Chapter 1\n\nFirst.\n\nChapter 2\n\nSecond."
	if content != want {
		t.Errorf("Content() = %q, want %q", content, want)
	}
}

func TestDecodeText(t *testing.T) {
	latin, err := charmap.Windows1252.NewEncoder().Bytes([]byte("café français"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"utf8", []byte("héllo"), "héllo"},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("bom text")...), "bom text"},
		{"utf16le bom", []byte{0xFF, 0xFE, 'h', 0, 'i', 0}, "hi"},
		{"utf16be bom", []byte{0xFE, 0xFF, 0, 'h', 0, 'i'}, "hi"},
		{"windows-1252 fallback", latin, "café français"},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeText(tt.data)
			if err != nil {
				t.Fatalf("DecodeText() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateAndRepair(t *testing.T) {
	// Invalid UTF-8 without a BOM fails validation.
	bad := []byte("caf\xe9 stream\xff")
	path := writeTemp(t, "bad.txt", bad)

	report, err := ValidateFile(path)
	if err != nil {
		t.Fatalf("ValidateFile() error = %v", err)
	}
	if report.Valid() {
		t.Fatal("expected invalid report for non-UTF-8 content")
	}

	if err := RepairFile(path, path); err != nil {
		t.Fatalf("RepairFile() error = %v", err)
	}

	report, err = ValidateFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Valid() {
		t.Errorf("repaired file still invalid: %v", report.Issues)
	}
}

func TestRepairIdempotent(t *testing.T) {
	path := writeTemp(t, "ok.txt", []byte("all good\n"))

	if err := RepairFile(path, path); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := RepairFile(path, path); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("repair of a valid file changed its bytes")
	}
}
