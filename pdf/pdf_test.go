package pdf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/model"
)

func sampleMetadata() model.Metadata {
	return model.Metadata{
		Title:       "Night and Day",
		Author:      "Virginia Woolf",
		Publisher:   "Duckworth",
		Description: "A comedy of manners.",
		Language:    "en",
		ISBN:        "9780000000002",
		PubDate:     "1919-10-20",
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.pdf")

	w := New()
	if err := w.SetMetadata(sampleMetadata()); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	w.AddChapter("Chapter 1", "Katharine poured out tea.\n\nIt was a Sunday evening in October.")
	w.AddChapter("Chapter 2", "The young man shut the door.")
	if err := w.WriteToFile(path); err != nil {
		t.Fatalf("WriteToFile: %v", err)
	}

	r := New()
	if err := r.ReadFromFile(path); err != nil {
		t.Fatalf("ReadFromFile: %v", err)
	}

	meta, err := r.Metadata()
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	want := sampleMetadata()
	if meta.Title != want.Title || meta.Author != want.Author ||
		meta.Publisher != want.Publisher || meta.ISBN != want.ISBN ||
		meta.Description != want.Description || meta.PubDate != want.PubDate {
		t.Errorf("metadata mismatch: %+v", meta)
	}
	if meta.Language != "en" {
		t.Errorf("Language = %q, want en", meta.Language)
	}
	if meta.Format != "PDF" {
		t.Errorf("Format = %q, want PDF", meta.Format)
	}
	if v, ok := meta.GetCustom("pdf.producer"); !ok || v == "" {
		t.Errorf("pdf.producer custom field missing")
	}

	content, err := r.Content()
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	for _, fragment := range []string{"Chapter 1", "Katharine poured out tea.", "It was a Sunday evening in October.", "The young man shut the door."} {
		if !strings.Contains(content, fragment) {
			t.Errorf("content missing %q:\n%s", fragment, content)
		}
	}

	toc, err := r.TOC()
	if err != nil {
		t.Fatalf("TOC: %v", err)
	}
	if len(toc) != 2 || toc[0].Title != "Chapter 1" || toc[1].Title != "Chapter 2" {
		t.Errorf("TOC = %+v", toc)
	}
}

func TestLongChapterPaginates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.pdf")

	body := strings.Repeat("A sentence that repeats for a very long while indeed. ", 300)
	w := New()
	w.SetMetadata(model.Metadata{Title: "Long"})
	w.SetContent(body)
	if err := w.WriteToFile(path); err != nil {
		t.Fatalf("WriteToFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := loadDocument(data)
	if err != nil {
		t.Fatalf("loadDocument: %v", err)
	}
	pages, err := doc.pageList()
	if err != nil {
		t.Fatalf("pageList: %v", err)
	}
	if len(pages) < 2 {
		t.Errorf("got %d pages, want at least 2", len(pages))
	}

	r := New()
	if err := r.ReadFromFile(path); err != nil {
		t.Fatalf("ReadFromFile: %v", err)
	}
	content, _ := r.Content()
	if !strings.Contains(content, "repeats for a very long while") {
		t.Error("text lost across page boundary")
	}
}

func TestQueriesBeforeReadFail(t *testing.T) {
	h := New()
	if _, err := h.Metadata(); !errs.IsKind(err, errs.KindNotFound) {
		t.Errorf("Metadata before read: %v", err)
	}
	if _, err := h.Content(); !errs.IsKind(err, errs.KindNotFound) {
		t.Errorf("Content before read: %v", err)
	}
	if _, err := h.Images(); !errs.IsKind(err, errs.KindNotFound) {
		t.Errorf("Images before read: %v", err)
	}
}

func TestNotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.pdf")
	if err := os.WriteFile(path, []byte("plain text, no header"), 0o644); err != nil {
		t.Fatal(err)
	}

	h := New()
	err := h.ReadFromFile(path)
	if !errs.IsKind(err, errs.KindContainer) {
		t.Errorf("ReadFromFile = %v, want container error", err)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"D:19191020120000", "1919-10-20"},
		{"D:19191020", "1919-10-20"},
		{"D:191910", "1919-10"},
		{"D:1919", "1919"},
		{"20240101", "2024-01-01"},
		{"whenever", "whenever"},
	}
	for _, tc := range tests {
		if got := parseDate(tc.in); got != tc.want {
			t.Errorf("parseDate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractTextOperators(t *testing.T) {
	content := []byte(`BT
/F1 12 Tf 72 720 Td (Hello ) Tj (world) Tj
0 -14 Td (second line) Tj
[ (ar) -20 (ray) ] TJ
ET
BT 72 600 Td (next block) ' ET`)

	got := extractText(content)
	want := "Hello world\nsecond linearray\nnext block"
	if got != want {
		t.Errorf("extractText:\ngot  %q\nwant %q", got, want)
	}
}

func TestExtractTextSkipsInlineImages(t *testing.T) {
	content := []byte("BT (before) Tj ET\nBI /W 1 /H 1 ID \x00\xff\x80 EI\nBT (after) Tj ET")
	got := extractText(content)
	if !strings.Contains(got, "before") || !strings.Contains(got, "after") {
		t.Errorf("extractText = %q", got)
	}
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.pdf")
	w := New()
	w.SetMetadata(sampleMetadata())
	w.SetContent("Fine.")
	if err := w.WriteToFile(good); err != nil {
		t.Fatal(err)
	}

	noHeader := filepath.Join(dir, "noheader.pdf")
	if err := os.WriteFile(noHeader, []byte("not a pdf at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := ValidateFile(good)
	if err != nil {
		t.Fatalf("ValidateFile: %v", err)
	}
	if !report.Valid() {
		t.Errorf("well formed file reported issues: %v", report.Issues)
	}

	report, err = ValidateFile(noHeader)
	if err != nil {
		t.Fatalf("ValidateFile: %v", err)
	}
	if report.Valid() {
		t.Error("headerless file reported valid")
	}
}

// truncate cuts the file at its final xref table, leaving objects
// intact but the cross-reference unreachable.
func truncateAtXref(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	i := strings.LastIndex(string(data), "xref")
	if i < 0 {
		t.Fatal("no xref marker in file")
	}
	if err := os.WriteFile(path, data[:i], 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReadRecoversFromMissingXref(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chopped.pdf")

	w := New()
	w.SetMetadata(sampleMetadata())
	w.AddChapter("Chapter 1", "Recoverable text.")
	if err := w.WriteToFile(path); err != nil {
		t.Fatal(err)
	}
	truncateAtXref(t, path)

	r := New()
	if err := r.ReadFromFile(path); err != nil {
		t.Fatalf("ReadFromFile after truncation: %v", err)
	}
	content, _ := r.Content()
	if !strings.Contains(content, "Recoverable text.") {
		t.Errorf("content = %q", content)
	}
	meta, _ := r.Metadata()
	if meta.Title != sampleMetadata().Title {
		t.Errorf("Title = %q", meta.Title)
	}
}

func TestRepairRebuildsDamagedXref(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "damaged.pdf")
	dst := filepath.Join(dir, "fixed.pdf")

	w := New()
	w.SetMetadata(sampleMetadata())
	w.AddChapter("Chapter 1", "First body.")
	w.AddChapter("Chapter 2", "Second body.")
	if err := w.WriteToFile(src); err != nil {
		t.Fatal(err)
	}
	truncateAtXref(t, src)

	report, err := ValidateFile(src)
	if err != nil {
		t.Fatal(err)
	}
	if report.Valid() {
		t.Fatal("truncated file reported valid")
	}

	if err := RepairFile(src, dst); err != nil {
		t.Fatalf("RepairFile: %v", err)
	}

	report, err = ValidateFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Valid() {
		t.Fatalf("repaired file still invalid: %v", report.Issues)
	}

	r := New()
	if err := r.ReadFromFile(dst); err != nil {
		t.Fatalf("ReadFromFile after repair: %v", err)
	}
	content, _ := r.Content()
	if !strings.Contains(content, "First body.") || !strings.Contains(content, "Second body.") {
		t.Errorf("content lost in repair:\n%s", content)
	}
	toc, _ := r.TOC()
	if len(toc) != 2 {
		t.Errorf("TOC = %+v, want 2 chapters", toc)
	}
}

func TestRepairValidIsNoop(t *testing.T) {
	src := filepath.Join(t.TempDir(), "ok.pdf")

	w := New()
	w.SetMetadata(sampleMetadata())
	w.SetContent("Untouched.")
	if err := w.WriteToFile(src); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(src)

	if err := RepairFile(src, src); err != nil {
		t.Fatalf("RepairFile: %v", err)
	}
	after, _ := os.ReadFile(src)
	if string(before) != string(after) {
		t.Error("repair rewrote a valid file")
	}
}
