package mobi

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/model"
)

func TestPalmdocRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"short", "Hello, world."},
		{"spaces", "a b c d e f g h i j k l m n o p"},
		{"repeats", strings.Repeat("the quick brown fox jumps over the lazy dog. ", 50)},
		{"html", "<html><body><p>It was a dark and stormy night.</p></body></html>"},
		{"highbytes", "caf\u00e9 na\u00efve r\u00e9sum\u00e9 \u65e5\u672c\u8a9e"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			compressed := palmdocCompress([]byte(tc.text))
			got, err := palmdocDecompress(compressed)
			if err != nil {
				t.Fatalf("palmdocDecompress: %v", err)
			}
			if string(got) != tc.text {
				t.Errorf("round trip mismatch:\ngot  %q\nwant %q", got, tc.text)
			}
		})
	}
}

func TestPalmdocCompressionShrinksRepetitiveText(t *testing.T) {
	text := []byte(strings.Repeat("All work and no play makes Jack a dull boy. ", 80))
	compressed := palmdocCompress(text)
	if len(compressed) >= len(text) {
		t.Errorf("compressed %d bytes to %d, expected a reduction", len(text), len(compressed))
	}
}

func sampleMetadata() model.Metadata {
	meta := model.Metadata{
		Title:       "The Voyage Out",
		Author:      "Virginia Woolf",
		Publisher:   "Duckworth",
		Description: "A first novel.",
		Language:    "en",
		ISBN:        "9780000000001",
		PubDate:     "1915-03-26",
	}
	return meta
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.mobi")

	w := New()
	if err := w.SetMetadata(sampleMetadata()); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	w.AddChapter("Chapter 1", "Rachel boarded the Euphrosyne.\n\nThe river slid past.")
	w.AddChapter("Chapter 2", "The voyage continued.")
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
		meta.PubDate != want.PubDate || meta.Description != want.Description {
		t.Errorf("metadata mismatch: %+v", meta)
	}
	if meta.Language != "en" {
		t.Errorf("Language = %q, want en", meta.Language)
	}
	if meta.Format != "MOBI" {
		t.Errorf("Format = %q, want MOBI", meta.Format)
	}

	content, err := r.Content()
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	for _, fragment := range []string{"Chapter 1", "Rachel boarded the Euphrosyne.", "The river slid past.", "The voyage continued."} {
		if !strings.Contains(content, fragment) {
			t.Errorf("content missing %q:\n%s", fragment, content)
		}
	}
	if strings.Contains(content, "<p>") {
		t.Errorf("markup leaked into content:\n%s", content)
	}

	toc, err := r.TOC()
	if err != nil {
		t.Fatalf("TOC: %v", err)
	}
	if len(toc) != 2 || toc[0].Title != "Chapter 1" || toc[1].Title != "Chapter 2" {
		t.Errorf("TOC = %+v", toc)
	}
}

func TestLongBookSpansMultipleRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.mobi")

	body := strings.Repeat("One must have a mind of winter to regard the frost. ", 500)
	w := New()
	w.SetMetadata(model.Metadata{Title: "Long Book"})
	w.SetContent(body)
	if err := w.WriteToFile(path); err != nil {
		t.Fatalf("WriteToFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	db, err := parsePDB(data)
	if err != nil {
		t.Fatalf("parsePDB: %v", err)
	}
	// Record zero, at least two text records, EOF record.
	if len(db.Records) < 4 {
		t.Fatalf("got %d records, want at least 4", len(db.Records))
	}

	r := New()
	if err := r.ReadFromFile(path); err != nil {
		t.Fatalf("ReadFromFile: %v", err)
	}
	content, _ := r.Content()
	if !strings.Contains(content, "a mind of winter") {
		t.Errorf("content lost across record boundary")
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
	if _, err := h.TOC(); !errs.IsKind(err, errs.KindNotFound) {
		t.Errorf("TOC before read: %v", err)
	}
}

func TestUnknownEXTHTagBecomesCustomField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagged.mobi")

	w := New()
	meta := model.Metadata{Title: "Tagged"}
	meta.SetCustom("exth.204", "folio")
	w.SetMetadata(meta)
	w.SetContent("Body text.")
	if err := w.WriteToFile(path); err != nil {
		t.Fatalf("WriteToFile: %v", err)
	}

	r := New()
	if err := r.ReadFromFile(path); err != nil {
		t.Fatalf("ReadFromFile: %v", err)
	}
	got, _ := r.Metadata()
	if v, ok := got.GetCustom("exth.204"); !ok || v != "folio" {
		t.Errorf("exth.204 = %q, %v", v, ok)
	}
}

func TestKF8BoundaryMarksFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.azw3")

	w := New()
	meta := model.Metadata{Title: "Enhanced"}
	meta.SetCustom("exth.121", "\x00\x00\x00\x05")
	w.SetMetadata(meta)
	w.SetContent("KF8 body.")
	if err := w.WriteToFile(path); err != nil {
		t.Fatalf("WriteToFile: %v", err)
	}

	r := New()
	if err := r.ReadFromFile(path); err != nil {
		t.Fatalf("ReadFromFile: %v", err)
	}
	got, _ := r.Metadata()
	if got.Format != "KF8" {
		t.Errorf("Format = %q, want KF8", got.Format)
	}
}

// encryptedBook builds a database whose PalmDOC header declares
// encryption, the way DRM protected AZW files do.
func encryptedBook(t *testing.T, dir string) string {
	t.Helper()

	h := New()
	h.SetMetadata(model.Metadata{Title: "Locked", Author: "Unknown"})
	h.SetContent("Secret text.")
	data := h.buildDatabase()

	// The encryption field sits at offset 12 of record zero, and the
	// first record offset at entry zero of the record list.
	rec0 := int(binary.BigEndian.Uint32(data[pdbHeaderSize:]))
	binary.BigEndian.PutUint16(data[rec0+12:], 2)

	path := filepath.Join(dir, "locked.azw")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMobiRejectsDRM(t *testing.T) {
	path := encryptedBook(t, t.TempDir())

	h := New()
	err := h.ReadFromFile(path)
	if !errs.IsKind(err, errs.KindUnsupportedOp) {
		t.Fatalf("ReadFromFile = %v, want unsupported operation", err)
	}
	if !strings.Contains(strings.ToLower(errs.HintFor(err)), "drm") {
		t.Errorf("hint %q does not mention DRM", errs.HintFor(err))
	}
}

func TestAZWReadsMetadataUnderDRM(t *testing.T) {
	path := encryptedBook(t, t.TempDir())

	a := NewAZW()
	if err := a.ReadFromFile(path); err != nil {
		t.Fatalf("ReadFromFile: %v", err)
	}

	meta, err := a.Metadata()
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if meta.Title != "Locked" || meta.Author != "Unknown" {
		t.Errorf("metadata = %+v", meta)
	}
	if meta.Format != "AZW" {
		t.Errorf("Format = %q, want AZW", meta.Format)
	}

	if _, err := a.Content(); !errs.IsKind(err, errs.KindUnsupportedOp) {
		t.Errorf("Content under DRM: %v", err)
	}
	if _, err := a.TOC(); !errs.IsKind(err, errs.KindUnsupportedOp) {
		t.Errorf("TOC under DRM: %v", err)
	}
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.mobi")
	w := New()
	w.SetMetadata(sampleMetadata())
	w.SetContent("Fine.")
	if err := w.WriteToFile(good); err != nil {
		t.Fatal(err)
	}

	notAMobi := filepath.Join(dir, "bad.mobi")
	if err := os.WriteFile(notAMobi, []byte("this is not a palm database, just some text padding"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		path  string
		valid bool
	}{
		{"well formed", good, true},
		{"not a database", notAMobi, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			report, err := ValidateFile(tc.path)
			if err != nil {
				t.Fatalf("ValidateFile: %v", err)
			}
			if report.Valid() != tc.valid {
				t.Errorf("Valid() = %v, want %v; issues: %v", report.Valid(), tc.valid, report.Issues)
			}
		})
	}
}

func TestValidateReportsRecordCountMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.mobi")

	h := New()
	h.SetMetadata(model.Metadata{Title: "Short"})
	h.SetContent("Body.")
	data := h.buildDatabase()

	// Inflate the declared text record count past what exists.
	rec0 := int(binary.BigEndian.Uint32(data[pdbHeaderSize:]))
	binary.BigEndian.PutUint16(data[rec0+8:], 99)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := ValidateFile(path)
	if err != nil {
		t.Fatalf("ValidateFile: %v", err)
	}
	if report.Valid() {
		t.Fatal("expected a record count issue")
	}
	found := false
	for _, issue := range report.Issues {
		if issue.Code == "mobi.records" {
			found = true
		}
	}
	if !found {
		t.Errorf("issues = %v, want mobi.records", report.Issues)
	}
}

func TestRepairValidIsNoop(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ok.mobi")

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
	if !bytes.Equal(before, after) {
		t.Error("repair rewrote a valid file")
	}
}

func TestReadToleratesInflatedRecordCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inflated.mobi")

	h := New()
	h.SetMetadata(sampleMetadata())
	h.SetContent("Recoverable body text.")
	data := h.buildDatabase()
	// An inflated count reaches past the text section into the EOF
	// marker record; the read must stop at TextLength instead of
	// decompressing the marker.
	rec0 := int(binary.BigEndian.Uint32(data[pdbHeaderSize:]))
	binary.BigEndian.PutUint16(data[rec0+8:], 99)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	r := New()
	if err := r.ReadFromFile(path); err != nil {
		t.Fatalf("ReadFromFile: %v", err)
	}
	content, err := r.Content()
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if !strings.Contains(content, "Recoverable body text.") {
		t.Errorf("content = %q, want body text intact", content)
	}
}

func TestRepairRecordCountMismatch(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.mobi")
	dst := filepath.Join(dir, "fixed.mobi")

	h := New()
	h.SetMetadata(sampleMetadata())
	h.SetContent("Recoverable body text.")
	data := h.buildDatabase()
	rec0 := int(binary.BigEndian.Uint32(data[pdbHeaderSize:]))
	binary.BigEndian.PutUint16(data[rec0+8:], 99)
	if err := os.WriteFile(src, data, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := RepairFile(src, dst); err != nil {
		t.Fatalf("RepairFile: %v", err)
	}

	report, err := ValidateFile(dst)
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
	meta, _ := r.Metadata()
	if meta.Title != sampleMetadata().Title {
		t.Errorf("Title = %q after repair", meta.Title)
	}
	content, _ := r.Content()
	if !strings.Contains(content, "Recoverable body text.") {
		t.Errorf("content lost in repair:\n%s", content)
	}
}

func TestRepairSalvagesGarbledDatabase(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "garbled.mobi")
	dst := filepath.Join(dir, "salvaged.mobi")

	var raw bytes.Buffer
	name := make([]byte, 32)
	copy(name, "Wrecked Book")
	raw.Write(name)
	raw.Write(make([]byte, pdbHeaderSize-32))
	raw.WriteString("Some legible sentence that survived the corruption intact.")
	raw.Write([]byte{0x00, 0xff, 0x01})
	if err := os.WriteFile(src, raw.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := RepairFile(src, dst); err != nil {
		t.Fatalf("RepairFile: %v", err)
	}

	r := New()
	if err := r.ReadFromFile(dst); err != nil {
		t.Fatalf("ReadFromFile after salvage: %v", err)
	}
	meta, _ := r.Metadata()
	if meta.Title != "Wrecked Book" {
		t.Errorf("Title = %q, want Wrecked Book", meta.Title)
	}
	content, _ := r.Content()
	if !strings.Contains(content, "legible sentence") {
		t.Errorf("salvaged content = %q", content)
	}
}

func TestHeadingTOCFromPlainChapterLines(t *testing.T) {
	headings := plainTextHeadings("Chapter 1\n\nText here.\n\nChapter 2\n\nMore text.\n")
	if len(headings) != 2 {
		t.Fatalf("got %d headings, want 2", len(headings))
	}
	if headings[0].title != "Chapter 1" || headings[1].title != "Chapter 2" {
		t.Errorf("headings = %+v", headings)
	}
}

func TestHeadingTOCClampsLevelSkips(t *testing.T) {
	html := "<html><body>" +
		"<h1>Part One</h1><p>intro</p>" +
		"<h3>Deep Section</h3><p>body</p>" +
		"<h2>Chapter</h2><p>more</p>" +
		"</body></html>"
	_, headings := stripMarkup(html)
	if len(headings) != 3 {
		t.Fatalf("got %d headings, want 3", len(headings))
	}

	toc := headingTOC(headings)
	// An h1 followed by an h3 must not jump two levels; each entry
	// nests at most one step below its predecessor.
	wantLevels := []int{0, 1, 1}
	for i, e := range toc {
		if e.Level != wantLevels[i] {
			t.Errorf("entry %d (%q) level = %d, want %d", i, e.Title, e.Level, wantLevels[i])
		}
	}
	for i := 1; i < len(toc); i++ {
		if toc[i].Level > toc[i-1].Level+1 {
			t.Errorf("nesting jumps more than one step at entry %d: %d -> %d",
				i, toc[i-1].Level, toc[i].Level)
		}
	}
}
