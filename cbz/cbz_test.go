package cbz

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/imaging"
	"github.com/foliokit/folio/model"
)

func testPage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 7), uint8(y * 13), uint8((x + y) * 3), 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func buildArchive(t *testing.T, entries map[string][]byte) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(entries[name]); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "comic.cbz")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleComicInfo = `<?xml version="1.0"?>
<ComicInfo>
  <Title>Night Patrol</Title>
  <Series>Patrol</Series>
  <Number>3</Number>
  <Writer>Ann Author</Writer>
  <Publisher>Indie Press</Publisher>
  <Summary>A night in the city.</Summary>
  <Year>2021</Year>
  <Month>6</Month>
  <LanguageISO>en</LanguageISO>
</ComicInfo>`

func TestReadArchive(t *testing.T) {
	page := testPage(t, 8, 8)
	path := buildArchive(t, map[string][]byte{
		"ComicInfo.xml": []byte(sampleComicInfo),
		"page10.png":    page,
		"page2.png":     page,
		"page1.png":     page,
		"notes.txt":     []byte("ignored"),
	})

	h := New()
	if err := h.ReadFromFile(path); err != nil {
		t.Fatalf("ReadFromFile() error = %v", err)
	}

	meta, err := h.Metadata()
	if err != nil {
		t.Fatal(err)
	}
	if meta.Title != "Night Patrol" {
		t.Errorf("Title = %q", meta.Title)
	}
	if meta.Author != "Ann Author" {
		t.Errorf("Author = %q", meta.Author)
	}
	if meta.PubDate != "2021-06" {
		t.Errorf("PubDate = %q", meta.PubDate)
	}
	if series, _ := meta.GetCustom("cbz.series"); series != "Patrol" {
		t.Errorf("series = %q", series)
	}
	if number, _ := meta.GetCustom("cbz.number"); number != "3" {
		t.Errorf("number = %q", number)
	}

	images, err := h.Images()
	if err != nil {
		t.Fatal(err)
	}
	got := make([]string, len(images))
	for i, img := range images {
		got[i] = img.Name
	}
	want := []string{"page1.png", "page2.png", "page10.png"}
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("page order = %v, want %v", got, want)
		}
	}
	if images[0].MimeType != "image/png" {
		t.Errorf("MimeType = %q, want sniffed image/png", images[0].MimeType)
	}
}

func TestTitleFallsBackToFilename(t *testing.T) {
	path := buildArchive(t, map[string][]byte{"p1.png": testPage(t, 4, 4)})
	h := New()
	if err := h.ReadFromFile(path); err != nil {
		t.Fatal(err)
	}
	meta, _ := h.Metadata()
	if meta.Title != "comic" {
		t.Errorf("Title = %q, want archive stem", meta.Title)
	}
}

func TestContentSummary(t *testing.T) {
	path := buildArchive(t, map[string][]byte{
		"a.png": testPage(t, 4, 4),
		"b.png": testPage(t, 4, 4),
	})
	h := New()
	if err := h.ReadFromFile(path); err != nil {
		t.Fatal(err)
	}
	content, err := h.Content()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(content, "2 images") {
		t.Errorf("Content() = %q", content)
	}
}

func TestNaturalLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"page2.png", "page10.png", true},
		{"page10.png", "page2.png", false},
		{"page2.png", "page2.png", false},
		{"a1.png", "b1.png", true},
		{"page002.png", "page10.png", true},
		{"ch1/p2.png", "ch1/p10.png", true},
		{"1.png", "01a.png", true},
	}
	for _, tt := range tests {
		if got := naturalLess(tt.a, tt.b); got != tt.want {
			t.Errorf("naturalLess(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestAddImageDuplicate(t *testing.T) {
	h := New()
	if err := h.AddImage("p1.png", testPage(t, 4, 4)); err != nil {
		t.Fatal(err)
	}
	err := h.AddImage("p1.png", testPage(t, 4, 4))
	if !errs.IsKind(err, errs.KindImage) {
		t.Errorf("duplicate AddImage = %v, want KindImage", err)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.cbz")

	w := New()
	if err := w.SetMetadata(model.Metadata{
		Title:  "Round Trip",
		Author: "Pen Name",
	}); err != nil {
		t.Fatal(err)
	}
	if err := w.AddImage("page1.png", testPage(t, 6, 6)); err != nil {
		t.Fatal(err)
	}
	if err := w.AddImage("page2.png", testPage(t, 6, 6)); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteToFile(path); err != nil {
		t.Fatalf("WriteToFile() error = %v", err)
	}

	r := New()
	if err := r.ReadFromFile(path); err != nil {
		t.Fatalf("reading written archive: %v", err)
	}
	meta, _ := r.Metadata()
	if meta.Title != "Round Trip" {
		t.Errorf("Title = %q", meta.Title)
	}
	if meta.Author != "Pen Name" {
		t.Errorf("Author = %q", meta.Author)
	}
	images, _ := r.Images()
	if len(images) != 2 {
		t.Errorf("got %d images, want 2", len(images))
	}
}

func TestOptimizeImages(t *testing.T) {
	h := New()
	if err := h.AddImage("big.png", testPage(t, 400, 400)); err != nil {
		t.Fatal(err)
	}
	before := len(h.images[0].Data)

	saved, err := h.OptimizeImages(imaging.Options{MaxWidth: 100, MaxHeight: 100, Quality: 70})
	if err != nil {
		t.Fatalf("OptimizeImages() error = %v", err)
	}
	if saved <= 0 {
		t.Errorf("saved = %d, want > 0", saved)
	}
	if len(h.images[0].Data) >= before {
		t.Errorf("image did not shrink: %d -> %d", before, len(h.images[0].Data))
	}
}

func TestValidateFile(t *testing.T) {
	good := buildArchive(t, map[string][]byte{"p1.png": testPage(t, 4, 4)})
	report, err := ValidateFile(good)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Valid() {
		t.Errorf("good archive reported invalid: %v", report.Issues)
	}

	empty := buildArchive(t, map[string][]byte{"readme.txt": []byte("no pages")})
	report, err = ValidateFile(empty)
	if err != nil {
		t.Fatal(err)
	}
	if report.Valid() {
		t.Error("archive without pages reported valid")
	}

	notZip := filepath.Join(t.TempDir(), "junk.cbz")
	if err := os.WriteFile(notZip, []byte("not a zip at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	report, err = ValidateFile(notZip)
	if err != nil {
		t.Fatal(err)
	}
	if report.Valid() {
		t.Error("non-ZIP file reported valid")
	}
}

func TestRepairTruncatedCentralDirectory(t *testing.T) {
	page := testPage(t, 8, 8)
	path := buildArchive(t, map[string][]byte{
		"ComicInfo.xml": []byte(sampleComicInfo),
		"page1.png":     page,
		"page2.png":     page,
	})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Chop off the central directory, leaving only local entries.
	cd := bytes.Index(data, []byte{'P', 'K', 0x01, 0x02})
	if cd < 0 {
		t.Fatal("no central directory in test archive")
	}
	if err := os.WriteFile(path, data[:cd], 0o644); err != nil {
		t.Fatal(err)
	}

	if report, _ := ValidateFile(path); report.Valid() {
		t.Fatal("truncated archive reported valid")
	}
	if err := RepairFile(path, path); err != nil {
		t.Fatalf("RepairFile() error = %v", err)
	}
	report, err := ValidateFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Valid() {
		t.Fatalf("repaired archive still invalid: %v", report.Issues)
	}

	h := New()
	if err := h.ReadFromFile(path); err != nil {
		t.Fatal(err)
	}
	meta, _ := h.Metadata()
	if meta.Title != "Night Patrol" {
		t.Errorf("Title = %q, metadata lost in salvage", meta.Title)
	}
	images, _ := h.Images()
	if len(images) != 2 {
		t.Errorf("recovered %d pages, want 2", len(images))
	}
}

func TestRepairValidIsNoop(t *testing.T) {
	path := buildArchive(t, map[string][]byte{"p1.png": testPage(t, 4, 4)})
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := RepairFile(path, path); err != nil {
		t.Fatal(err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("repair of a valid archive changed its bytes")
	}
}
