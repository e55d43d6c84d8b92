package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/foliokit/folio/cbz"
	"github.com/foliokit/folio/model"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("output %q does not contain %q", haystack, needle)
	}
}

func writeContentFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "content.txt")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWriteAndReadCommands(t *testing.T) {
	book := filepath.Join(t.TempDir(), "book.txt")
	content := writeContentFile(t, "Chapter 1\n\nIt was a dark and stormy night.")

	out, err := runCLI(t, "write", book,
		"--title", "To the Lighthouse",
		"--author", "Virginia Woolf",
		"--content-file", content)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	requireContains(t, out, "wrote")

	out, err = runCLI(t, "read", book, "--metadata")
	if err != nil {
		t.Fatalf("read --metadata: %v", err)
	}
	requireContains(t, out, "To the Lighthouse")
	requireContains(t, out, "Virginia Woolf")

	out, err = runCLI(t, "read", book)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	requireContains(t, out, "dark and stormy")
}

func TestWriteRejectsUnknownFormat(t *testing.T) {
	content := writeContentFile(t, "text")
	_, err := runCLI(t, "write", filepath.Join(t.TempDir(), "book.bin"),
		"--format", "docx", "--content-file", content)
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestConvertAndValidateCommands(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "book.txt")
	dst := filepath.Join(dir, "book.epub")
	content := writeContentFile(t, "Chapter One\n\nFirst.\n\nChapter Two\n\nSecond.")

	if _, err := runCLI(t, "write", src,
		"--title", "Orlando", "--content-file", content); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := runCLI(t, "convert", src, dst)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	requireContains(t, out, "converted")

	out, err = runCLI(t, "validate", dst)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	requireContains(t, out, "valid")
}

func TestValidateFailsOnDamagedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.epub")
	if err := os.WriteFile(path, []byte("this is not a zip archive"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := runCLI(t, "validate", path)
	if err == nil {
		t.Fatalf("expected validation failure, output: %q", out)
	}
}

func TestInfoJSON(t *testing.T) {
	book := filepath.Join(t.TempDir(), "book.txt")
	content := writeContentFile(t, "plain text body")
	if _, err := runCLI(t, "write", book,
		"--title", "The Waves", "--content-file", content); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := runCLI(t, "info", book, "--json")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	requireContains(t, out, `"title": "The Waves"`)
	requireContains(t, out, `"content_length"`)
}

func TestRepairCommandWritesCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "book.txt")
	dst := filepath.Join(dir, "fixed.txt")
	content := writeContentFile(t, "some readable text")
	if _, err := runCLI(t, "write", src, "--content-file", content); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := runCLI(t, "repair", src, "-o", dst)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	requireContains(t, out, "repaired")
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("expected repaired copy: %v", err)
	}
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 5), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestOptimizeCommand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "comic.cbz")
	dst := filepath.Join(dir, "small.cbz")

	h := cbz.New()
	if err := h.SetMetadata(model.Metadata{Title: "Pages"}); err != nil {
		t.Fatal(err)
	}
	if err := h.AddImage("page1.png", testPNG(t, 64, 64)); err != nil {
		t.Fatal(err)
	}
	if err := h.WriteToFile(src); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "optimize", src, "-o", dst, "--max-width", "32")
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	requireContains(t, out, "optimized")
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("expected optimized copy: %v", err)
	}
}

func TestOptimizeRejectsPlainText(t *testing.T) {
	book := filepath.Join(t.TempDir(), "book.txt")
	content := writeContentFile(t, "no images here")
	if _, err := runCLI(t, "write", book, "--content-file", content); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := runCLI(t, "optimize", book); err == nil {
		t.Fatal("expected error for text book")
	}
}
