package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// testJPEG encodes a noisy gradient so JPEG recompression at lower quality
// has something to shrink.
func testJPEG(t *testing.T, w, h, quality int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x*7 + y*3),
				G: uint8(x * y),
				B: uint8(x + y),
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestOptimize_ResizeWithinBounds(t *testing.T) {
	src := testJPEG(t, 1600, 2000, 95)

	out, mime, err := Optimize(src, "image/jpeg", Options{MaxWidth: 1200, MaxHeight: 1600, Quality: 80})
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	if mime != "image/jpeg" {
		t.Errorf("mime = %q, want image/jpeg", mime)
	}

	w, h, err := Dimensions(out)
	if err != nil {
		t.Fatalf("Dimensions() error = %v", err)
	}
	if w > 1200 || h > 1600 {
		t.Errorf("resized to %dx%d, want within 1200x1600", w, h)
	}
	if len(out) >= len(src) {
		t.Errorf("optimized size %d not smaller than original %d", len(out), len(src))
	}
}

func TestOptimize_PreservesAspectRatio(t *testing.T) {
	src := testJPEG(t, 2000, 1000, 90)

	out, _, err := Optimize(src, "image/jpeg", Options{MaxWidth: 1000, MaxHeight: 1000, Quality: 80})
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}

	w, h, err := Dimensions(out)
	if err != nil {
		t.Fatal(err)
	}
	if w != 1000 || h != 500 {
		t.Errorf("got %dx%d, want 1000x500", w, h)
	}
}

func TestOptimize_NoUpscale(t *testing.T) {
	src := testJPEG(t, 100, 80, 90)

	out, _, err := Optimize(src, "image/jpeg", Options{MaxWidth: 1920, MaxHeight: 1920, Quality: 80})
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}

	w, h, err := Dimensions(out)
	if err != nil {
		t.Fatal(err)
	}
	if w != 100 || h != 80 {
		t.Errorf("got %dx%d, want original 100x80", w, h)
	}
}

func TestOptimize_NoResizeMode(t *testing.T) {
	src := testJPEG(t, 1600, 1600, 95)

	out, _, err := Optimize(src, "image/jpeg", Options{MaxWidth: 100, MaxHeight: 100, Quality: 60, NoResize: true})
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}

	w, h, err := Dimensions(out)
	if err != nil {
		t.Fatal(err)
	}
	if w != 1600 || h != 1600 {
		t.Errorf("NoResize changed dimensions to %dx%d", w, h)
	}
	if len(out) >= len(src) {
		t.Errorf("recompression at quality 60 did not shrink: %d >= %d", len(out), len(src))
	}
}

// testTransparentPNG carries a real alpha gradient so the opaque check
// fails and lossy re-encoding is off the table.
func testTransparentPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: uint8(x + y)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestOptimize_OpaquePNGShrinksBelowFullQuality(t *testing.T) {
	src := testPNG(t, 200, 200)

	out, mime, err := Optimize(src, "image/png", Options{MaxWidth: 50, MaxHeight: 50, Quality: 80})
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	if mime != "image/jpeg" {
		t.Errorf("mime = %q, want image/jpeg for opaque lossy output", mime)
	}
	if len(out) >= len(src) {
		t.Errorf("16x pixel reduction did not shrink: %d >= %d", len(out), len(src))
	}
	w, h, err := Dimensions(out)
	if err != nil {
		t.Fatal(err)
	}
	if w != 50 || h != 50 {
		t.Errorf("got %dx%d, want 50x50", w, h)
	}
}

func TestOptimize_TransparentPNGStaysPNG(t *testing.T) {
	src := testTransparentPNG(t, 300, 300)

	out, mime, err := Optimize(src, "image/png", Options{MaxWidth: 150, MaxHeight: 150, Quality: 80})
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	if mime != "image/png" {
		t.Errorf("mime = %q, want image/png", mime)
	}
	w, h, err := Dimensions(out)
	if err != nil {
		t.Fatal(err)
	}
	if w != 150 || h != 150 {
		t.Errorf("got %dx%d, want 150x150", w, h)
	}
}

func TestOptimize_PNGStaysPNGAtFullQuality(t *testing.T) {
	src := testPNG(t, 300, 300)

	_, mime, err := Optimize(src, "image/png", Options{MaxWidth: 150, MaxHeight: 150, Quality: 100})
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	if mime != "image/png" {
		t.Errorf("mime = %q, want image/png at quality 100", mime)
	}
}

func TestOptimize_InvalidData(t *testing.T) {
	if _, _, err := Optimize([]byte("not an image"), "image/jpeg", DefaultOptions()); err == nil {
		t.Error("Optimize() on garbage: want error, got nil")
	}
}
