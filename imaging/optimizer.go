// Package imaging provides the image optimization engine used by the
// handlers that embed raster images (EPUB, CBZ).
//
// Optimization resizes an image to fit within configured bounds while
// preserving aspect ratio (never upscaling) and re-encodes it at a given
// quality. Each call is pure with respect to its inputs: optimizing many
// images is independent per image and safe to parallelize from the caller.
package imaging

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"

	"github.com/foliokit/folio/errs"
)

// Options configures optimization.
type Options struct {
	MaxWidth  int // 0 means unbounded
	MaxHeight int // 0 means unbounded
	Quality   int // JPEG quality 1-100
	NoResize  bool
}

// DefaultOptions returns the engine defaults: fit within 1920x1920 at
// quality 85.
func DefaultOptions() Options {
	return Options{MaxWidth: 1920, MaxHeight: 1920, Quality: 85}
}

// Optimize resizes and recompresses a single image. The MIME type selects
// the output encoder; WebP input is re-encoded as JPEG because Go has no
// WebP encoder. Returns the new bytes and the output MIME type.
func Optimize(data []byte, mimeType string, opts Options) ([]byte, string, error) {
	const op = "imaging.optimize"

	img, srcFormat, err := decode(data, mimeType)
	if err != nil {
		return nil, "", errs.Wrap(errs.KindImage, op, err)
	}

	if !opts.NoResize {
		img = fit(img, opts.MaxWidth, opts.MaxHeight)
	}

	out, outMime, err := encode(img, srcFormat, opts.Quality)
	if err != nil {
		return nil, "", errs.Wrap(errs.KindImage, op, err)
	}
	return out, outMime, nil
}

// decode decodes image bytes. The sniffed content wins over the declared
// MIME type; the declared type only breaks ties for ambiguous content.
func decode(data []byte, mimeType string) (image.Image, string, error) {
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		img, err := webp.Decode(bytes.NewReader(data))
		return img, "webp", err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	_ = mimeType
	return img, format, nil
}

// fit scales img down to fit within maxW x maxH, preserving aspect ratio.
// Images already within bounds are returned unchanged; upscaling never
// happens.
func fit(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxW <= 0 {
		maxW = w
	}
	if maxH <= 0 {
		maxH = h
	}
	if w <= maxW && h <= maxH {
		return img
	}

	rw := float64(maxW) / float64(w)
	rh := float64(maxH) / float64(h)
	r := rw
	if rh < rw {
		r = rh
	}

	nw := int(float64(w) * r)
	nh := int(float64(h) * r)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// encode re-encodes img honoring the quality setting. JPEG and WebP
// emit JPEG. Opaque PNG input emits JPEG below quality 100: scaler
// output is interpolated and deflates poorly, so lossless PNG often
// grows past the original even after a large pixel reduction. PNG with
// transparency stays PNG; GIF stays GIF.
func encode(img image.Image, srcFormat string, quality int) ([]byte, string, error) {
	if quality < 1 || quality > 100 {
		quality = 85
	}

	var buf bytes.Buffer
	switch srcFormat {
	case "jpeg", "webp":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/jpeg", nil
	case "png":
		if quality < 100 && isOpaque(img) {
			if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
				return nil, "", err
			}
			return buf.Bytes(), "image/jpeg", nil
		}
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/png", nil
	case "gif":
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/gif", nil
	default:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/png", nil
	}
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

// Dimensions returns the pixel dimensions of an encoded image.
func Dimensions(data []byte) (w, h int, err error) {
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		img, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			return 0, 0, err
		}
		b := img.Bounds()
		return b.Dx(), b.Dy(), nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
