package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/foliokit/folio/model"
)

// imageList extracts image XObjects from every page, in page order.
// DCTDecode streams are JPEG files and pass through unchanged; raw
// RGB and grayscale samples are wrapped into PNG. Other color spaces
// and bit depths are skipped rather than misrendered.
func (d *Document) imageList(pages []page) []model.ImageData {
	var out []model.ImageData
	seen := map[int]bool{}

	for _, pg := range pages {
		xobjects := d.resolveDict(pg.resources["XObject"])
		for name, ref := range xobjects {
			if r, ok := ref.(Ref); ok {
				if seen[r.Num] {
					continue
				}
				seen[r.Num] = true
			}
			stm, ok := d.resolve(ref).(*Stream)
			if !ok || stm.Dict.Name("Subtype") != "Image" {
				continue
			}
			if img, err := d.extractImage(name, stm); err == nil {
				out = append(out, img)
			}
		}
	}
	return out
}

func (d *Document) extractImage(name string, stm *Stream) (model.ImageData, error) {
	if hasFilter(d, stm, "DCTDecode") {
		return model.ImageData{
			Name:     name + ".jpg",
			MimeType: "image/jpeg",
			Data:     stm.Data,
		}, nil
	}

	decoded, err := d.decodeStream(stm)
	if err != nil {
		return model.ImageData{}, err
	}

	width, _ := stm.Dict.Int("Width")
	height, _ := stm.Dict.Int("Height")
	bpc, _ := stm.Dict.Int("BitsPerComponent")
	if width <= 0 || height <= 0 || bpc != 8 {
		return model.ImageData{}, fmt.Errorf("unsupported image geometry %dx%d/%d", width, height, bpc)
	}

	var img image.Image
	switch cs := d.resolve(stm.Dict["ColorSpace"]); cs {
	case Name("DeviceRGB"):
		if len(decoded) < width*height*3 {
			return model.ImageData{}, fmt.Errorf("RGB sample data too short")
		}
		rgba := image.NewNRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				i := (y*width + x) * 3
				rgba.SetNRGBA(x, y, color.NRGBA{decoded[i], decoded[i+1], decoded[i+2], 255})
			}
		}
		img = rgba
	case Name("DeviceGray"):
		if len(decoded) < width*height {
			return model.ImageData{}, fmt.Errorf("gray sample data too short")
		}
		gray := image.NewGray(image.Rect(0, 0, width, height))
		copy(gray.Pix, decoded[:width*height])
		img = gray
	default:
		return model.ImageData{}, fmt.Errorf("unsupported color space %v", cs)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return model.ImageData{}, err
	}
	return model.ImageData{
		Name:     name + ".png",
		MimeType: "image/png",
		Data:     buf.Bytes(),
	}, nil
}

func hasFilter(d *Document, stm *Stream, want Name) bool {
	switch f := d.resolve(stm.Dict["Filter"]).(type) {
	case Name:
		return f == want
	case Array:
		for _, item := range f {
			if n, ok := d.resolve(item).(Name); ok && n == want {
				return true
			}
		}
	}
	return false
}
