// Package filters implements the stream decode filters used by PDF
// content: FlateDecode with TIFF and PNG predictors, ASCIIHexDecode
// and ASCII85Decode.
package filters

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// Params carries decode parameters from a stream dictionary
// (Predictor, Columns, Colors, BitsPerComponent).
type Params map[string]interface{}

func (p Params) intOr(key string, def int) int {
	if p == nil {
		return def
	}
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// FlateDecode inflates zlib data and undoes the declared predictor.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	defer r.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	return applyPredictor(buf.Bytes(), params)
}

func applyPredictor(data []byte, params Params) ([]byte, error) {
	predictor := params.intOr("Predictor", 1)
	switch {
	case predictor == 1:
		return data, nil
	case predictor == 2:
		return tiffPredictor(data, params)
	case predictor >= 10 && predictor <= 15:
		return pngPredictor(data, params)
	}
	return nil, fmt.Errorf("unsupported predictor %d", predictor)
}

// tiffPredictor undoes TIFF predictor 2, each sample predicted from
// its left neighbor.
func tiffPredictor(data []byte, params Params) ([]byte, error) {
	columns := params.intOr("Columns", 1)
	colors := params.intOr("Colors", 1)
	if bpc := params.intOr("BitsPerComponent", 8); bpc != 8 {
		return nil, fmt.Errorf("TIFF predictor needs 8 bits per component, got %d", bpc)
	}

	rowLen := columns * colors
	if rowLen == 0 || len(data)%rowLen != 0 {
		return nil, fmt.Errorf("data length %d does not divide into %d byte rows", len(data), rowLen)
	}
	out := make([]byte, len(data))
	for row := 0; row < len(data)/rowLen; row++ {
		base := row * rowLen
		for i := 0; i < rowLen; i++ {
			out[base+i] = data[base+i]
			if i >= colors {
				out[base+i] += out[base+i-colors]
			}
		}
	}
	return out, nil
}

// pngPredictor undoes the PNG row predictors. Each row carries a
// leading tag byte naming its algorithm (None, Sub, Up, Average,
// Paeth); the output drops the tag bytes.
func pngPredictor(data []byte, params Params) ([]byte, error) {
	columns := params.intOr("Columns", 1)
	colors := params.intOr("Colors", 1)
	if bpc := params.intOr("BitsPerComponent", 8); bpc != 8 {
		return nil, fmt.Errorf("PNG predictor needs 8 bits per component, got %d", bpc)
	}

	bpp := colors
	rowLen := columns * colors
	stride := rowLen + 1
	if rowLen == 0 || len(data)%stride != 0 {
		return nil, fmt.Errorf("data length %d does not divide into %d byte rows", len(data), stride)
	}

	rows := len(data) / stride
	out := make([]byte, rows*rowLen)
	for row := 0; row < rows; row++ {
		tag := data[row*stride]
		src := data[row*stride+1 : (row+1)*stride]
		dst := out[row*rowLen : (row+1)*rowLen]
		var prev []byte
		if row > 0 {
			prev = out[(row-1)*rowLen : row*rowLen]
		}

		for i := range src {
			var left, up, upLeft byte
			if i >= bpp {
				left = dst[i-bpp]
			}
			if prev != nil {
				up = prev[i]
				if i >= bpp {
					upLeft = prev[i-bpp]
				}
			}
			switch tag {
			case 0:
				dst[i] = src[i]
			case 1:
				dst[i] = src[i] + left
			case 2:
				dst[i] = src[i] + up
			case 3:
				dst[i] = src[i] + byte((int(left)+int(up))/2)
			case 4:
				dst[i] = src[i] + paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("unknown PNG row predictor %d", tag)
			}
		}
	}
	return out, nil
}

// paeth picks the neighbor closest to the linear prediction, per the
// PNG specification.
func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// ASCIIHexDecode decodes hex pairs, ignoring whitespace. The > marker
// ends the data; an odd trailing digit is padded with zero.
func ASCIIHexDecode(data []byte) ([]byte, error) {
	var out bytes.Buffer
	var hi byte
	haveHi := false
	for _, c := range data {
		switch {
		case c == '>':
			if haveHi {
				out.WriteByte(hi << 4)
			}
			return out.Bytes(), nil
		case isSpace(c):
			continue
		}
		v, ok := hexDigit(c)
		if !ok {
			return nil, fmt.Errorf("invalid hex digit %q", c)
		}
		if haveHi {
			out.WriteByte(hi<<4 | v)
			haveHi = false
		} else {
			hi = v
			haveHi = true
		}
	}
	if haveHi {
		out.WriteByte(hi << 4)
	}
	return out.Bytes(), nil
}

// ASCII85Decode decodes base-85 groups of five characters into four
// bytes. 'z' abbreviates four zero bytes and ~> ends the data; a
// partial final group contributes its leading bytes.
func ASCII85Decode(data []byte) ([]byte, error) {
	var out bytes.Buffer
	var group [5]byte
	n := 0

	flush := func(count int) error {
		if count < 2 {
			return fmt.Errorf("short final base-85 group")
		}
		for i := count; i < 5; i++ {
			group[i] = 'u'
		}
		var v uint32
		for _, c := range group {
			if c < '!' || c > 'u' {
				return fmt.Errorf("invalid base-85 character %q", c)
			}
			v = v*85 + uint32(c-'!')
		}
		var quad [4]byte
		for i := 3; i >= 0; i-- {
			quad[i] = byte(v)
			v >>= 8
		}
		out.Write(quad[:count-1])
		return nil
	}

	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case isSpace(c):
			continue
		case c == '~':
			if n > 0 {
				if err := flush(n); err != nil {
					return nil, err
				}
			}
			return out.Bytes(), nil
		case c == 'z' && n == 0:
			out.Write([]byte{0, 0, 0, 0})
			continue
		}
		group[n] = c
		n++
		if n == 5 {
			if err := flush(5); err != nil {
				return nil, err
			}
			n = 0
		}
	}
	if n > 0 {
		if err := flush(n); err != nil {
			return nil, err
		}
	}
	return out.Bytes(), nil
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func isSpace(c byte) bool {
	switch c {
	case 0x00, 0x09, 0x0a, 0x0c, 0x0d, 0x20:
		return true
	}
	return false
}
