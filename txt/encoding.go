package txt

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// DecodeText decodes raw bytes to a string. Detection order: byte order
// mark, UTF-8 validity, then a permissive Windows-1252 pass. The final
// fallback maps every byte, so decoding never fails on real input; the
// error return exists for transformer failures on the BOM paths.
func DecodeText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return string(data[3:]), nil
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return decodeUTF16(data, unicode.LittleEndian)
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return decodeUTF16(data, unicode.BigEndian)
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	return DecodePermissive(data), nil
}

func decodeUTF16(data []byte, endian unicode.Endianness) (string, error) {
	dec := unicode.UTF16(endian, unicode.ExpectBOM).NewDecoder()
	out, err := dec.Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// DecodePermissive decodes bytes as Windows-1252, the Latin-family
// fallback applied when the declared or detected encoding fails. Every
// byte maps to some rune, so this cannot fail.
func DecodePermissive(data []byte) string {
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		// Windows-1252 decoding is total; fall back byte-for-byte anyway.
		runes := make([]rune, len(data))
		for i, b := range data {
			runes[i] = rune(b)
		}
		return string(runes)
	}
	return string(out)
}
