package mobi

import (
	"bytes"
	"fmt"
)

// Compression values in the PalmDOC header.
const (
	compressionNone    = 1
	compressionPalmDoc = 2
	compressionHuffCDIC = 17480
)

// textRecordSize is the uncompressed size of each text record.
const textRecordSize = 4096

// palmdocDecompress expands one PalmDOC LZ77 record.
//
// Token ranges: 0x00 and 0x09..0x7f are literals; 0x01..0x08 prefix that
// many raw bytes; 0x80..0xbf hold a back-reference pair (11-bit distance,
// 3-bit length minus 3); 0xc0..0xff encode a space plus the byte XOR 0x80.
func palmdocDecompress(src []byte) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(textRecordSize)

	for i := 0; i < len(src); {
		c := src[i]
		i++
		switch {
		case c == 0x00 || (c >= 0x09 && c <= 0x7f):
			out.WriteByte(c)
		case c >= 0x01 && c <= 0x08:
			if i+int(c) > len(src) {
				return nil, fmt.Errorf("literal run of %d bytes overruns record", c)
			}
			out.Write(src[i : i+int(c)])
			i += int(c)
		case c >= 0x80 && c <= 0xbf:
			if i >= len(src) {
				return nil, fmt.Errorf("truncated back-reference")
			}
			pair := int(c)<<8 | int(src[i])
			i++
			distance := (pair >> 3) & 0x7ff
			length := (pair & 7) + 3
			if distance == 0 || distance > out.Len() {
				return nil, fmt.Errorf("back-reference distance %d out of window", distance)
			}
			// Overlapping copies are byte-at-a-time on purpose.
			for j := 0; j < length; j++ {
				out.WriteByte(out.Bytes()[out.Len()-distance])
			}
		default: // 0xc0..0xff
			out.WriteByte(' ')
			out.WriteByte(c ^ 0x80)
		}
	}
	return out.Bytes(), nil
}

// palmdocCompress produces a PalmDOC LZ77 stream for one record of at
// most textRecordSize bytes.
func palmdocCompress(src []byte) []byte {
	var out bytes.Buffer
	var literals []byte

	flushLiterals := func() {
		for len(literals) > 0 {
			b := literals[0]
			if b == 0x00 || (b >= 0x09 && b <= 0x7f) {
				out.WriteByte(b)
				literals = literals[1:]
				continue
			}
			// Bytes outside the self-representing range go out in a
			// counted run of up to 8.
			n := len(literals)
			if n > 8 {
				n = 8
			}
			out.WriteByte(byte(n))
			out.Write(literals[:n])
			literals = literals[n:]
		}
	}

	i := 0
	for i < len(src) {
		// Space followed by a printable byte packs into one token.
		if src[i] == ' ' && i+1 < len(src) && src[i+1] >= 0x40 && src[i+1] <= 0x7f {
			if dist, length := findMatch(src, i); length >= 4 {
				flushLiterals()
				writeBackref(&out, dist, length)
				i += length
				continue
			}
			flushLiterals()
			out.WriteByte(src[i+1] ^ 0x80)
			i += 2
			continue
		}

		if dist, length := findMatch(src, i); length >= 3 {
			flushLiterals()
			writeBackref(&out, dist, length)
			i += length
			continue
		}
		literals = append(literals, src[i])
		i++
	}
	flushLiterals()
	return out.Bytes()
}

// findMatch looks for the longest back-reference at position i, within
// the 2047-byte window and the 3..10 byte representable length range.
func findMatch(src []byte, i int) (distance, length int) {
	start := i - 2047
	if start < 0 {
		start = 0
	}
	maxLen := len(src) - i
	if maxLen > 10 {
		maxLen = 10
	}
	if maxLen < 3 {
		return 0, 0
	}
	for j := i - 1; j >= start; j-- {
		n := 0
		for n < maxLen && src[j+n] == src[i+n] {
			n++
		}
		if n > length {
			length = n
			distance = i - j
			if length == maxLen {
				break
			}
		}
	}
	if length < 3 {
		return 0, 0
	}
	return distance, length
}

func writeBackref(out *bytes.Buffer, distance, length int) {
	pair := 0x8000 | (distance << 3) | (length - 3)
	out.WriteByte(byte(pair >> 8))
	out.WriteByte(byte(pair))
}
