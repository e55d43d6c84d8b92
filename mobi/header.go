package mobi

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Text encodings named in the MOBI header.
const (
	encodingCP1252 = 1252
	encodingUTF8   = 65001
)

// palmDocHeader is the 16-byte block at the start of record zero.
type palmDocHeader struct {
	Compression uint16
	TextLength  uint32
	RecordCount uint16
	RecordSize  uint16
	Encryption  uint16
}

// mobiHeader is the subset of the MOBI header block that the reader
// and writer care about. It follows the PalmDOC header in record zero.
type mobiHeader struct {
	HeaderLength uint32
	MobiType     uint32
	TextEncoding uint32
	UniqueID     uint32
	FileVersion  uint32
	FullName     string
	Locale       uint32
	ExthFlags    uint32
}

const (
	palmDocHeaderSize = 16
	exthFlagPresent   = 0x40
)

func parsePalmDocHeader(rec []byte) (palmDocHeader, error) {
	if len(rec) < palmDocHeaderSize {
		return palmDocHeader{}, fmt.Errorf("record zero too short: %d bytes", len(rec))
	}
	return palmDocHeader{
		Compression: binary.BigEndian.Uint16(rec[0:2]),
		TextLength:  binary.BigEndian.Uint32(rec[4:8]),
		RecordCount: binary.BigEndian.Uint16(rec[8:10]),
		RecordSize:  binary.BigEndian.Uint16(rec[10:12]),
		Encryption:  binary.BigEndian.Uint16(rec[12:14]),
	}, nil
}

// parseMobiHeader parses the MOBI header at offset 16 of record zero.
// rec is the whole record, since the full-name offset is relative to
// the record start.
func parseMobiHeader(rec []byte) (mobiHeader, error) {
	base := palmDocHeaderSize
	if len(rec) < base+132 {
		return mobiHeader{}, fmt.Errorf("MOBI header truncated")
	}
	if string(rec[base:base+4]) != "MOBI" {
		return mobiHeader{}, fmt.Errorf("missing MOBI magic in record zero")
	}
	h := mobiHeader{
		HeaderLength: binary.BigEndian.Uint32(rec[base+4:]),
		MobiType:     binary.BigEndian.Uint32(rec[base+8:]),
		TextEncoding: binary.BigEndian.Uint32(rec[base+12:]),
		UniqueID:     binary.BigEndian.Uint32(rec[base+16:]),
		FileVersion:  binary.BigEndian.Uint32(rec[base+20:]),
		Locale:       binary.BigEndian.Uint32(rec[base+92:]),
		ExthFlags:    binary.BigEndian.Uint32(rec[base+128:]),
	}
	nameOffset := int(binary.BigEndian.Uint32(rec[base+84:]))
	nameLength := int(binary.BigEndian.Uint32(rec[base+88:]))
	if nameOffset > 0 && nameLength > 0 && nameOffset+nameLength <= len(rec) {
		h.FullName = string(rec[nameOffset : nameOffset+nameLength])
	}
	return h, nil
}

// exthData returns the EXTH block bytes when the header flags say one
// is present, or nil.
func exthData(rec []byte, h mobiHeader) []byte {
	if h.ExthFlags&exthFlagPresent == 0 {
		return nil
	}
	start := palmDocHeaderSize + int(h.HeaderLength)
	if start+12 > len(rec) || string(rec[start:start+4]) != "EXTH" {
		return nil
	}
	return rec[start:]
}

// Locale low byte to ISO 639-1 language code. The Palm locale scheme
// packs language in the low byte and region in the high byte.
var localeLanguages = map[uint32]string{
	0:  "",
	9:  "en",
	12: "fr",
	7:  "de",
	16: "it",
	10: "es",
	19: "nl",
	29: "sv",
	20: "nb",
	6:  "da",
	11: "fi",
	17: "ja",
	4:  "zh",
	18: "ko",
	1:  "ar",
	25: "ru",
	22: "pt",
	21: "pl",
}

func languageForLocale(locale uint32) string {
	return localeLanguages[locale&0xff]
}

func localeForLanguage(lang string) uint32 {
	if len(lang) > 2 {
		lang = lang[:2]
	}
	for code, name := range localeLanguages {
		if name == lang && name != "" {
			return code
		}
	}
	return 0
}

const mobiHeaderLength = 232

// buildRecordZero assembles record zero: PalmDOC header, MOBI header
// with the full name appended after any EXTH block, and the EXTH block
// itself when exth is non-empty.
func buildRecordZero(doc palmDocHeader, title string, locale uint32, uniqueID uint32, exth []byte) []byte {
	var out bytes.Buffer

	writeU16(&out, doc.Compression)
	writeU16(&out, 0)
	writeU32(&out, doc.TextLength)
	writeU16(&out, doc.RecordCount)
	writeU16(&out, doc.RecordSize)
	writeU16(&out, doc.Encryption)
	writeU16(&out, 0)

	fullNameOffset := palmDocHeaderSize + mobiHeaderLength + len(exth)

	header := make([]byte, mobiHeaderLength)
	copy(header[0:4], "MOBI")
	binary.BigEndian.PutUint32(header[4:], mobiHeaderLength)
	binary.BigEndian.PutUint32(header[8:], 2) // Mobipocket book
	binary.BigEndian.PutUint32(header[12:], encodingUTF8)
	binary.BigEndian.PutUint32(header[16:], uniqueID)
	binary.BigEndian.PutUint32(header[20:], 6)
	for i := 24; i < 64; i += 4 {
		binary.BigEndian.PutUint32(header[i:], 0xffffffff)
	}
	binary.BigEndian.PutUint32(header[84:], uint32(fullNameOffset))
	binary.BigEndian.PutUint32(header[88:], uint32(len(title)))
	binary.BigEndian.PutUint32(header[92:], locale)
	if len(exth) > 0 {
		binary.BigEndian.PutUint32(header[128:], exthFlagPresent)
	}
	// First non-book record index, past the text records.
	binary.BigEndian.PutUint32(header[192:], uint32(doc.RecordCount)+1)
	out.Write(header)

	out.Write(exth)
	out.WriteString(title)
	out.WriteByte(0)
	out.WriteByte(0)
	return out.Bytes()
}
