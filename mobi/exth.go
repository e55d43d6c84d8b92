package mobi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/foliokit/folio/model"
)

// EXTH tags with first-class metadata slots.
const (
	exthAuthor       = 100
	exthPublisher    = 101
	exthDescription  = 103
	exthISBN         = 104
	exthPubDate      = 106
	exthKF8Boundary  = 121
	exthCoverOffset  = 201
	exthUpdatedTitle = 503
)

type exthRecord struct {
	Tag  uint32
	Data []byte
}

// parseEXTH parses the EXTH block that follows the MOBI header in
// record zero. data must begin at the "EXTH" magic.
func parseEXTH(data []byte) ([]exthRecord, error) {
	if len(data) < 12 || string(data[:4]) != "EXTH" {
		return nil, fmt.Errorf("no EXTH block")
	}
	count := int(binary.BigEndian.Uint32(data[8:12]))

	records := make([]exthRecord, 0, count)
	pos := 12
	for i := 0; i < count; i++ {
		if pos+8 > len(data) {
			return records, fmt.Errorf("EXTH record %d truncated", i)
		}
		tag := binary.BigEndian.Uint32(data[pos:])
		length := int(binary.BigEndian.Uint32(data[pos+4:]))
		if length < 8 || pos+length > len(data) {
			return records, fmt.Errorf("EXTH record %d has bad length %d", i, length)
		}
		records = append(records, exthRecord{
			Tag:  tag,
			Data: data[pos+8 : pos+length],
		})
		pos += length
	}
	return records, nil
}

// applyEXTH folds EXTH records into metadata. Recognized tags fill
// first-class fields; printable unknown tags become exth.<n> custom
// fields so they survive a round trip.
func applyEXTH(records []exthRecord, meta *model.Metadata) {
	for _, r := range records {
		value := string(r.Data)
		switch r.Tag {
		case exthAuthor:
			meta.Author = value
		case exthPublisher:
			meta.Publisher = value
		case exthDescription:
			meta.Description = value
		case exthISBN:
			meta.ISBN = value
		case exthPubDate:
			meta.PubDate = value
		case exthUpdatedTitle:
			meta.Title = value
		case exthKF8Boundary, exthCoverOffset:
			// Structural, not descriptive.
		default:
			if isPrintable(r.Data) {
				meta.SetCustom("exth."+strconv.Itoa(int(r.Tag)), value)
			}
		}
	}
}

func hasEXTHTag(records []exthRecord, tag uint32) bool {
	for _, r := range records {
		if r.Tag == tag {
			return true
		}
	}
	return false
}

func isPrintable(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < 0x09 || (c > 0x0d && c < 0x20) {
			return false
		}
	}
	return true
}

// buildEXTH serializes metadata into an EXTH block, padded to a 4-byte
// boundary as the format requires.
func buildEXTH(meta model.Metadata) []byte {
	var records []exthRecord

	add := func(tag uint32, value string) {
		if value != "" {
			records = append(records, exthRecord{Tag: tag, Data: []byte(value)})
		}
	}
	add(exthAuthor, meta.Author)
	add(exthPublisher, meta.Publisher)
	add(exthDescription, meta.Description)
	add(exthISBN, meta.ISBN)
	add(exthPubDate, meta.PubDate)
	add(exthUpdatedTitle, meta.Title)
	for key, value := range meta.Custom {
		var tag int
		if _, err := fmt.Sscanf(key, "exth.%d", &tag); err == nil && tag > 0 {
			records = append(records, exthRecord{Tag: uint32(tag), Data: []byte(value)})
		}
	}

	var body bytes.Buffer
	for _, r := range records {
		writeU32(&body, r.Tag)
		writeU32(&body, uint32(8+len(r.Data)))
		body.Write(r.Data)
	}

	var out bytes.Buffer
	out.WriteString("EXTH")
	length := 12 + body.Len()
	pad := (4 - length%4) % 4
	writeU32(&out, uint32(length+pad))
	writeU32(&out, uint32(len(records)))
	out.Write(body.Bytes())
	out.Write(make([]byte, pad))
	return out.Bytes()
}
