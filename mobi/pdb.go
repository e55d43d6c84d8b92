package mobi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// Palm database type/creator signatures at offset 60.
const (
	sigBookMobi = "BOOKMOBI"
	sigTextRead = "TEXtREAd"
)

const (
	pdbHeaderSize = 78
	recordEntrySize = 8
)

// pdb is a parsed Palm database: the 78-byte header fields that matter
// plus every record's raw bytes in file order.
type pdb struct {
	Name      string
	Signature string // type+creator at offset 60
	Records   [][]byte
}

// parsePDB slices the database into records using the offset table. The
// last record runs to end of file.
func parsePDB(data []byte) (*pdb, error) {
	if len(data) < pdbHeaderSize {
		return nil, fmt.Errorf("file too small for a Palm database header (%d bytes)", len(data))
	}

	db := &pdb{
		Name:      trimPalmName(data[:32]),
		Signature: string(data[60:68]),
	}
	if db.Signature != sigBookMobi && db.Signature != sigTextRead {
		return nil, fmt.Errorf("unrecognized database signature %q", db.Signature)
	}

	numRecords := int(binary.BigEndian.Uint16(data[76:78]))
	if numRecords == 0 {
		return nil, fmt.Errorf("database has no records")
	}
	listEnd := pdbHeaderSize + numRecords*recordEntrySize
	if listEnd > len(data) {
		return nil, fmt.Errorf("record list (%d entries) exceeds file size", numRecords)
	}

	offsets := make([]int, numRecords)
	for i := 0; i < numRecords; i++ {
		off := int(binary.BigEndian.Uint32(data[pdbHeaderSize+i*recordEntrySize:]))
		if off < listEnd || off > len(data) {
			return nil, fmt.Errorf("record %d offset %d out of range", i, off)
		}
		if i > 0 && off < offsets[i-1] {
			return nil, fmt.Errorf("record %d offset %d precedes record %d", i, off, i-1)
		}
		offsets[i] = off
	}

	db.Records = make([][]byte, numRecords)
	for i, off := range offsets {
		end := len(data)
		if i+1 < numRecords {
			end = offsets[i+1]
		}
		db.Records[i] = data[off:end]
	}
	return db, nil
}

func trimPalmName(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}

// buildPDB serializes records into a Palm database image.
func buildPDB(name, signature string, records [][]byte) []byte {
	var buf bytes.Buffer

	nameBytes := make([]byte, 32)
	copy(nameBytes, name)
	nameBytes[31] = 0
	buf.Write(nameBytes)

	now := palmTime(time.Now())
	writeU16(&buf, 0)   // attributes
	writeU16(&buf, 0)   // version
	writeU32(&buf, now) // created
	writeU32(&buf, now) // modified
	writeU32(&buf, 0)   // backed up
	writeU32(&buf, 0)   // modification number
	writeU32(&buf, 0)   // app info
	writeU32(&buf, 0)   // sort info
	buf.WriteString(signature)
	writeU32(&buf, uint32(2*len(records))) // unique id seed
	writeU32(&buf, 0)                      // next record list
	writeU16(&buf, uint16(len(records)))

	offset := pdbHeaderSize + len(records)*recordEntrySize + 2 // +2 pad
	for i := range records {
		writeU32(&buf, uint32(offset))
		// attribute byte + 3-byte unique id
		buf.WriteByte(0)
		buf.WriteByte(byte(2 * i >> 16))
		buf.WriteByte(byte(2 * i >> 8))
		buf.WriteByte(byte(2 * i))
		offset += len(records[i])
	}
	writeU16(&buf, 0) // traditional 2-byte gap before record data

	for _, rec := range records {
		buf.Write(rec)
	}
	return buf.Bytes()
}

// palmTime converts to the Palm epoch (seconds since 1904-01-01).
func palmTime(t time.Time) uint32 {
	const palmEpochOffset = 2082844800
	return uint32(t.Unix() + palmEpochOffset)
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
