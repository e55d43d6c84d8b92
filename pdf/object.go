package pdf

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Object is any value in the PDF object model. The concrete types are
// Null, Bool, Int, Real, String, Name, Array, Dict, *Stream and Ref.
type Object interface {
	// write serializes the object in PDF syntax.
	write(b *strings.Builder)
}

// Null is the PDF null object.
type Null struct{}

func (Null) write(b *strings.Builder) { b.WriteString("null") }

// Bool is a PDF boolean.
type Bool bool

func (v Bool) write(b *strings.Builder) {
	if v {
		b.WriteString("true")
	} else {
		b.WriteString("false")
	}
}

// Int is a PDF integer.
type Int int64

func (v Int) write(b *strings.Builder) { b.WriteString(strconv.FormatInt(int64(v), 10)) }

// Real is a PDF real number.
type Real float64

func (v Real) write(b *strings.Builder) {
	b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 64))
}

// String is a PDF string. The value is the decoded bytes, not the
// on-disk escaped form.
type String string

func (v String) write(b *strings.Builder) {
	b.WriteByte('(')
	for i := 0; i < len(v); i++ {
		switch c := v[i]; c {
		case '(', ')', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(')')
}

// Name is a PDF name without its leading slash.
type Name string

func (v Name) write(b *strings.Builder) {
	b.WriteByte('/')
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c <= 0x20 || c >= 0x7f || strings.IndexByte("()<>[]{}/%#", c) >= 0 {
			fmt.Fprintf(b, "#%02X", c)
		} else {
			b.WriteByte(c)
		}
	}
}

// Array is a PDF array.
type Array []Object

func (v Array) write(b *strings.Builder) {
	b.WriteByte('[')
	for i, obj := range v {
		if i > 0 {
			b.WriteByte(' ')
		}
		obj.write(b)
	}
	b.WriteByte(']')
}

// Dict is a PDF dictionary keyed by name (without the slash).
type Dict map[string]Object

func (v Dict) write(b *strings.Builder) {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteString("<<")
	for _, k := range keys {
		b.WriteByte(' ')
		Name(k).write(b)
		b.WriteByte(' ')
		v[k].write(b)
	}
	b.WriteString(" >>")
}

// Name returns the name value for key, or "".
func (v Dict) Name(key string) Name {
	n, _ := v[key].(Name)
	return n
}

// Int returns the integer value for key with ok reporting presence.
func (v Dict) Int(key string) (int, bool) {
	switch n := v[key].(type) {
	case Int:
		return int(n), true
	case Real:
		return int(n), true
	}
	return 0, false
}

// Dict returns the dictionary value for key, or nil.
func (v Dict) Dict(key string) Dict {
	d, _ := v[key].(Dict)
	return d
}

// Array returns the array value for key, or nil.
func (v Dict) Array(key string) Array {
	a, _ := v[key].(Array)
	return a
}

// String returns the string value for key, or "".
func (v Dict) String(key string) String {
	s, _ := v[key].(String)
	return s
}

// Ref is an indirect object reference. Generation numbers are carried
// but never used for resolution; the newest object wins.
type Ref struct {
	Num int
	Gen int
}

func (v Ref) write(b *strings.Builder) {
	b.WriteString(strconv.Itoa(v.Num))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(v.Gen))
	b.WriteString(" R")
}

// Stream is a stream object: a dictionary plus raw (still encoded)
// data.
type Stream struct {
	Dict Dict
	Data []byte
}

func (v *Stream) write(b *strings.Builder) {
	v.Dict.write(b)
	b.WriteString("\nstream\n")
	b.Write(v.Data)
	b.WriteString("\nendstream")
}

// serialize renders an object in PDF syntax.
func serialize(obj Object) string {
	var b strings.Builder
	obj.write(&b)
	return b.String()
}
