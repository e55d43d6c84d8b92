// Package errs defines the typed error vocabulary shared by all format
// handlers and engines. Every error carries a Kind identifying the failure
// class and a human-readable hint suggesting remediation, so callers (and
// the CLI) can surface actionable messages without string matching.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// KindIO indicates an underlying filesystem failure.
	KindIO Kind = iota
	// KindContainer indicates a ZIP/XML/PDF structural problem.
	KindContainer
	// KindUnsupportedFormat indicates an unknown extension or format tag.
	KindUnsupportedFormat
	// KindInvalidMetadata indicates a caller-supplied malformed field.
	KindInvalidMetadata
	// KindParse indicates format-specific content that could not be interpreted.
	KindParse
	// KindEncoding indicates text that could not be decoded under any attempted scheme.
	KindEncoding
	// KindNotFound indicates a query before a successful read, or a missing referenced entry.
	KindNotFound
	// KindInvalidStructure indicates a required container element is absent.
	KindInvalidStructure
	// KindUnsupportedOp indicates a capability not implemented for this format.
	KindUnsupportedOp
	// KindImage indicates an image decode or encode failure.
	KindImage
	// KindConversion indicates a source/target pairing that cannot be performed.
	KindConversion
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindContainer:
		return "container"
	case KindUnsupportedFormat:
		return "unsupported format"
	case KindInvalidMetadata:
		return "invalid metadata"
	case KindParse:
		return "parse"
	case KindEncoding:
		return "encoding"
	case KindNotFound:
		return "not found"
	case KindInvalidStructure:
		return "invalid structure"
	case KindUnsupportedOp:
		return "unsupported operation"
	case KindImage:
		return "image"
	case KindConversion:
		return "conversion"
	default:
		return "unknown"
	}
}

// defaultHints maps each kind to its standard remediation hint.
var defaultHints = map[Kind]string{
	KindIO:                "check that the file exists and you have read permissions",
	KindContainer:         "the archive may be corrupted; try the repair command",
	KindUnsupportedFormat: "supported formats are EPUB, MOBI, AZW/AZW3, FB2, CBZ, TXT, and PDF",
	KindInvalidMetadata:   "check the metadata field values (for example the ISBN format)",
	KindParse:             "the file structure may be corrupted or in an unexpected layout",
	KindEncoding:          "the file may use a text encoding that is not UTF-8 compatible",
	KindNotFound:          "verify the required file or component exists in the ebook",
	KindInvalidStructure:  "the file may not be a valid ebook; try the repair command before reading",
	KindUnsupportedOp:     "this operation is not available for this format",
	KindImage:             "ensure the image is JPEG, PNG, GIF, or WebP",
	KindConversion:        "not every format pair is convertible; the target must support writing",
}

// Error is the typed error returned throughout the module.
type Error struct {
	Kind Kind
	Op   string // operation, e.g. "epub.read"
	Path string // file path, when bound to one
	Hint string // remediation hint; defaulted per kind when empty
	Err  error  // wrapped cause, may be nil
}

// New builds an Error with the kind's default hint.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg), Hint: defaultHints[kind]}
}

// Newf builds an Error with a formatted message.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...), Hint: defaultHints[kind]}
}

// Wrap wraps an existing error with a kind and operation. A nil err
// yields a nil *Error; callers that forward the result as a plain
// error must guard err themselves first.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	// Don't stack Error on Error of the same kind; keep the innermost op.
	if e, ok := err.(*Error); ok && e.Kind == kind {
		return e
	}
	return &Error{Kind: kind, Op: op, Err: err, Hint: defaultHints[kind]}
}

// WithPath returns a copy of the error bound to a file path.
func (e *Error) WithPath(path string) *Error {
	cp := *e
	cp.Path = path
	return &cp
}

// WithHint returns a copy of the error with a more specific hint.
func (e *Error) WithHint(hint string) *Error {
	cp := *e
	cp.Hint = hint
	return &cp
}

// Error implements the error interface.
func (e *Error) Error() string {
	var msg string
	switch {
	case e.Op != "" && e.Err != nil:
		msg = fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		msg = fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		msg = e.Kind.String()
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	return msg
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// HintFor extracts the remediation hint from err, or "" when err carries none.
func HintFor(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Hint
	}
	return ""
}

// IsKind reports whether err is (or wraps) an Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
