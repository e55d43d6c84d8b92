// Package model provides the shared data model all format handlers produce
// and consume.
//
// This package defines the user-facing data structures that represent an
// ebook independent of its on-disk container. Every handler's read path
// ultimately produces these types and every write path consumes them, making
// them the vocabulary the conversion and validation engines are built on.
//
// # Metadata
//
// [Metadata] carries the first-class bibliographic fields plus an open
// mapping of custom fields for format-specific values that have no
// first-class slot (MOBI EXTH tags, ComicInfo series data, PDF Info keys).
// Absence of a field means "unknown", never an empty string: handlers must
// not invent values during conversion.
//
// # Table of contents
//
// [TocEntry] forms a tree. Entries appear in document (spine/reading)
// order; a child's level is exactly one deeper than its parent's.
//
// # Images
//
// [ImageData] holds raw image bytes with a MIME type derived from content
// sniffing or a manifest declaration, not from the filename alone.
package model
