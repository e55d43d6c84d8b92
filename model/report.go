package model

import "strings"

// Report is the itemized result of validating one file. Validation never
// fails outright on malformed input; problems become issues in the report.
type Report struct {
	Path   string
	Format string
	Issues []Issue
}

// Issue is one structural problem found during validation.
type Issue struct {
	Code    string // stable identifier, e.g. "epub.mimetype-missing"
	Message string
}

// Add appends an issue to the report.
func (r *Report) Add(code, message string) {
	r.Issues = append(r.Issues, Issue{Code: code, Message: message})
}

// Valid reports whether no issues were found.
func (r *Report) Valid() bool { return len(r.Issues) == 0 }

// String renders the report for display.
func (r *Report) String() string {
	if r.Valid() {
		return r.Path + ": valid " + r.Format
	}
	var b strings.Builder
	b.WriteString(r.Path)
	b.WriteString(": invalid ")
	b.WriteString(r.Format)
	for _, iss := range r.Issues {
		b.WriteString("\n  - ")
		b.WriteString(iss.Code)
		b.WriteString(": ")
		b.WriteString(iss.Message)
	}
	return b.String()
}
