package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrapChainsPathAndHint(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindIO, "epub.read", cause).WithPath("book.epub").WithHint("check permissions")

	if !IsKind(err, KindIO) {
		t.Errorf("IsKind(KindIO) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped cause not reachable via errors.Is")
	}
	if err.Path != "book.epub" {
		t.Errorf("Path = %q", err.Path)
	}
	if got := HintFor(err); got != "check permissions" {
		t.Errorf("HintFor = %q", got)
	}
	if !strings.Contains(err.Error(), "book.epub") {
		t.Errorf("Error() = %q, want path included", err.Error())
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(KindIO, "op", nil); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestWrapSameKindKeepsInnermostOp(t *testing.T) {
	inner := New(KindParse, "mobi.header", "bad magic")
	err := Wrap(KindParse, "mobi.read", inner)
	if err != inner {
		t.Errorf("same-kind Wrap created a new layer: %v", err)
	}
	if err := Wrap(KindIO, "mobi.read", inner); err == inner {
		t.Error("different-kind Wrap did not add a layer")
	}
}

func TestWithPathDoesNotMutateOriginal(t *testing.T) {
	base := New(KindNotFound, "op", "missing")
	bound := base.WithPath("a.txt")
	if base.Path != "" {
		t.Errorf("original mutated: Path = %q", base.Path)
	}
	if bound.Path != "a.txt" {
		t.Errorf("copy Path = %q", bound.Path)
	}
}

func TestDefaultHints(t *testing.T) {
	err := New(KindUnsupportedFormat, "open", "unknown extension")
	if HintFor(err) == "" {
		t.Error("expected a default hint for KindUnsupportedFormat")
	}
}

func TestHintSurvivesOuterWrapping(t *testing.T) {
	inner := New(KindContainer, "pdf.load", "no xref").WithHint("try repair")
	outer := fmt.Errorf("reading: %w", inner)
	if got := HintFor(outer); got != "try repair" {
		t.Errorf("HintFor through fmt wrap = %q", got)
	}
	if !IsKind(outer, KindContainer) {
		t.Error("IsKind through fmt wrap = false")
	}
}
