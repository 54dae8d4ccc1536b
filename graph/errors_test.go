package graph

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKindClassification(t *testing.T) {
	compileTime := []ErrorKind{
		ParseError, UnknownLabel, UnknownRelationshipType,
		AmbiguousNodeBinding, UnboundVariable, DuplicateBinding,
		TypeMismatch, UnsupportedAggregate,
	}
	for _, kind := range compileTime {
		if !kind.IsCompileTime() {
			t.Errorf("%s should be a compile-time error", kind)
		}
	}
	for _, kind := range []ErrorKind{MissingDataset, ColumnNotFound} {
		if kind.IsCompileTime() {
			t.Errorf("%s should be an execution-time error", kind)
		}
	}
}

func TestErrorfAndKindOf(t *testing.T) {
	err := Errorf(UnknownLabel, "label %q", "Animal")
	kind, ok := KindOf(err)
	if !ok {
		t.Fatal("KindOf failed on a graph error")
	}
	if kind != UnknownLabel {
		t.Errorf("kind = %v, want UnknownLabel", kind)
	}
}

func TestKindOfWrappedError(t *testing.T) {
	inner := Errorf(MissingDataset, "no dataset %q", "person")
	wrapped := fmt.Errorf("running query: %w", inner)

	kind, ok := KindOf(wrapped)
	if !ok || kind != MissingDataset {
		t.Errorf("KindOf(wrapped) = %v, %t; want MissingDataset", kind, ok)
	}
}

func TestKindOfForeignError(t *testing.T) {
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("KindOf should fail on a non-graph error")
	}
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := Errorf(TypeMismatch, "a")
	target := &Error{Kind: TypeMismatch}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match errors of the same kind")
	}
	other := &Error{Kind: ParseError}
	if errors.Is(err, other) {
		t.Error("errors.Is should not match a different kind")
	}
}
