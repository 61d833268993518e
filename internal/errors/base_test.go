package errors

import (
	"errors"
	"testing"
)

func TestWrap(t *testing.T) {
	err := Wrap(errBase, "Hello, Wrapped!")
	if err.Error() != "Hello, Wrapped!, err: base error" {
		t.Fatalf("error mismatch: %+v", err)
	}
}

func TestWrapf(t *testing.T) {
	err := Wrapf(errBase, "cloid %d", 42)
	if err.Error() != "cloid 42, err: base error" {
		t.Fatalf("error mismatch: %+v", err)
	}
}

func TestWrapKeepsSentinel(t *testing.T) {
	err := Wrap(errBase, "outer")
	if !errors.Is(err, errBase) {
		t.Fatalf("wrapped error should match sentinel: %+v", err)
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(nil, "ignored"); err != nil {
		t.Fatalf("wrapping nil should stay nil, got: %+v", err)
	}
	if err := Wrapf(nil, "ignored %d", 1); err != nil {
		t.Fatalf("wrapping nil should stay nil, got: %+v", err)
	}
}
