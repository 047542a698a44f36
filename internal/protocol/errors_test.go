package protocol

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrMalformedElement,
		ErrWrongVariant,
		ErrDuplicateKey,
		ErrEmptyStack,
		ErrUnknownKey,
		ErrStale,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestCodeOf(t *testing.T) {
	err := Errorf(ErrEmptyStack, "length %d", 0)
	if got := CodeOf(err); got != ErrEmptyStack {
		t.Fatalf("CodeOf: got %q want %q", got, ErrEmptyStack)
	}
	wrapped := fmt.Errorf("apply: %w", err)
	if got := CodeOf(wrapped); got != ErrEmptyStack {
		t.Fatalf("CodeOf wrapped: got %q want %q", got, ErrEmptyStack)
	}
	if got := CodeOf(errors.New("plain")); got != ErrProtoBadRequest {
		t.Fatalf("CodeOf plain: got %q want %q", got, ErrProtoBadRequest)
	}
	if !HasCode(wrapped, ErrEmptyStack) {
		t.Fatalf("HasCode should see through wrapping")
	}
}
