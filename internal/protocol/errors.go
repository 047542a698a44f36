package protocol

import (
	"errors"
	"fmt"
)

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Element construction.
	ErrMalformedElement = "E_MALFORMED_ELEMENT"
	ErrWrongVariant     = "E_WRONG_VARIANT"
	ErrDuplicateKey     = "E_DUPLICATE_KEY"

	// Update application.
	ErrEmptyStack = "E_EMPTY_STACK"
	ErrUnknownKey = "E_UNKNOWN_KEY"
	ErrStale      = "E_STALE"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrMalformedElement: {},
	ErrWrongVariant:     {},
	ErrDuplicateKey:     {},
	ErrEmptyStack:       {},
	ErrUnknownKey:       {},
	ErrStale:            {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// Error is a protocol violation carrying the wire code reported in ACK
// rejections.
type Error struct {
	Code string
	Msg  string
}

func (e *Error) Error() string { return e.Code + ": " + e.Msg }

func Errorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf returns the wire code of err, or E_PROTO_BAD_REQUEST if err does
// not carry one.
func CodeOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ErrProtoBadRequest
}

// HasCode reports whether err carries the given wire code.
func HasCode(err error, code string) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Code == code
}
