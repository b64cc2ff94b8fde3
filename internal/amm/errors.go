package amm

import (
	"errors"
	"fmt"

	"solana-pool-monitor/internal/domain"
)

// DecodeReason classifies why a decode was rejected.
type DecodeReason int

const (
	// ReasonUnknownProtocol means the program is not in the registry.
	// The decoder never guesses a layout.
	ReasonUnknownProtocol DecodeReason = iota
	// ReasonBufferTooShort means the buffer ended before a declared field.
	ReasonBufferTooShort
	// ReasonFieldOutOfRange means a decoded value failed its domain check.
	ReasonFieldOutOfRange
)

func (r DecodeReason) String() string {
	switch r {
	case ReasonUnknownProtocol:
		return "unknown_protocol"
	case ReasonBufferTooShort:
		return "buffer_too_short"
	case ReasonFieldOutOfRange:
		return "field_out_of_range"
	default:
		return "unknown"
	}
}

// DecodeError is a recoverable per-item decode failure. Callers skip the
// offending item and continue; it never aborts sibling instructions.
type DecodeError struct {
	Reason   DecodeReason
	Protocol domain.Protocol
	// Field names the first field that could not be read or failed its
	// range check, "" for UnknownProtocol.
	Field string
	Msg   string
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("decode %s: %s: field %s: %s", e.Protocol, e.Reason, e.Field, e.Msg)
	}
	return fmt.Sprintf("decode %s: %s: %s", e.Protocol, e.Reason, e.Msg)
}

// AsDecodeError unwraps err into a DecodeError, nil if it is not one.
func AsDecodeError(err error) *DecodeError {
	var de *DecodeError
	if errors.As(err, &de) {
		return de
	}
	return nil
}

func errUnknownProtocol(programID string) *DecodeError {
	return &DecodeError{
		Reason: ReasonUnknownProtocol,
		Msg:    fmt.Sprintf("program %s is not registered", programID),
	}
}

func errBufferTooShort(protocol domain.Protocol, field string, need, have int) *DecodeError {
	return &DecodeError{
		Reason:   ReasonBufferTooShort,
		Protocol: protocol,
		Field:    field,
		Msg:      fmt.Sprintf("need %d bytes, have %d", need, have),
	}
}

func errFieldOutOfRange(protocol domain.Protocol, field string, msg string) *DecodeError {
	return &DecodeError{
		Reason:   ReasonFieldOutOfRange,
		Protocol: protocol,
		Field:    field,
		Msg:      msg,
	}
}
