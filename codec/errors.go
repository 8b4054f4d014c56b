package codec

import (
	"errors"
	"fmt"

	"github.com/pithecene-io/joinery/types"
)

// UnknownPayloadTypeError is returned when an event carries a payload tag
// outside the closed variant set.
type UnknownPayloadTypeError struct {
	PayloadType types.PayloadType
	ID          string
}

func (e *UnknownPayloadTypeError) Error() string {
	return fmt.Sprintf("event %q: unknown payload type %d", e.ID, uint8(e.PayloadType))
}

// DecodeError wraps a failure to decode a wire record.
type DecodeError struct {
	// What names the record being decoded.
	What string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.What, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsUnknownPayloadTypeError returns true if err is or wraps *UnknownPayloadTypeError.
func IsUnknownPayloadTypeError(err error) bool {
	var target *UnknownPayloadTypeError
	return errors.As(err, &target)
}

// IsDecodeError returns true if err is or wraps *DecodeError.
func IsDecodeError(err error) bool {
	var target *DecodeError
	return errors.As(err, &target)
}
