// Package pdu implements the typed-field codec and the PDU registry: the
// encoders and decoders for the fixed-layout air-interface messages that
// every higher layer (LLC, MLE, MM, CMCE, UMAC) exchanges as bit blocks.
package pdu

import (
	"errors"
	"fmt"
)

// InvalidValueError reports an enum decode that hit an unassigned code, or a
// structural invariant that failed during parsing.
type InvalidValueError struct {
	Field string
	Value uint64
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("pdu: invalid value %d for field %q", e.Value, e.Field)
}

// InconsistentLengthError reports a type-3/type-4 element whose declared
// length field didn't match the number of bits actually parsed.
type InconsistentLengthError struct {
	Expected int
	Found    int
}

func (e *InconsistentLengthError) Error() string {
	return fmt.Sprintf("pdu: inconsistent length: expected %d bits, found %d", e.Expected, e.Found)
}

// ErrUnknownElement is returned by a type-3/4 dispatcher when an element ID
// isn't recognized. The caller's buffer position is left untouched so an
// outer dispatcher can try the next possibility.
var ErrUnknownElement = errors.New("pdu: unrecognized element id")
