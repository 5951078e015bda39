package pdu

import "github.com/trunkctl/tetrabase/internal/bitio"

// NumFillBits returns the number of padding bits between a PDU's declared
// length and the full length of the slot buffer it was decoded from. Callers
// strip this many bits off the end of the window before handing the PDU body
// to the next layer.
func NumFillBits(buf *bitio.Buffer, pduLenBits int) int {
	n := buf.Len() - pduLenBits
	if n < 0 {
		return 0
	}
	return n
}

// WriteFillBits pads buf with n zero bits, the convention used whenever a
// slot's encoded content is shorter than the space allotted to it.
func WriteFillBits(buf *bitio.Buffer, n int) {
	if n <= 0 {
		return
	}
	buf.WriteZeroes(n)
}

// VerifyFillBits reports whether the n bits at the current position are all
// zero, the expected fill pattern. A non-zero fill bit usually indicates a
// misparsed length-indicator upstream.
func VerifyFillBits(buf *bitio.Buffer, n int) bool {
	if n <= 0 {
		return true
	}
	value, ok := buf.PeekBits(n)
	return ok && value == 0
}
