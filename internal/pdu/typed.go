package pdu

import "github.com/trunkctl/tetrabase/internal/bitio"

// ReadOBit reads the O-bit preceding the first optional section. false means
// no type-2/3/4 elements follow.
func ReadOBit(b *bitio.Buffer) (bool, error) {
	v, err := b.ReadField(1, "obit")
	if err != nil {
		return false, err
	}
	return v == 1, nil
}

// WriteOBit writes the O-bit.
func WriteOBit(b *bitio.Buffer, present bool) {
	b.WriteBit(boolBit(present))
}

func boolBit(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}

// ParseType2Generic reads an optional type-2 element gated by a P-bit. If
// obit is false the element cannot be present and None is returned without
// consuming the buffer.
func ParseType2Generic(obit bool, b *bitio.Buffer, numBits int, fieldName string) (*uint64, error) {
	if !obit {
		return nil, nil
	}
	p, err := b.ReadField(1, "pbit")
	if err != nil {
		return nil, err
	}
	if p == 0 {
		return nil, nil
	}
	v, err := b.ReadField(numBits, fieldName)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ParseType2Struct reads an optional type-2 element into a struct via parser.
func ParseType2Struct[T any](obit bool, b *bitio.Buffer, parser func(*bitio.Buffer) (T, error)) (*T, error) {
	if !obit {
		return nil, nil
	}
	p, err := b.ReadField(1, "pbit")
	if err != nil {
		return nil, err
	}
	if p == 0 {
		return nil, nil
	}
	v, err := parser(b)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// WriteType2Generic writes value as P-bit=1 followed by len bits, or P-bit=0
// if value is nil. obit must be true whenever value is non-nil.
func WriteType2Generic(obit bool, b *bitio.Buffer, value *uint64, numBits int) {
	if !obit {
		if value != nil {
			panic("pdu: type-2 element cannot be present when obit is false")
		}
		return
	}
	if value != nil {
		b.WriteBit(1)
		b.WriteBits(*value, numBits)
	} else {
		b.WriteBit(0)
	}
}

// WriteType2Struct writes value via writer, gated by obit/P-bit.
func WriteType2Struct[T any](obit bool, b *bitio.Buffer, value *T, writer func(T, *bitio.Buffer)) {
	if !obit {
		if value != nil {
			panic("pdu: type-2 element cannot be present when obit is false")
		}
		return
	}
	if value != nil {
		b.WriteBit(1)
		writer(*value, b)
	} else {
		b.WriteBit(0)
	}
}

// peekType34MBitAndID looks ahead (without consuming) to see whether the
// upcoming type-3/4 element's M-bit is set and its 4-bit ID matches expectedID.
func peekType34MBitAndID(b *bitio.Buffer, expectedID uint64) (bool, error) {
	mbit, ok := b.PeekBits(1)
	if !ok {
		return false, &bitio.BufferEndedError{Field: "mbit"}
	}
	if mbit == 0 {
		return false, nil
	}
	id, ok := b.PeekBitsOffset(1, 4)
	if !ok {
		return false, &bitio.BufferEndedError{Field: "type34 id"}
	}
	return id == expectedID, nil
}

// Type3Generic is an undecoded type-3 element: an 11-bit length plus up to
// 64 bits of payload (longer payloads are truncated with the position still
// advanced correctly past the element).
type Type3Generic struct {
	FieldID uint64
	LenBits int
	Data    uint64
}

// ParseType3Generic checks whether expectedID's type-3 element is present
// (leaving the buffer untouched if not) and, if so, reads it.
func ParseType3Generic(obit bool, b *bitio.Buffer, expectedID uint64) (*Type3Generic, error) {
	if !obit {
		return nil, nil
	}
	present, err := peekType34MBitAndID(b, expectedID)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	b.SeekRel(5) // m-bit + 4-bit id
	lenBits, err := b.ReadField(11, "type3 len")
	if err != nil {
		return nil, err
	}
	readBits := int(lenBits)
	if readBits > 64 {
		readBits = 64
	}
	data, err := b.ReadField(readBits, "type3 data")
	if err != nil {
		return nil, err
	}
	if int(lenBits) > 64 {
		b.SeekRel(int(lenBits) - 64)
	}
	return &Type3Generic{FieldID: expectedID, LenBits: int(lenBits), Data: data}, nil
}

// ParseType3Struct checks presence of expectedID's type-3 element and, if
// present, invokes parser to decode exactly the declared length. A mismatch
// between the declared length and what parser actually consumed is reported
// as InconsistentLengthError.
func ParseType3Struct[T any](obit bool, b *bitio.Buffer, expectedID uint64, parser func(*bitio.Buffer) (T, error)) (*T, error) {
	var zero T
	if !obit {
		return nil, nil
	}
	present, err := peekType34MBitAndID(b, expectedID)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	b.SeekRel(5)
	lenBits, err := b.ReadField(11, "type3 len")
	if err != nil {
		return nil, err
	}
	startPos := b.Pos()
	v, err := parser(b)
	if err != nil {
		return nil, err
	}
	if found := b.Pos() - startPos; found != int(lenBits) {
		return nil, &InconsistentLengthError{Expected: int(lenBits), Found: found}
	}
	_ = zero
	return &v, nil
}

// WriteType34Header writes the 1-bit M-bit (set) plus the 4-bit element ID.
func WriteType34Header(b *bitio.Buffer, fieldID uint64) {
	b.WriteBit(1)
	b.WriteBits(fieldID, 4)
}

// WriteType3Generic writes value if non-nil, with value.LenBits as its
// 11-bit length.
func WriteType3Generic(obit bool, b *bitio.Buffer, value *Type3Generic, fieldID uint64) {
	if !obit && value != nil {
		panic("pdu: type-3 element cannot be present when obit is false")
	}
	if value == nil {
		return
	}
	WriteType34Header(b, fieldID)
	b.WriteBits(uint64(value.LenBits), 11)
	b.WriteBits(value.Data, value.LenBits)
}

// WriteType3Struct writes *value via writer if non-nil, backfilling the
// 11-bit length field with the number of bits writer actually emitted.
func WriteType3Struct[T any](obit bool, b *bitio.Buffer, value *T, fieldID uint64, writer func(T, *bitio.Buffer)) {
	if !obit && value != nil {
		panic("pdu: type-3 element cannot be present when obit is false")
	}
	if value == nil {
		return
	}
	WriteType34Header(b, fieldID)
	posLenField := b.Pos()
	b.WriteBits(0, 11) // placeholder, backfilled below
	writer(*value, b)
	posEnd := b.Pos()
	lenBits := posEnd - posLenField - 11
	b.Seek(posLenField)
	b.WriteBits(uint64(lenBits), 11)
	b.Seek(posEnd)
}

// parseType4Header checks presence of expectedID's type-4 element and, if
// present, returns (elementCount, lenBits), where lenBits is the length of
// all the repeated elements together (the 11-bit length minus the 6-bit
// count).
func parseType4Header(b *bitio.Buffer, expectedID uint64) (present bool, numElems int, lenBits int, err error) {
	present, err = peekType34MBitAndID(b, expectedID)
	if err != nil || !present {
		return present, 0, 0, err
	}
	b.SeekRel(5)
	totalLen, err := b.ReadField(11, "type4 len")
	if err != nil {
		return false, 0, 0, err
	}
	count, err := b.ReadField(6, "type4 count")
	if err != nil {
		return false, 0, 0, err
	}
	return true, int(count), int(totalLen) - 6, nil
}

// ParseType4Struct reads a type-4 element (ID + length + count-prefixed
// repeated elements) into a slice of T via parser, one call per element.
func ParseType4Struct[T any](obit bool, b *bitio.Buffer, expectedID uint64, parser func(*bitio.Buffer) (T, error)) ([]T, error) {
	if !obit {
		return nil, nil
	}
	present, numElems, _, err := parseType4Header(b, expectedID)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	out := make([]T, 0, numElems)
	for i := 0; i < numElems; i++ {
		v, err := parser(b)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// WriteType4Struct writes values via writer if non-empty, preceded by the
// element ID, backfilled length, and element count.
func WriteType4Struct[T any](obit bool, b *bitio.Buffer, values []T, fieldID uint64, writer func(T, *bitio.Buffer)) {
	if !obit && len(values) > 0 {
		panic("pdu: type-4 element cannot be present when obit is false")
	}
	if len(values) == 0 {
		return
	}
	WriteType34Header(b, fieldID)
	posLenField := b.Pos()
	b.WriteBits(0, 11)
	b.WriteBits(uint64(len(values)), 6)
	for _, v := range values {
		writer(v, b)
	}
	posEnd := b.Pos()
	lenBits := posEnd - posLenField - 11 // covers the count field plus every element
	b.Seek(posLenField)
	b.WriteBits(uint64(lenBits), 11)
	b.Seek(posEnd)
}
