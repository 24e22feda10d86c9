package ls2

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// Indicates an unexpected file signature.
	ErrInvalidSig = errors.New("invalid signature")
	// Indicates that the input ended in the middle of a value.
	ErrTruncatedInput = errors.New("truncated input")
	// Indicates that bytes remain after the root value.
	ErrTrailingData = errors.New("unexpected data after root value")
	// Indicates that the declared decompressed length exceeds the limit of the
	// decoder.
	ErrPayloadTooLarge = errors.New("decompressed length too large")
	// Indicates that the declared decompressed length cannot be produced
	// from the declared compressed length.
	ErrPayloadRatio = errors.New("decompressed length exceeds compressed length expansion")
	// Indicates that a decompressed payload did not have the declared length.
	ErrPayloadLength = errors.New("decompressed length does not match header")
	// Indicates that tables and records are nested deeper than the codec
	// allows.
	ErrNestingDepth = errors.New("values nested too deeply")
)

// ErrUnrecognizedVersion indicates a format version not recognized by the
// codec.
type ErrUnrecognizedVersion struct {
	Major, Minor uint8
}

func (err ErrUnrecognizedVersion) Error() string {
	return fmt.Sprintf("unrecognized version %d.%d", err.Major, err.Minor)
}

// UnknownTagError indicates a tag byte not known by the codec.
type UnknownTagError byte

func (err UnknownTagError) Error() string {
	return fmt.Sprintf("unknown tag 0x%02X", byte(err))
}

// DataError wraps an error that occurred while encoding or decoding byte data.
type DataError struct {
	// Offset is the byte offset where the error occurred. For compressed
	// files, the offset is within the decompressed stream, which starts
	// after the 16 byte container header.
	Offset int64

	Cause error
}

func (err DataError) Error() string {
	var s strings.Builder
	s.WriteString("data error")
	if err.Offset >= 0 {
		s.WriteString(" at ")
		s.Write(strconv.AppendInt(nil, err.Offset, 10))
	}
	if err.Cause != nil {
		s.WriteString(": ")
		s.WriteString(err.Cause.Error())
	}
	return s.String()
}

func (err DataError) Unwrap() error {
	return err.Cause
}

// errReserve warns about non-zero reserved bytes in the container header.
type errReserve struct {
	// Offset marks the location of the reserved bytes.
	Offset int64
	// Value is the content of the reserved bytes.
	Value uint32
}

func (err errReserve) Error() string {
	return fmt.Sprintf("non-zero reserved bytes at offset %d: %08X", err.Offset, err.Value)
}
