package wire

import (
	"errors"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	// ErrOutOfMemory is returned when decoding would exceed the allocation
	// budget set with SetLimit.
	ErrOutOfMemory = errors.New("wire: out of memory")

	ErrMalformedVarint = errors.New("wire: malformed varint")
	ErrTruncated       = errors.New("wire: truncated input")

	// ErrBufferTooSmall is returned by EncodeTo when the destination cannot
	// hold the encoded message.
	ErrBufferTooSmall = errors.New("wire: buffer too small")

	// ErrInvalidTag reports a field number outside 1..2^29-1 or a reserved
	// wire type.
	ErrInvalidTag = errors.New("wire: invalid tag")

	ErrMalformed = errors.New("wire: malformed input")
)

// parseError maps a negative protowire length to one of the errors above.
func parseError(n int, otherwise error) error {
	if errors.Is(protowire.ParseError(n), io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return otherwise
}
