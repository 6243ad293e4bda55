package engine

import "errors"

var (
	// ErrInvalidBlockSize is returned when the configured block size is zero.
	ErrInvalidBlockSize = errors.New("block size must be at least 1 token")

	// ErrModelIDTooLong is returned when the model id does not fit the
	// digest encoding's 16-bit length field.
	ErrModelIDTooLong = errors.New("model id exceeds 65535 bytes")

	// ErrNilStore is returned when no object store is supplied.
	ErrNilStore = errors.New("object store is nil")
)
