package kvcachego

import (
	"github.com/hupe1980/kvcachego/engine"
	"github.com/hupe1980/kvcachego/objstore"
)

var (
	// ErrInvalidBlockSize is returned when the configured block size is zero.
	ErrInvalidBlockSize = engine.ErrInvalidBlockSize

	// ErrModelIDTooLong is returned when the model id does not fit the
	// digest encoding's 16-bit length field.
	ErrModelIDTooLong = engine.ErrModelIDTooLong

	// ErrNilStore is returned when no object store is supplied.
	ErrNilStore = engine.ErrNilStore

	// ErrNotFound is returned by object stores for absent keys. It matches
	// errors.Is(err, os.ErrNotExist).
	ErrNotFound = objstore.ErrNotFound
)
