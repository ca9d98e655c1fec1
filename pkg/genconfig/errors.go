package genconfig

import "errors"

var (
	// ErrContextLength means the document never set a usable context length.
	// There is no sensible default, so the load fails outright.
	ErrContextLength = errors.New("model context_length is 0 or was not set, it must be greater than 0")

	// ErrDuplicateMapping means a nominal tensor name was mapped to two
	// different graph names.
	ErrDuplicateMapping = errors.New("duplicate nominal name")

	// ErrCudaGraphCapture means graph capture was requested on a CUDA
	// provider, which does not support it.
	ErrCudaGraphCapture = errors.New("graph capture is currently unsupported for CUDA")
)
