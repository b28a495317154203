package avifhdr

import "errors"

// Error kinds returned by conversion and gain map operations.
// Errors are wrapped with the failing stage, use errors.Is to classify them.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrOutOfMemory     = errors.New("out of memory")
	ErrNotImplemented  = errors.New("not implemented")
	ErrUnknown         = errors.New("unknown error")
)

// Result is a coarse classification of an error, suitable for exit codes.
type Result int

// Result values.
const (
	ResultOK Result = iota
	ResultUnknownError
	ResultInvalidArgument
	ResultOutOfMemory
	ResultNotImplemented
)

// ResultOf classifies err. Errors that do not wrap a known kind are ResultUnknownError.
func ResultOf(err error) Result {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, ErrInvalidArgument):
		return ResultInvalidArgument
	case errors.Is(err, ErrOutOfMemory):
		return ResultOutOfMemory
	case errors.Is(err, ErrNotImplemented):
		return ResultNotImplemented
	default:
		return ResultUnknownError
	}
}

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "OK"
	case ResultInvalidArgument:
		return "Invalid argument"
	case ResultOutOfMemory:
		return "Out of memory"
	case ResultNotImplemented:
		return "Not implemented"
	default:
		return "Unknown error"
	}
}

// maxAllocBytes bounds a single plane or pixel buffer.
const maxAllocBytes = 1 << 32

func allocBytes(n int) ([]byte, error) {
	if n < 0 || uint64(n) > maxAllocBytes {
		return nil, ErrOutOfMemory
	}
	return make([]byte, n), nil
}

func allocFloats(n int) ([]float32, error) {
	if n < 0 || uint64(n)*4 > maxAllocBytes {
		return nil, ErrOutOfMemory
	}
	return make([]float32, n), nil
}
