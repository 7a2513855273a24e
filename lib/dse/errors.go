// Package dse contains the primitives shared by the SMDL and SWDL codecs: fixed
// width records, chunk framing, and the offset tables used by WAVI and PRGI.
package dse

import (
	"errors"
	"fmt"
)

// ErrFormat is matched by every error caused by malformed input data.
var ErrFormat = errors.New("invalid DSE data")

// A FormatError reports malformed data in a specific chunk.
type FormatError struct {
	Chunk  string // Chunk tag or record name, e.g. "wavi".
	Offset int    // Byte offset, relative to the start of the file or track.
	Err    error
}

// Formatf returns a new FormatError.
func Formatf(chunk string, offset int, format string, args ...interface{}) error {
	return &FormatError{Chunk: chunk, Offset: offset, Err: fmt.Errorf(format, args...)}
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid %s at offset 0x%x: %v", e.Chunk, e.Offset, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// A RangeError reports a value that cannot be encoded in its field.
type RangeError struct {
	Field string
	Value int64
	Min   int64
	Max   int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s out of range: %d, must be in %d..%d", e.Field, e.Value, e.Min, e.Max)
}

// CheckRange returns a RangeError if value is not in min..max.
func CheckRange(field string, value, min, max int64) error {
	if value < min || max < value {
		return &RangeError{Field: field, Value: value, Min: min, Max: max}
	}
	return nil
}
