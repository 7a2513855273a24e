package vault

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrSampleNotAllowed indicates that merging a program would add a sample to
// the master bank, but adding samples was not allowed.
var ErrSampleNotAllowed = errors.New("sample is not in the master bank and new samples are not allowed")

// A LookupError indicates that a referenced entry does not exist.
type LookupError struct {
	Kind string // "sample", "keygroup", or "program".
	ID   int
	Bank string
}

func (e *LookupError) Error() string {
	if e.Bank == "" {
		return fmt.Sprintf("no %s with ID %d", e.Kind, e.ID)
	}
	return fmt.Sprintf("no %s with ID %d in bank %q", e.Kind, e.ID, e.Bank)
}
