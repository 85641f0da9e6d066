package worksheet

import (
	"errors"
	"fmt"
)

var (
	// ErrInput reports an unusable input or output path.
	ErrInput = errors.New("invalid input")
	// ErrIntegrity reports an image known to one backend but not the other.
	ErrIntegrity = errors.New("document integrity")
)

// IntegrityError names the page and image id that could not be matched.
// Page is 1-based.
type IntegrityError struct {
	Page    int
	ImageID int
	Backend string
	Err     error
}

func (e *IntegrityError) Error() string {
	msg := fmt.Sprintf("page %d: image %d missing from %s backend", e.Page, e.ImageID, e.Backend)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IntegrityError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrIntegrity}
	}
	return []error{ErrIntegrity, e.Err}
}
