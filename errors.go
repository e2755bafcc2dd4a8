package variation

import (
	"errors"
	"fmt"

	"github.com/carbocation/variation/array"
)

var (
	// ErrAlreadyInitialized is returned when samples are set a second time.
	ErrAlreadyInitialized = errors.New("samples already initialized")
	// ErrSamplesNotSet is returned when a per-call field is assigned before
	// the samples.
	ErrSamplesNotSet = errors.New("samples must be set before per-call fields")
	// ErrEmptyVariations is returned by operations that need at least one
	// variant, or at least one field.
	ErrEmptyVariations = errors.New("no variations")
	// ErrUnsupportedFileType is returned when a path is none of the known
	// storage formats.
	ErrUnsupportedFileType = errors.New("unknown file type")
	// ErrUnknownSample is returned for a sample name or column the container
	// does not hold.
	ErrUnknownSample = errors.New("unknown sample")
	// ErrMissingField is returned when a statistic needs a field the
	// container lacks.
	ErrMissingField = errors.New("field not present")

	// Array failures are the same values as in package array so that
	// errors.Is works with either.
	ErrUnsupportedBackend = array.ErrUnsupportedBackend
	ErrNotMaterialized    = array.ErrNotMaterialized
)

// ShapeMismatchError reports a field whose dimensions disagree with the
// container.
type ShapeMismatchError struct {
	Field    string
	Axis     int
	Expected int
	Actual   int
	Reason   string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("field %s %s: axis %d is %s, expected %s",
		e.Field, e.Reason, e.Axis, dimString(e.Actual), dimString(e.Expected))
}

func dimString(d int) string {
	if d == array.Unknown {
		return "?"
	}
	return fmt.Sprint(d)
}
