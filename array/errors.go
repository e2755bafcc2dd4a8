package array

import "errors"

var (
	// ErrUnsupportedBackend is returned when an array is of neither the eager
	// nor the deferred representation, or is handed to the wrong backend.
	ErrUnsupportedBackend = errors.New("array: unsupported backend")
	// ErrNotMaterialized is returned when an operation needs a resolved shape.
	ErrNotMaterialized = errors.New("array: shape not materialized")
	// ErrReferenceRequired is returned by Full, Ones and Stack without a
	// reference array.
	ErrReferenceRequired = errors.New("array: reference array is mandatory")
	// ErrLimitsRequired is returned when a deferred histogram has no limits.
	ErrLimitsRequired = errors.New("array: limits are mandatory for deferred histograms")
	// ErrNonFiniteRange is the binning failure that triggers the histogram retry.
	ErrNonFiniteRange = errors.New("array: histogram range must be finite")
	// ErrShape is returned for incompatible shapes or axes.
	ErrShape = errors.New("array: incompatible shape")
	// ErrKind is returned when an operation is undefined for an element kind.
	ErrKind = errors.New("array: unsupported kind")
	// ErrChunkMismatch is returned when deferred operands are chunked differently.
	ErrChunkMismatch = errors.New("array: operands are not chunk-aligned")
	// ErrNoSentinel is returned for kinds without a missing value.
	ErrNoSentinel = errors.New("array: kind has no missing value")
	// ErrEmptyReduction is returned by Min and Max over zero elements.
	ErrEmptyReduction = errors.New("array: zero-size reduction")
)
