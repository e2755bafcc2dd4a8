package array

import (
	"fmt"
	"math"
)

// MissingInt is the sentinel of every signed integer kind: a "no call" allele,
// an absent depth or observation count.
const MissingInt int64 = -1

// MissingString marks an absent string value.
const MissingString = ""

// MissingValue returns the reserved value that marks "no data" for kind.
func MissingValue(kind Kind) (any, error) {
	switch {
	case kind.IsFloat():
		return math.NaN(), nil
	case kind.IsInteger():
		return MissingInt, nil
	case kind == String:
		return MissingString, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoSentinel, kind)
}

// missingMask is the dense kernel behind IsMissing. Every statistic derives
// missingness from this mask.
func missingMask(d *Dense) *Dense {
	out := newDense(Bool, d.shape)
	switch storageOf(d.kind) {
	case storageInt:
		for i, v := range d.ints {
			out.bools[i] = v == MissingInt
		}
	case storageFloat:
		for i, v := range d.floats {
			out.bools[i] = math.IsNaN(v)
		}
	case storageString:
		for i, v := range d.strs {
			out.bools[i] = v == MissingString
		}
	}
	return out
}
