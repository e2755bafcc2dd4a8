package filters

import (
	"fmt"
	"sort"

	"github.com/carbocation/variation"
	"github.com/carbocation/variation/array"
)

// KeepSamples keeps the named samples in their container order. Kept and
// Filtered count samples.
func KeepSamples(v *variation.Variations, samples []string) (*Result, error) {
	cols, err := columns(v, samples)
	if err != nil {
		return nil, err
	}
	idx := make([]int, 0, len(cols))
	for c := range cols {
		idx = append(idx, c)
	}
	sort.Ints(idx)
	return selectSamples(v, idx)
}

// FilterSamples is KeepSamples.
func FilterSamples(v *variation.Variations, samples []string) (*Result, error) {
	return KeepSamples(v, samples)
}

// RemoveSamples drops the named samples.
func RemoveSamples(v *variation.Variations, samples []string) (*Result, error) {
	cols, err := columns(v, samples)
	if err != nil {
		return nil, err
	}
	idx := make([]int, 0, v.NumSamples()-len(cols))
	for i := 0; i < v.NumSamples(); i++ {
		if _, drop := cols[i]; !drop {
			idx = append(idx, i)
		}
	}
	return selectSamples(v, idx)
}

func columns(v *variation.Variations, samples []string) (map[int]struct{}, error) {
	cols := make(map[int]struct{}, len(samples))
	for _, s := range samples {
		i, ok := v.SampleIndex(s)
		if !ok {
			return nil, fmt.Errorf("%w: %s", variation.ErrUnknownSample, s)
		}
		cols[i] = struct{}{}
	}
	return cols, nil
}

func selectSamples(v *variation.Variations, idx []int) (*Result, error) {
	out, err := v.SelectSamples(idx)
	if err != nil {
		return nil, err
	}
	return &Result{
		Variations: out,
		Stats: Stats{
			Kept:     array.ScalarInt(int64(len(idx))),
			Filtered: array.ScalarInt(int64(v.NumSamples() - len(idx))),
		},
	}, nil
}
