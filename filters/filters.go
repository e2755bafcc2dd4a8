// Package filters narrows variation containers: by variant statistics, by
// samples, and by rewriting low quality calls as missing. Filters never modify
// their input; each returns a new container with the kept and filtered counts.
package filters

import (
	"context"
	"fmt"

	"github.com/carbocation/variation"
	"github.com/carbocation/variation/array"
	"github.com/carbocation/variation/stats"
)

// Stats are scalar counts, deferred when the container is.
type Stats struct {
	Kept     array.Array
	Filtered array.Array
}

// Result is the output of every filter.
type Result struct {
	Variations *variation.Variations
	Stats      Stats
	// Histogram of the filtered statistic, only when WithHistogram was given.
	Histogram *array.Histogram
}

// Counts are materialized Stats.
type Counts struct {
	Kept     int64
	Filtered int64
}

// Counts materializes the kept and filtered counts.
func (r *Result) Counts(ctx context.Context, opts ...array.Option) (Counts, error) {
	ds, err := array.Materialize(ctx, []array.Array{r.Stats.Kept, r.Stats.Filtered}, opts...)
	if err != nil {
		return Counts{}, err
	}
	return Counts{Kept: ds[0].Int(), Filtered: ds[1].Int()}, nil
}

// Bounds is the closed range a statistic must fall in. Nil ends are open.
type Bounds struct {
	Min, Max *float64
}

// Between, AtLeast and AtMost build closed bounds.
func Between(low, high float64) Bounds { return Bounds{Min: &low, Max: &high} }
func AtLeast(low float64) Bounds       { return Bounds{Min: &low} }
func AtMost(high float64) Bounds       { return Bounds{Max: &high} }

type options struct {
	bins   int
	limits *array.Limits
	draw   bool
}

// Option customizes the statistic filters.
type Option func(*options)

// WithHistogram records the histogram of the statistic a filter selects on.
// limits may be nil for the natural range of the statistic.
func WithHistogram(bins int, limits *array.Limits) Option {
	return func(o *options) {
		o.draw = true
		o.bins = bins
		o.limits = limits
	}
}

// keepMask is true where stat lies within b. NaN never does, unless both
// bounds are absent and everything is kept.
func keepMask(be array.Backend, stat array.Array, b Bounds) (array.Array, error) {
	if b.Min == nil && b.Max == nil {
		return be.Full(stat.Shape(), array.Bool, true, stat)
	}
	var mask array.Array
	if b.Min != nil {
		m, err := be.Binary(array.GreaterEqual, stat, array.ScalarFloat(*b.Min))
		if err != nil {
			return nil, err
		}
		mask = m
	}
	if b.Max != nil {
		m, err := be.Binary(array.LessEqual, stat, array.ScalarFloat(*b.Max))
		if err != nil {
			return nil, err
		}
		if mask != nil {
			if m, err = be.Binary(array.And, mask, m); err != nil {
				return nil, err
			}
		}
		mask = m
	}
	return mask, nil
}

// selectVariants keeps the variants where mask holds and counts both sides.
func selectVariants(v *variation.Variations, mask array.Array) (*Result, error) {
	be := v.Backend()
	out, err := v.SelectVariants(mask)
	if err != nil {
		return nil, err
	}
	kept, err := be.Reduce(array.CountNonzero, mask, array.AxisAll)
	if err != nil {
		return nil, err
	}
	dropped, err := be.Unary(array.Not, mask)
	if err != nil {
		return nil, err
	}
	filtered, err := be.Reduce(array.CountNonzero, dropped, array.AxisAll)
	if err != nil {
		return nil, err
	}
	return &Result{Variations: out, Stats: Stats{Kept: kept, Filtered: filtered}}, nil
}

// filterByStat is the shared tail of the statistic filters.
func filterByStat(v *variation.Variations, stat array.Array, b Bounds, natural array.Limits, opts []Option) (*Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	be := v.Backend()
	mask, err := keepMask(be, stat, b)
	if err != nil {
		return nil, err
	}
	res, err := selectVariants(v, mask)
	if err != nil {
		return nil, err
	}
	if o.draw {
		limits := o.limits
		if limits == nil {
			limits = &natural
		}
		if res.Histogram, err = be.Histogram(stat, array.HistogramOptions{Bins: o.bins, Limits: limits}); err != nil {
			return nil, fmt.Errorf("histogram: %w", err)
		}
	}
	return res, nil
}

// RemoveLowCallRateVars keeps the variants whose call rate, one minus the
// missing genotype rate, is at least minCallRate. Without rates the call
// count is used instead: samples minus missing genotypes.
func RemoveLowCallRateVars(v *variation.Variations, minCallRate float64, rates bool, opts ...Option) (*Result, error) {
	missing, err := stats.CalcMissingGT(v, rates)
	if err != nil {
		return nil, err
	}
	be := v.Backend()
	natural := array.Limits{Low: 0, High: 1}
	var total array.Array = array.ScalarFloat(1)
	if !rates {
		n := v.NumSamples()
		total = array.ScalarInt(int64(n))
		natural.High = float64(n)
	}
	called, err := be.Binary(array.Subtract, total, missing)
	if err != nil {
		return nil, err
	}
	return filterByStat(v, called, AtLeast(minCallRate), natural, opts)
}

// FilterByMAF keeps the variants whose major allele frequency by genotype lies
// within b.
func FilterByMAF(v *variation.Variations, maxAlleles, minNumGenotypes int, b Bounds, opts ...Option) (*Result, error) {
	maf, err := stats.CalcMAFByGT(v, maxAlleles, minNumGenotypes)
	if err != nil {
		return nil, err
	}
	return filterByStat(v, maf, b, array.Limits{Low: 0, High: 1}, opts)
}

// FilterByMAC keeps the variants whose minor allele count lies within b.
func FilterByMAC(v *variation.Variations, maxAlleles, minNumGenotypes int, b Bounds, opts ...Option) (*Result, error) {
	mac, err := stats.CalcMAC(v, maxAlleles, minNumGenotypes)
	if err != nil {
		return nil, err
	}
	ploidy := 2
	if gt, _ := v.Get(variation.GT); gt != nil && gt.Shape().NDim() == 3 {
		ploidy = gt.Shape()[2]
	}
	return filterByStat(v, mac, b, array.Limits{Low: 0, High: float64(v.NumSamples() * ploidy)}, opts)
}

// FilterByObsHet keeps the variants whose observed heterozygosity lies within
// b.
func FilterByObsHet(v *variation.Variations, minNumGenotypes int, b Bounds, opts ...Option) (*Result, error) {
	het, err := stats.CalcObsHet(v, minNumGenotypes)
	if err != nil {
		return nil, err
	}
	return filterByStat(v, het, b, array.Limits{Low: 0, High: 1}, opts)
}

// MinDepthGTToMissing sets to missing the genotypes of calls whose depth is
// below minDepth.
func MinDepthGTToMissing(v *variation.Variations, minDepth int) (*Result, error) {
	return gtToMissing(v, variation.DP, minDepth)
}

// MinQualGTToMissing sets to missing the genotypes of calls whose genotype
// quality is below minQual.
func MinQualGTToMissing(v *variation.Variations, minQual int) (*Result, error) {
	return gtToMissing(v, variation.GQ, minQual)
}

// gtToMissing rewrites every allele of the calls where field < threshold.
// Kept and Filtered count calls.
func gtToMissing(v *variation.Variations, field string, threshold int) (*Result, error) {
	gt, err := v.Field(variation.GT)
	if err != nil {
		return nil, err
	}
	values, err := v.Field(field)
	if err != nil {
		return nil, err
	}
	shape := gt.Shape()
	if shape.NDim() != 3 {
		return nil, fmt.Errorf("%w: genotypes must be [variants, samples, ploidy], got %v", array.ErrShape, shape)
	}

	be := v.Backend()
	low, err := be.Binary(array.Less, values, array.ScalarInt(int64(threshold)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	// One copy of the call mask per ploidy position.
	layers := make([]array.Array, shape[2])
	for i := range layers {
		layers[i] = low
	}
	mask, err := be.Stack(layers, 2)
	if err != nil {
		return nil, err
	}
	rewritten, err := be.AssignMasked(gt, mask, array.ScalarInt(array.MissingInt))
	if err != nil {
		return nil, err
	}
	out, err := v.Replace(variation.GT, rewritten)
	if err != nil {
		return nil, err
	}

	filtered, err := be.Reduce(array.CountNonzero, low, array.AxisAll)
	if err != nil {
		return nil, err
	}
	high, err := be.Unary(array.Not, low)
	if err != nil {
		return nil, err
	}
	kept, err := be.Reduce(array.CountNonzero, high, array.AxisAll)
	if err != nil {
		return nil, err
	}
	return &Result{Variations: out, Stats: Stats{Kept: kept, Filtered: filtered}}, nil
}
