package array

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultBins is the number of histogram bins when none is given.
const DefaultBins = 40

// Limits is the closed value range of a histogram.
type Limits struct {
	Low, High float64
}

// HistogramOptions configures Backend.Histogram. Zero Bins means
// DefaultBins; nil Limits auto-ranges, which only eager arrays support.
type HistogramOptions struct {
	Bins    int
	Limits  *Limits
	Weights Array
}

// Histogram holds Bins counts and Bins+1 edges. Counts are Int64 without
// weights and Float64 with them.
type Histogram struct {
	Counts Array
	Edges  Array
}

func (o HistogramOptions) bins() (int, error) {
	switch {
	case o.Bins == 0:
		return DefaultBins, nil
	case o.Bins < 0:
		return 0, fmt.Errorf("%w: %d bins", ErrShape, o.Bins)
	}
	return o.Bins, nil
}

// histogramDense bins the non-missing entries of v. A range that is not
// finite is retried once with infinite entries left out.
func histogramDense(v, w *Dense, opts HistogramOptions) (*Dense, *Dense, error) {
	bins, err := opts.bins()
	if err != nil {
		return nil, nil, err
	}
	if w != nil && w.Len() != v.Len() {
		return nil, nil, fmt.Errorf("%w: %d weights for %d values", ErrShape, w.Len(), v.Len())
	}
	xs, ws := presentValues(v, w)
	counts, edges, err := binValues(xs, ws, bins, opts.Limits)
	if errors.Is(err, ErrNonFiniteRange) {
		xs, ws = finiteValues(xs, ws)
		counts, edges, err = binValues(xs, ws, bins, opts.Limits)
	}
	if err != nil {
		return nil, nil, err
	}
	if w == nil {
		return toCounts(counts), FromFloats(edges), nil
	}
	return FromFloats(counts), FromFloats(edges), nil
}

func toCounts(counts []float64) *Dense {
	out := make([]int64, len(counts))
	for i, c := range counts {
		out[i] = int64(c)
	}
	return FromInts(out)
}

func presentValues(v, w *Dense) ([]float64, []float64) {
	missing := missingMask(v)
	var xs, ws []float64
	for i := 0; i < v.Len(); i++ {
		if missing.bools[i] {
			continue
		}
		xs = append(xs, v.floatAt(i))
		if w != nil {
			ws = append(ws, w.floatAt(i))
		}
	}
	return xs, ws
}

func finiteValues(xs, ws []float64) ([]float64, []float64) {
	var fx, fw []float64
	for i, x := range xs {
		if math.IsInf(x, 0) {
			continue
		}
		fx = append(fx, x)
		if ws != nil {
			fw = append(fw, ws[i])
		}
	}
	return fx, fw
}

// span returns bins+1 equally spaced edges whose last one is exactly high.
func span(bins int, low, high float64) []float64 {
	edges := floats.Span(make([]float64, bins+1), low, high)
	edges[bins] = high
	return edges
}

func autoRange(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 1
	}
	low, high := floats.Min(xs), floats.Max(xs)
	if low == high {
		return low - 0.5, high + 0.5
	}
	return low, high
}

// binValues counts xs into bins equal-width bins; the last bin is closed on
// the right and values outside the range are ignored. ws may be nil.
func binValues(xs, ws []float64, bins int, limits *Limits) ([]float64, []float64, error) {
	var low, high float64
	if limits != nil {
		low, high = limits.Low, limits.High
	} else {
		low, high = autoRange(xs)
	}
	if math.IsNaN(low) || math.IsNaN(high) || math.IsInf(low, 0) || math.IsInf(high, 0) {
		return nil, nil, fmt.Errorf("%w: [%v, %v]", ErrNonFiniteRange, low, high)
	}
	if low > high {
		return nil, nil, fmt.Errorf("%w: histogram range [%v, %v] is reversed", ErrShape, low, high)
	}
	if low == high {
		low, high = low-0.5, high+0.5
	}
	edges := span(bins, low, high)

	type point struct{ x, w float64 }
	var inner []point
	var atHigh float64
	for i, x := range xs {
		wt := 1.0
		if ws != nil {
			wt = ws[i]
		}
		switch {
		case x == high:
			atHigh += wt
		case x >= low && x < high:
			inner = append(inner, point{x, wt})
		}
	}
	sort.Slice(inner, func(i, j int) bool { return inner[i].x < inner[j].x })
	sx := make([]float64, len(inner))
	sw := make([]float64, len(inner))
	for i, p := range inner {
		sx[i], sw[i] = p.x, p.w
	}
	counts := stat.Histogram(nil, edges, sx, sw)
	counts[bins-1] += atHigh
	return counts, edges, nil
}

// Histogram on deferred arrays needs limits: every chunk is binned on its own
// and the counts are summed.
func (lazy) Histogram(a Array, opts HistogramOptions) (*Histogram, error) {
	if opts.Limits == nil {
		return nil, ErrLimitsRequired
	}
	bins, err := opts.bins()
	if err != nil {
		return nil, err
	}
	operands := []Array{a}
	if opts.Weights != nil {
		if !opts.Weights.Shape().Equal(a.Shape()) {
			return nil, fmt.Errorf("%w: weights %v for values %v", ErrShape, opts.Weights.Shape(), a.Shape())
		}
		operands = append(operands, opts.Weights)
	}
	for _, o := range operands {
		if _, err := BackendOf(o); err != nil {
			return nil, err
		}
	}
	al, err := align(operands...)
	if err != nil {
		return nil, err
	}
	limits := *opts.Limits
	if math.IsNaN(limits.Low) || math.IsNaN(limits.High) || math.IsInf(limits.Low, 0) || math.IsInf(limits.High, 0) {
		return nil, fmt.Errorf("%w: [%v, %v]", ErrNonFiniteRange, limits.Low, limits.High)
	}
	chunkOpts := HistogramOptions{Bins: bins, Limits: &limits}
	partials := al.build("histogram-partial", unknownRows, func(_ context.Context, in []*Dense) (*Dense, int, error) {
		var w *Dense
		if len(in) > 1 {
			w = in[1]
		}
		counts, _, err := histogramDense(in[0], w, chunkOpts)
		return counts, 0, err
	})

	kind := Int64
	if opts.Weights != nil {
		kind = Float64
	}
	combine := &task{
		label: "histogram-combine",
		deps:  partials,
		run: func(_ context.Context, in []*Dense) (*Dense, int, error) {
			return combinePartials(Sum, kind, in)
		},
	}
	low, high := limits.Low, limits.High
	if low == high {
		low, high = low-0.5, high+0.5
	}
	edges := span(bins, low, high)
	return &Histogram{
		Counts: single(kind, Shape{bins}, combine),
		Edges:  lift(FromFloats(edges)),
	}, nil
}
