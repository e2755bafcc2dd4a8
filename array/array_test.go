package array

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compute(t *testing.T, a Array) *Dense {
	t.Helper()
	out, err := Materialize(context.Background(), []Array{a}, SilenceRuntimeWarnings())
	require.NoError(t, err)
	return out[0]
}

// bothModes runs fn on an eager copy of d and on d split into 2-row chunks.
func bothModes(t *testing.T, d *Dense, fn func(t *testing.T, a Array)) {
	t.Run("eager", func(t *testing.T) { fn(t, d) })
	t.Run("deferred", func(t *testing.T) { fn(t, Chunked(d, 2)) })
}

type foreign struct{}

func (foreign) Kind() Kind   { return Int64 }
func (foreign) Shape() Shape { return Shape{1} }

func TestBackendOf(t *testing.T) {
	be, err := BackendOf(FromInts([]int64{1}))
	require.NoError(t, err)
	assert.Equal(t, Eager, be)

	be, err = BackendOf(Chunked(FromInts([]int64{1, 2, 3}), 1))
	require.NoError(t, err)
	assert.Equal(t, Lazy, be)

	_, err = BackendOf(foreign{})
	assert.ErrorIs(t, err, ErrUnsupportedBackend)
	_, err = BackendOf(nil)
	assert.ErrorIs(t, err, ErrUnsupportedBackend)

	_, err = Eager.Reduce(Sum, Chunked(FromInts([]int64{1}), 1), AxisAll)
	assert.ErrorIs(t, err, ErrUnsupportedBackend)
}

func TestReduce(t *testing.T) {
	m := Ints2([][]int64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}, {-1, 0, 2}, {3, 3, 3}})

	bothModes(t, m, func(t *testing.T, a Array) {
		sum0, err := Reduce(Sum, a, 0)
		require.NoError(t, err)
		assert.Equal(t, []int64{14, 18, 23}, compute(t, sum0).Ints())

		sum1, err := Reduce(Sum, a, 1)
		require.NoError(t, err)
		assert.Equal(t, []int64{6, 15, 24, 1, 9}, compute(t, sum1).Ints())

		all, err := Reduce(Sum, a, AxisAll)
		require.NoError(t, err)
		got := compute(t, all)
		assert.Equal(t, Shape{}, got.Shape())
		assert.Equal(t, int64(55), got.Int())

		mx, err := Reduce(Max, a, 0)
		require.NoError(t, err)
		assert.Equal(t, []int64{7, 8, 9}, compute(t, mx).Ints())

		mn, err := Reduce(Min, a, AxisAll)
		require.NoError(t, err)
		assert.Equal(t, int64(-1), compute(t, mn).Int())

		nz, err := Reduce(CountNonzero, a, 0)
		require.NoError(t, err)
		assert.Equal(t, []int64{5, 4, 5}, compute(t, nz).Ints())
	})
}

func TestReduceFloatNaN(t *testing.T) {
	nan := math.NaN()
	m := Floats2([][]float64{{1, nan}, {3, 4}, {nan, nan}, {5, 6}})

	bothModes(t, m, func(t *testing.T, a Array) {
		s, err := Reduce(NaNSum, a, 0)
		require.NoError(t, err)
		assert.Equal(t, []float64{9, 10}, compute(t, s).Floats())

		mean, err := NaNMean(a, 0)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{3, 5}, compute(t, mean).Floats(), 1e-12)

		rowMean, err := NaNMean(a, 1)
		require.NoError(t, err)
		got := compute(t, rowMean).Floats()
		assert.Equal(t, 1.0, got[0])
		assert.Equal(t, 3.5, got[1])
		assert.True(t, math.IsNaN(got[2]))
		assert.Equal(t, 5.5, got[3])

		plain, err := Reduce(Sum, a, 0)
		require.NoError(t, err)
		for _, v := range compute(t, plain).Floats() {
			assert.True(t, math.IsNaN(v))
		}
	})
}

func TestReduceEmpty(t *testing.T) {
	empty := Zeros(Int64, 0, 3)
	_, err := Eager.Reduce(Max, empty, 0)
	assert.ErrorIs(t, err, ErrEmptyReduction)

	sum, err := Eager.Reduce(Sum, empty, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 0}, sum.(*Dense).Ints())

	// Every chunk of the selection is empty.
	d := Chunked(Ints2([][]int64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}), 1)
	kept, err := Lazy.Compress(d, FromBools([]bool{false, false, false}))
	require.NoError(t, err)
	mx, err := Lazy.Reduce(Max, kept, 0)
	require.NoError(t, err)
	_, err = Materialize(context.Background(), []Array{mx})
	assert.ErrorIs(t, err, ErrEmptyReduction)
}

func TestBinaryBroadcast(t *testing.T) {
	m := Ints2([][]int64{{1, 2}, {3, 4}, {5, 6}})
	row := FromInts([]int64{10, 20})

	bothModes(t, m, func(t *testing.T, a Array) {
		sum, err := Binary(Add, a, row)
		require.NoError(t, err)
		assert.Equal(t, []int64{11, 22, 13, 24, 15, 26}, compute(t, sum).Ints())

		gt, err := Binary(Greater, a, ScalarInt(3))
		require.NoError(t, err)
		assert.Equal(t, []bool{false, false, false, true, true, true}, compute(t, gt).Bools())

		col, err := firstColumn(t, a)
		require.NoError(t, err)
		prod, err := Binary(Multiply, a, col)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 9, 12, 25, 30}, compute(t, prod).Ints())
	})
}

func TestElementwiseExtremesAndFinite(t *testing.T) {
	f := FromFloats([]float64{1, math.Inf(1), math.NaN(), -2, math.Inf(-1)})

	bothModes(t, f, func(t *testing.T, a Array) {
		inf, err := Unary(IsInf, a)
		require.NoError(t, err)
		assert.Equal(t, []bool{false, true, false, false, true}, compute(t, inf).Bools())

		finite, err := Unary(IsFinite, a)
		require.NoError(t, err)
		assert.Equal(t, []bool{true, false, false, true, false}, compute(t, finite).Bools())
	})

	m := Ints2([][]int64{{1, 5}, {4, 2}, {3, 3}})
	bothModes(t, m, func(t *testing.T, a Array) {
		hi, err := Binary(Maximum, a, ScalarInt(3))
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 5, 4, 3, 3, 3}, compute(t, hi).Ints())

		lo, err := Binary(Minimum, a, FromInts([]int64{2, 4}))
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 4, 2, 2, 2, 3}, compute(t, lo).Ints())
	})
}

// firstColumn returns the first column of a as a [V, 1] array.
func firstColumn(t *testing.T, a Array) (Array, error) {
	be, err := BackendOf(a)
	require.NoError(t, err)
	col, err := be.Slice(a, 1, 0, 1)
	require.NoError(t, err)
	first, err := be.Reduce(Sum, col, 1)
	require.NoError(t, err)
	return be.ExpandDims(first, 1)
}

func TestDivideByZeroIsNaN(t *testing.T) {
	num := FromInts([]int64{1, 0, 4, 3})
	den := FromInts([]int64{2, 0, 0, 3})

	out, err := Eager.Binary(Divide, num, den)
	require.NoError(t, err)
	got := out.(*Dense).Floats()
	assert.Equal(t, 0.5, got[0])
	assert.True(t, math.IsNaN(got[1]))
	assert.True(t, math.IsNaN(got[2]))
	assert.Equal(t, 1.0, got[3])
}

func TestMaterializeWarnsOnInvalidValues(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	a := Chunked(FromInts([]int64{0, 1, 0, 2}), 2)
	q, err := Lazy.Binary(Divide, a, ScalarInt(0))
	require.NoError(t, err)

	_, err = Materialize(context.Background(), []Array{q}, WithLogger(logger))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "invalid value")
	assert.Contains(t, buf.String(), "count=4")

	buf.Reset()
	_, err = Materialize(context.Background(), []Array{q}, WithLogger(logger), SilenceRuntimeWarnings())
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestMaterializeSharedAndCancelled(t *testing.T) {
	base := Chunked(FromInts([]int64{1, 2, 3, 4, 5}), 2)
	sq, err := Lazy.Binary(Multiply, base, base)
	require.NoError(t, err)
	total, err := Lazy.Reduce(Sum, sq, AxisAll)
	require.NoError(t, err)

	out, err := Materialize(context.Background(), []Array{sq, total, FromInts([]int64{7})}, WithWorkers(2))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4, 9, 16, 25}, out[0].Ints())
	assert.Equal(t, int64(55), out[1].Int())
	assert.Equal(t, []int64{7}, out[2].Ints())

	named, err := MaterializeMap(context.Background(), map[string]Array{"sq": sq, "total": total})
	require.NoError(t, err)
	assert.Equal(t, int64(55), named["total"].Int())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Materialize(ctx, []Array{total})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = Materialize(context.Background(), []Array{foreign{}})
	assert.ErrorIs(t, err, ErrUnsupportedBackend)
}

func TestCompressUnknownRows(t *testing.T) {
	m := Ints2([][]int64{{1, 1}, {2, 2}, {3, 3}, {4, 4}, {5, 5}})
	mask := FromBools([]bool{true, false, true, true, false})

	d := Chunked(m, 2)
	maskD := Chunked(mask, 2)
	kept, err := Lazy.Compress(d, maskD)
	require.NoError(t, err)
	assert.Equal(t, Unknown, kept.Shape()[0])
	assert.Equal(t, 2, kept.Shape()[1])
	_, err = kept.Shape().Dim(0)
	assert.ErrorIs(t, err, ErrNotMaterialized)

	got := compute(t, kept)
	assert.Equal(t, Shape{3, 2}, got.Shape())
	assert.Equal(t, []int64{1, 1, 3, 3, 4, 4}, got.Ints())

	// A dense mask is split to the chunk rows.
	kept2, err := Lazy.Compress(d, mask)
	require.NoError(t, err)
	assert.Equal(t, got.Ints(), compute(t, kept2).Ints())

	eager, err := Eager.Compress(m, mask)
	require.NoError(t, err)
	assert.Equal(t, got.Ints(), eager.(*Dense).Ints())

	// Operands chunked differently are rejected.
	_, err = Lazy.Binary(Add, d, Chunked(m, 3))
	assert.ErrorIs(t, err, ErrChunkMismatch)
}

func TestFullAndStack(t *testing.T) {
	_, err := Eager.Full(Shape{2}, Bool, true, nil)
	assert.ErrorIs(t, err, ErrReferenceRequired)
	_, err = Lazy.Stack(nil, 0)
	assert.ErrorIs(t, err, ErrReferenceRequired)

	d := Chunked(Ints2([][]int64{{1, 2}, {3, 4}, {5, 6}}), 2)
	kept, err := Lazy.Compress(d, FromBools([]bool{true, false, true}))
	require.NoError(t, err)

	ones, err := Ones(Lazy, kept.Shape(), Bool, kept)
	require.NoError(t, err)
	sum, err := Lazy.Binary(And, ones, ones)
	require.NoError(t, err)
	got := compute(t, sum)
	assert.Equal(t, Shape{2, 2}, got.Shape())
	assert.Equal(t, []bool{true, true, true, true}, got.Bools())

	st, err := Lazy.Stack([]Array{d, d}, 2)
	require.NoError(t, err)
	assert.Equal(t, Shape{3, 2, 2}, st.Shape())
	assert.Equal(t, []int64{1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6}, compute(t, st).Ints())
}

func TestAssignMasked(t *testing.T) {
	gt := Ints2([][]int64{{0, 1}, {1, 1}, {0, 0}})
	mask := FromBools([]bool{true, false, false, true, false, false}, 3, 2)

	bothModes(t, gt, func(t *testing.T, a Array) {
		be, err := BackendOf(a)
		require.NoError(t, err)
		m := Array(mask)
		if be == Lazy {
			m = Chunked(mask, 2)
		}
		out, err := be.AssignMasked(a, m, ScalarInt(MissingInt))
		require.NoError(t, err)
		assert.Equal(t, []int64{-1, 1, 1, -1, 0, 0}, compute(t, out).Ints())
	})
	assert.Equal(t, []int64{0, 1, 1, 1, 0, 0}, gt.Ints())
}

func TestTakeSamples(t *testing.T) {
	m := Ints2([][]int64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}})
	bothModes(t, m, func(t *testing.T, a Array) {
		be, _ := BackendOf(a)
		out, err := be.Take(a, 1, []int{2, 0})
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 1, 6, 4, 9, 7}, compute(t, out).Ints())

		_, err = be.Take(a, 1, []int{3})
		assert.ErrorIs(t, err, ErrShape)
	})
}

func TestMissing(t *testing.T) {
	v, err := MissingValue(Float32)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v.(float64)))
	v, err = MissingValue(Int16)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v)
	v, err = MissingValue(String)
	require.NoError(t, err)
	assert.Equal(t, "", v)
	_, err = MissingValue(Bool)
	assert.ErrorIs(t, err, ErrNoSentinel)

	cases := []struct {
		in   *Dense
		want []bool
	}{
		{FromInts([]int64{-1, 0, 3}), []bool{true, false, false}},
		{FromFloats([]float64{math.NaN(), 0, -1}), []bool{true, false, false}},
		{FromStrings([]string{"", "A"}), []bool{true, false}},
		{FromBools([]bool{true, false}), []bool{false, false}},
	}
	for _, c := range cases {
		out, err := Unary(IsMissing, c.in)
		require.NoError(t, err)
		assert.Equal(t, c.want, out.(*Dense).Bools())
	}
}

func TestHistogram(t *testing.T) {
	values := FromFloats([]float64{0, 0.1, 0.5, 1, math.NaN(), 2})

	h, err := Eager.Histogram(values, HistogramOptions{Bins: 2, Limits: &Limits{0, 1}})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 2}, h.Counts.(*Dense).Ints())
	assert.Equal(t, []float64{0, 0.5, 1}, h.Edges.(*Dense).Floats())

	h, err = Lazy.Histogram(Chunked(values, 4), HistogramOptions{Bins: 2, Limits: &Limits{0, 1}})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 2}, compute(t, h.Counts).Ints())
	assert.Equal(t, []float64{0, 0.5, 1}, compute(t, h.Edges).Floats())

	_, err = Lazy.Histogram(Chunked(values, 4), HistogramOptions{})
	assert.ErrorIs(t, err, ErrLimitsRequired)

	h, err = Eager.Histogram(values, HistogramOptions{})
	require.NoError(t, err)
	assert.Equal(t, 40, h.Counts.Shape()[0])
	assert.Equal(t, 41, h.Edges.Shape()[0])
	assert.InDelta(t, 2.0, h.Edges.(*Dense).Floats()[40], 1e-12)

	weighted, err := Eager.Histogram(FromFloats([]float64{0.2, 0.7, 0.9}), HistogramOptions{
		Bins: 2, Limits: &Limits{0, 1}, Weights: FromFloats([]float64{2, 0.5, 0.5}),
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 1}, weighted.Counts.(*Dense).Floats())
}

func TestHistogramRange(t *testing.T) {
	empty, err := Eager.Histogram(FromFloats([]float64{math.NaN()}), HistogramOptions{Bins: 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1}, empty.Edges.(*Dense).Floats())
	assert.Equal(t, []int64{0, 0}, empty.Counts.(*Dense).Ints())

	flat, err := Eager.Histogram(FromFloats([]float64{3, 3}), HistogramOptions{Bins: 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{2.5, 3.5}, flat.Edges.(*Dense).Floats())
	assert.Equal(t, []int64{2}, flat.Counts.(*Dense).Ints())

	// Infinite entries make the automatic range non-finite; the retry drops them.
	inf, err := Eager.Histogram(FromFloats([]float64{0, math.Inf(1), 1}), HistogramOptions{Bins: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1}, inf.Counts.(*Dense).Ints())

	_, err = Eager.Histogram(FromFloats([]float64{1}), HistogramOptions{Limits: &Limits{0, math.Inf(1)}})
	assert.ErrorIs(t, err, ErrNonFiniteRange)
}

func TestMap(t *testing.T) {
	m := Ints2([][]int64{{1, 2}, {3, 4}, {5, 6}})
	rowSum := func(blocks []*Dense) (*Dense, error) {
		b := blocks[0]
		out := make([]int64, b.Shape()[0])
		for i := range out {
			out[i] = b.Ints()[2*i] + b.Ints()[2*i+1]
		}
		return FromInts(out), nil
	}
	bothModes(t, m, func(t *testing.T, a Array) {
		be, _ := BackendOf(a)
		out, err := be.Map(rowSum, MapResult{Kind: Int64}, a)
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 7, 11}, compute(t, out).Ints())
	})
}

func TestDeferredSlice(t *testing.T) {
	d := Chunked(FromInts([]int64{0, 1, 2, 3, 4, 5, 6}), 3)
	s, err := Lazy.Slice(d, 0, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, Shape{3}, s.Shape())
	assert.Equal(t, []int64{2, 3, 4}, compute(t, s).Ints())

	none, err := Lazy.Slice(d, 0, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, compute(t, none).Len())
}
