package variation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbocation/variation/array"
)

var testGTs = [][][]int64{
	{{0, 0}, {0, 1}, {1, 1}},
	{{0, 1}, {-1, -1}, {0, 0}},
	{{1, 1}, {1, 1}, {0, -1}},
	{{0, 0}, {0, 0}, {0, 0}},
}

func newTestVariations(t *testing.T, chunk int) *Variations {
	t.Helper()
	v, err := New(WithSamples([]string{"s1", "s2", "s3"}), WithMetadata(map[string]any{"source": "test"}))
	require.NoError(t, err)
	gt := array.Ints3(testGTs)
	pos := array.FromInts([]int64{10, 20, 30, 40})
	if chunk > 0 {
		require.NoError(t, v.Set(GT, array.Chunked(gt, chunk)))
		require.NoError(t, v.Set(Pos, array.Chunked(pos, chunk)))
		return v
	}
	require.NoError(t, v.Set(GT, gt))
	require.NoError(t, v.Set(Pos, pos))
	return v
}

func TestSamples(t *testing.T) {
	v, err := New()
	require.NoError(t, err)
	assert.Equal(t, 0, v.NumSamples())

	err = v.Set(GT, array.Ints3(testGTs))
	assert.ErrorIs(t, err, ErrSamplesNotSet)

	require.NoError(t, v.SetSamples([]string{"a", "b", "c"}))
	assert.ErrorIs(t, v.SetSamples([]string{"d"}), ErrAlreadyInitialized)
	assert.Equal(t, []string{"a", "b", "c"}, v.Samples())

	i, ok := v.SampleIndex("c")
	assert.True(t, ok)
	assert.Equal(t, 2, i)

	_, err = New(WithSamples([]string{"a", "a"}))
	assert.Error(t, err)
}

func TestSetShapeChecks(t *testing.T) {
	v, err := New(WithSamples([]string{"a", "b"}))
	require.NoError(t, err)

	err = v.Set(GT, array.Ints3(testGTs))
	var mismatch *ShapeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 1, mismatch.Axis)
	assert.Equal(t, 2, mismatch.Expected)
	assert.Equal(t, 3, mismatch.Actual)
	assert.Contains(t, err.Error(), "not fit with num samples")

	require.NoError(t, v.Set(DP, array.Ints2([][]int64{{1, 2}, {3, 4}})))
	err = v.Set(Pos, array.FromInts([]int64{1, 2, 3}))
	require.True(t, errors.As(err, &mismatch))
	assert.Contains(t, err.Error(), "introduced matrix shape")

	// Replacing a field with new rows is checked against the others only.
	require.NoError(t, v.Set(DP, array.Ints2([][]int64{{1, 2}, {3, 4}})))

	err = v.Set(Pos, array.Chunked(array.FromInts([]int64{1, 2}), 1))
	assert.ErrorIs(t, err, ErrUnsupportedBackend)
}

func TestSetUnresolvedRows(t *testing.T) {
	v := newTestVariations(t, 2)
	assert.Equal(t, array.Lazy, v.Backend())

	mask := array.FromBools([]bool{true, false, true, true})
	kept, err := v.SelectVariants(mask)
	require.NoError(t, err)
	_, err = kept.NumVariations()
	assert.ErrorIs(t, err, ErrNotMaterialized)

	// Two unresolved first axes are accepted.
	gt, _ := kept.Get(GT)
	dp, err := array.Lazy.Reduce(array.Sum, gt, 2)
	require.NoError(t, err)
	require.NoError(t, kept.Set(DP, dp))

	// Resolved against unresolved is not.
	err = kept.Set(Qual, array.Chunked(array.FromFloats([]float64{1, 2, 3}), 2))
	var mismatch *ShapeMismatchError
	assert.True(t, errors.As(err, &mismatch))
}

func TestNumVariations(t *testing.T) {
	v, err := New()
	require.NoError(t, err)
	n, err := v.NumVariations()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for _, chunk := range []int{0, 3} {
		v := newTestVariations(t, chunk)
		n, err = v.NumVariations()
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		assert.Equal(t, 3, v.NumSamples())
	}
}

func TestSelect(t *testing.T) {
	ctx := context.Background()
	for _, chunk := range []int{0, 2} {
		v := newTestVariations(t, chunk)
		mask := array.FromBools([]bool{false, true, true, false})
		kept, err := v.SelectVariants(mask)
		require.NoError(t, err)

		sub, err := kept.SelectSamples([]int{2, 0})
		require.NoError(t, err)
		assert.Equal(t, []string{"s3", "s1"}, sub.Samples())
		assert.Equal(t, []string{"s1", "s2", "s3"}, v.Samples())

		mem, err := sub.ToMemory(ctx)
		require.NoError(t, err)
		assert.Equal(t, array.Eager, mem.Backend())
		gt, _ := mem.Get(GT)
		assert.Equal(t, []int64{0, 0, 0, 1, 0, -1, 1, 1}, gt.(*array.Dense).Ints())
		pos, _ := mem.Get(Pos)
		assert.Equal(t, []int64{20, 30}, pos.(*array.Dense).Ints())
		assert.Equal(t, "test", mem.Metadata()["source"])
	}

	v := newTestVariations(t, 0)
	_, err := v.SelectSamples([]int{3})
	assert.ErrorIs(t, err, ErrUnknownSample)
	_, err = v.Field(DP)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestChunkReader(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		name      string
		chunk     int
		chunkSize int
		want      []int
	}{
		{"eager", 0, 3, []int{3, 1}},
		{"eager whole", 0, 0, []int{4}},
		{"deferred", 2, 0, []int{2, 2}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			v := newTestVariations(t, tc.chunk)
			cr := v.NewChunkReader(ctx, tc.chunkSize)
			var rows []int
			var positions []int64
			for chunk := cr.Read(); chunk != nil; chunk = cr.Read() {
				n, err := chunk.NumVariations()
				require.NoError(t, err)
				rows = append(rows, n)
				pos, _ := chunk.Get(Pos)
				positions = append(positions, pos.(*array.Dense).Ints()...)
				assert.Equal(t, 3, chunk.NumSamples())
			}
			require.NoError(t, cr.Error())
			assert.Equal(t, tc.want, rows)
			assert.Equal(t, []int64{10, 20, 30, 40}, positions)
			assert.Equal(t, len(tc.want), cr.ChunksSeen)
		})
	}
}
