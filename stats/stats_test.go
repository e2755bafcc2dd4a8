package stats

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbocation/variation"
	"github.com/carbocation/variation/array"
)

var nan = math.NaN()

var mafGTs = array.Ints3([][][]int64{
	{{0, 2}, {-1, -1}},
	{{0, 2}, {1, -1}},
	{{0, 0}, {1, 1}},
	{{-1, -1}, {-1, -1}},
})

func TestCountAlleles(t *testing.T) {
	expected := []int64{1, 0, 1, 2, 1, 1, 1, 1, 2, 2, 0, 0, 0, 0, 0, 4}

	inModes(t, []string{"aa", "bb"}, map[string]*array.Dense{variation.GT: mafGTs}, func(t *testing.T, v *variation.Variations) {
		gt, err := v.Field(variation.GT)
		require.NoError(t, err)
		counts, err := CountAlleles(gt, 3)
		require.NoError(t, err)
		got := compute(t, counts)
		assert.Equal(t, array.Shape{4, 4}, got.Shape())
		assert.Equal(t, expected, got.Ints())
	})

	_, err := CountAlleles(mafGTs, 0)
	assert.ErrorIs(t, err, array.ErrShape)
	_, err = CountAlleles(array.Ints2([][]int64{{0, 1}}), 3)
	assert.ErrorIs(t, err, array.ErrShape)
}

func TestCountAllelesEmpty(t *testing.T) {
	_, err := CountAlleles(array.FromInts([]int64{}), 3)
	assert.ErrorIs(t, err, variation.ErrEmptyVariations)

	_, err = CountAlleles(array.Zeros(array.Int64, 0, 2, 2), 3)
	assert.ErrorIs(t, err, variation.ErrEmptyVariations)

	v := newVariations(t, chunked, []string{"aa", "bb"}, map[string]*array.Dense{variation.GT: mafGTs})
	empty, err := v.SelectVariants(array.Chunked(array.FromBools([]bool{false, false, false, false}), 2))
	require.NoError(t, err)
	gt, err := empty.Field(variation.GT)
	require.NoError(t, err)
	counts, err := CountAlleles(gt, 3)
	require.NoError(t, err)
	assert.Equal(t, array.Shape{0, 4}, compute(t, counts).Shape())
}

func TestMaxAllelesFromAlt(t *testing.T) {
	v, err := variation.New()
	require.NoError(t, err)
	_, err = MaxAllelesFromAlt(v)
	assert.ErrorIs(t, err, variation.ErrMissingField)

	alt, err := array.NewStrings(array.Shape{3, 2}, make([]string, 6))
	require.NoError(t, err)
	require.NoError(t, v.Set(variation.Alt, alt))
	n, err := MaxAllelesFromAlt(v)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCalcMissingGT(t *testing.T) {
	gts := array.Ints3([][][]int64{
		{{0, 0}, {0, 0}},
		{{0, 0}, {-1, -1}},
		{{0, 0}, {-1, -1}},
		{{-1, -1}, {-1, 0}},
	})

	inModes(t, []string{"0", "1"}, map[string]*array.Dense{variation.GT: gts}, func(t *testing.T, v *variation.Variations) {
		counts, err := CalcMissingGT(v, false)
		require.NoError(t, err)
		assert.Equal(t, []int64{0, 1, 1, 1}, compute(t, counts).Ints())

		rates, err := CalcMissingGT(v, true)
		require.NoError(t, err)
		assertFloats(t, []float64{0, 0.5, 0.5, 0.5}, rates)
	})

	for _, m := range []mode{eager, chunked} {
		v := newVariations(t, m, []string{"0", "1"}, map[string]*array.Dense{variation.GT: gts})
		counts, err := CalcMissingGTPerSample(v, false)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, compute(t, counts).Ints())

		rates, err := CalcMissingGTPerSample(v, true)
		require.NoError(t, err)
		assertFloats(t, []float64{0.25, 0.5}, rates)
	}

	v := newVariations(t, unresolved, []string{"0", "1"}, map[string]*array.Dense{variation.GT: gts})
	_, err := CalcMissingGTPerSample(v, true)
	assert.ErrorIs(t, err, variation.ErrNotMaterialized)
}

func TestCalcMissingGTEmpty(t *testing.T) {
	v := newVariations(t, chunked, []string{"aa", "bb"}, map[string]*array.Dense{variation.GT: mafGTs})
	empty, err := v.SelectVariants(array.Chunked(array.FromBools([]bool{false, false, false, false}), 2))
	require.NoError(t, err)
	rates, err := CalcMissingGT(empty, true)
	require.NoError(t, err)
	assert.Equal(t, array.Shape{0}, compute(t, rates).Shape())
}

func TestCalcMAFByAlleleCount(t *testing.T) {
	fields := map[string]*array.Dense{
		variation.GT: array.Ints3([][][]int64{
			{{-1, 1}, {2, 1}},
			{{-1, -1}, {-1, 2}},
			{{1, -1}, {1, 1}},
		}),
		variation.RO: array.Ints2([][]int64{{-1, 8}, {-1, -1}, {6, 4}}),
		variation.AO: array.Ints3([][][]int64{
			{{1, 4}, {2, 1}},
			{{-1, -1}, {3, 3}},
			{{1, 4}, {5, 1}},
		}),
	}
	inModes(t, []string{"aa", "bb"}, fields, func(t *testing.T, v *variation.Variations) {
		mafs, err := CalcMAFByAlleleCount(v, 0)
		require.NoError(t, err)
		assertFloats(t, []float64{0.5, 0.5, 10.0 / 21}, mafs)

		// The second variant has a single sampled call.
		mafs, err = CalcMAFByAlleleCount(v, 2)
		require.NoError(t, err)
		assertFloats(t, []float64{0.5, nan, 10.0 / 21}, mafs)
	})

	v := newVariations(t, eager, []string{"aa", "bb"}, map[string]*array.Dense{variation.GT: fields[variation.GT]})
	_, err := CalcMAFByAlleleCount(v, 0)
	assert.ErrorIs(t, err, variation.ErrMissingField)
}

func TestCalcMAFByGT(t *testing.T) {
	inModes(t, []string{"aa", "bb"}, map[string]*array.Dense{variation.GT: mafGTs}, func(t *testing.T, v *variation.Variations) {
		mafs, err := CalcMAFByGT(v, 3, 0)
		require.NoError(t, err)
		assertFloats(t, []float64{0.5, 1.0 / 3, 0.5, nan}, mafs)

		mafs, err = CalcMAFByGT(v, 3, 2)
		require.NoError(t, err)
		assertFloats(t, []float64{nan, 1.0 / 3, 0.5, nan}, mafs)
	})
}

func TestCalcMAC(t *testing.T) {
	gts := array.Ints3([][][]int64{
		{{0, 0}, {0, 0}},
		{{0, 2}, {1, -1}},
		{{0, 0}, {1, 1}},
		{{-1, -1}, {-1, -1}},
	})
	inModes(t, []string{"aa", "bb"}, map[string]*array.Dense{variation.GT: gts}, func(t *testing.T, v *variation.Variations) {
		macs, err := CalcMAC(v, 3, 0)
		require.NoError(t, err)
		assertFloats(t, []float64{0, 2, 2, nan}, macs)
	})

	haploid := array.Ints3([][][]int64{{{0}, {0}, {0}, {0}}, {{0}, {0}, {1}, {1}}, {{0}, {0}, {0}, {1}}, {{-1}, {-1}, {-1}, {-1}}})
	inModes(t, sampleNames(4), map[string]*array.Dense{variation.GT: haploid}, func(t *testing.T, v *variation.Variations) {
		macs, err := CalcMAC(v, 3, 1)
		require.NoError(t, err)
		assertFloats(t, []float64{0, 2, 1, nan}, macs)
	})
}

func TestCalcAlleleFreq(t *testing.T) {
	gts := array.Ints3([][][]int64{
		{{0, 0}, {1, 1}, {0, -1}, {-1, -1}},
		{{0, -1}, {0, 0}, {0, -1}, {-1, -1}},
		{{0, 1}, {0, 2}, {0, 0}, {-1, -1}},
	})
	inModes(t, sampleNames(4), map[string]*array.Dense{variation.GT: gts}, func(t *testing.T, v *variation.Variations) {
		freqs, err := CalcAlleleFreq(v, 3, 0)
		require.NoError(t, err)
		assertFloats(t, []float64{0.6, 0.4, 0, 1, 0, 0, 4.0 / 6, 1.0 / 6, 1.0 / 6}, freqs)

		freqs, err = CalcAlleleFreq(v, 3, 3)
		require.NoError(t, err)
		assertFloats(t, []float64{0.6, 0.4, 0, 1, 0, 0, 4.0 / 6, 1.0 / 6, 1.0 / 6}, freqs)

		freqs, err = CalcAlleleFreq(v, 2, 4)
		require.NoError(t, err)
		assertFloats(t, []float64{nan, nan, nan, nan, nan, nan}, freqs)
	})
}

func TestCalcObsHet(t *testing.T) {
	fields := map[string]*array.Dense{
		variation.GT: array.Ints3([][][]int64{
			{{0, 0}, {0, 1}, {0, -1}, {-1, -1}},
			{{0, 0}, {0, 0}, {0, -1}, {-1, -1}},
		}),
		variation.DP: array.Ints2([][]int64{{5, 12, 10, 10}, {10, 10, 10, 10}}),
	}
	inModes(t, []string{"a", "b", "c", "d"}, fields, func(t *testing.T, v *variation.Variations) {
		het, err := CalcObsHet(v, 0)
		require.NoError(t, err)
		assertFloats(t, []float64{0.5, 0}, het)

		het, err = CalcObsHet(v, 10)
		require.NoError(t, err)
		assertFloats(t, []float64{nan, nan}, het)

		het, err = CalcObsHet(v, 0, MinCallDP(10))
		require.NoError(t, err)
		assertFloats(t, []float64{1, 0}, het)

		het, err = CalcObsHet(v, 0, MaxCallDP(11))
		require.NoError(t, err)
		assertFloats(t, []float64{0, 0}, het)

		het, err = CalcObsHet(v, 0, MinCallDP(5))
		require.NoError(t, err)
		assertFloats(t, []float64{0.5, 0}, het)

		het, err = CalcObsHet(v, 0, MinCallDP(13))
		require.NoError(t, err)
		assertFloats(t, []float64{nan, nan}, het)
	})

	v := newVariations(t, eager, sampleNames(4), map[string]*array.Dense{variation.GT: fields[variation.GT]})
	_, err := CalcObsHet(v, 0, MinCallDP(10))
	assert.ErrorIs(t, err, variation.ErrMissingField)
}

func TestCalcExpectedHet(t *testing.T) {
	gts := array.Ints3([][][]int64{
		{{0, 0}, {0, 0}, {0, 0}, {1, 1}, {1, 1}, {1, 1}, {1, 0}},
		{{0, 0}, {0, 0}, {0, 0}, {1, 1}, {1, 1}, {1, 1}, {1, 1}},
		{{0, 0}, {0, 0}, {0, 0}, {1, 1}, {1, 1}, {1, 1}, {1, 1}},
	})
	inModes(t, sampleNames(7), map[string]*array.Dense{variation.GT: gts}, func(t *testing.T, v *variation.Variations) {
		exp, err := CalcExpectedHet(v, 3, 0)
		require.NoError(t, err)
		assertFloats(t, []float64{0.5, 0.48979592, 0.48979592}, exp)

		unbiased, err := CalcUnbiasExpectedHet(v, 3, 0)
		require.NoError(t, err)
		assertFloats(t, []float64{0.53846154, 0.52747253, 0.52747253}, unbiased)
	})

	single := array.Ints3([][][]int64{{{0}, {-1}}, {{0}, {1}}, {{-1}, {-1}}})
	inModes(t, []string{"a", "b"}, map[string]*array.Dense{variation.GT: single}, func(t *testing.T, v *variation.Variations) {
		unbiased, err := CalcUnbiasExpectedHet(v, 2, 0)
		require.NoError(t, err)
		assertFloats(t, []float64{nan, 1, nan}, unbiased)
	})
}

func TestCalcDiversities(t *testing.T) {
	ctx := context.Background()
	inModes(t, []string{"aa", "bb"}, map[string]*array.Dense{variation.GT: mafGTs}, func(t *testing.T, v *variation.Variations) {
		div, err := CalcDiversities(v, DiversityParams{MaxAlleles: 3, PolymorphicThreshold: 0.5})
		require.NoError(t, err)
		got, err := div.Compute(ctx, array.SilenceRuntimeWarnings())
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.NumVariableVars)
		assert.Equal(t, int64(3), got.NumPolymorphicVars)
		assert.InDelta(t, (0.5+2.0/3+0.5)/3, got.ExpHet, 1e-6)
		assert.InDelta(t, 2.0/3, got.ObsHet, 1e-6)
		assert.Len(t, div.Arrays(), 4)

		div, err = CalcDiversities(v, DiversityParams{MaxAlleles: 3, PolymorphicThreshold: 0.4})
		require.NoError(t, err)
		got, err = div.Compute(ctx, array.SilenceRuntimeWarnings())
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.NumPolymorphicVars)
	})
}

func TestCalcDiversitiesHetCallDepth(t *testing.T) {
	fields := map[string]*array.Dense{
		variation.GT: array.Ints3([][][]int64{
			{{0, 0}, {0, 1}, {0, -1}, {-1, -1}},
			{{0, 0}, {0, 1}, {1, 1}, {1, 0}},
		}),
		variation.DP: array.Ints2([][]int64{{5, 12, 10, 10}, {10, 3, 10, 20}}),
	}
	inModes(t, sampleNames(4), fields, func(t *testing.T, v *variation.Variations) {
		div, err := CalcDiversities(v, DiversityParams{MaxAlleles: 2, MinCallDPForHetCall: 10, PolymorphicThreshold: 0.95})
		require.NoError(t, err)
		got, err := div.Compute(context.Background())
		require.NoError(t, err)
		// First variant: 1/1 heterozygous; second: 1/3.
		assert.InDelta(t, (1+1.0/3)/2, got.ObsHet, 1e-6)
		assert.Equal(t, int64(2), got.NumVariableVars)
	})
}

func TestCalcHWE(t *testing.T) {
	gts := array.Ints3([][][]int64{
		{{0, 0}, {0, 0}, {0, 1}, {1, 1}, {1, 1}, {1, 1}},
		{{0, 0}, {0, 2}, {0, 1}, {1, 1}, {1, 1}, {1, 1}},
		{{-1, -1}, {-1, -1}, {-1, -1}, {-1, -1}, {-1, -1}, {-1, -1}},
		{{1, 1}, {0, 0}, {1, 1}, {1, 0}, {0, 0}, {1, 1}},
	})
	inModes(t, sampleNames(6), map[string]*array.Dense{variation.GT: gts}, func(t *testing.T, v *variation.Variations) {
		p, err := CalcHWE(v)
		require.NoError(t, err)
		assertFloats(t, []float64{0.15151515151515, nan, nan, 0.15151515151515}, p)
	})

	v := newVariations(t, eager, sampleNames(2), map[string]*array.Dense{
		variation.GT: array.Ints3([][][]int64{{{0}, {1}}}),
	})
	_, err := CalcHWE(v)
	assert.ErrorIs(t, err, array.ErrShape)
}
