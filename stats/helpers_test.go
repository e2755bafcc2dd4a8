package stats

import (
	"context"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbocation/variation"
	"github.com/carbocation/variation/array"
)

type mode int

const (
	eager mode = iota
	// chunked splits every field in blocks of two variants.
	chunked
	// unresolved also passes the fields through an all-true variant
	// selection, so the variant axis is only known once materialized.
	unresolved
)

func (m mode) String() string {
	switch m {
	case eager:
		return "eager"
	case chunked:
		return "chunked"
	}
	return "unresolved"
}

var modes = []mode{eager, chunked, unresolved}

func newVariations(t *testing.T, m mode, samples []string, fields map[string]*array.Dense) *variation.Variations {
	t.Helper()
	v, err := variation.New(variation.WithSamples(samples))
	require.NoError(t, err)

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := 0
	for _, name := range names {
		d := fields[name]
		rows = d.Shape()[0]
		if m == eager {
			require.NoError(t, v.Set(name, d))
			continue
		}
		require.NoError(t, v.Set(name, array.Chunked(d, 2)))
	}
	if m != unresolved {
		return v
	}

	keep := make([]bool, rows)
	for i := range keep {
		keep[i] = true
	}
	v, err = v.SelectVariants(array.Chunked(array.FromBools(keep), 2))
	require.NoError(t, err)
	return v
}

// inModes runs fn once per representation of the same fields.
func inModes(t *testing.T, samples []string, fields map[string]*array.Dense, fn func(t *testing.T, v *variation.Variations)) {
	for _, m := range modes {
		t.Run(m.String(), func(t *testing.T) {
			fn(t, newVariations(t, m, samples, fields))
		})
	}
}

func compute(t *testing.T, a array.Array) *array.Dense {
	t.Helper()
	out, err := array.Materialize(context.Background(), []array.Array{a}, array.SilenceRuntimeWarnings())
	require.NoError(t, err)
	return out[0]
}

func assertFloats(t *testing.T, want []float64, a array.Array) {
	t.Helper()
	got := compute(t, a).Float64s()
	require.Len(t, got, len(want))
	for i := range want {
		if math.IsNaN(want[i]) {
			assert.True(t, math.IsNaN(got[i]), "index %d: expected NaN, got %v", i, got[i])
			continue
		}
		assert.InDelta(t, want[i], got[i], 1e-6, "index %d", i)
	}
}

func sampleNames(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('a' + i))
	}
	return out
}
