package stats

import (
	"github.com/carbocation/variation"
	"github.com/carbocation/variation/array"
)

type hetConfig struct {
	minDP, maxDP       int64
	hasMinDP, hasMaxDP bool
}

// HetOption restricts the calls CalcObsHet looks at.
type HetOption func(*hetConfig)

// MinCallDP keeps calls with a depth of at least dp.
func MinCallDP(dp int) HetOption {
	return func(c *hetConfig) { c.minDP, c.hasMinDP = int64(dp), true }
}

// MaxCallDP keeps calls with a depth of at most dp.
func MaxCallDP(dp int) HetOption {
	return func(c *hetConfig) { c.maxDP, c.hasMaxDP = int64(dp), true }
}

// CalcObsHet is the fraction of heterozygous calls among the fully called
// ones that pass the depth window. Variants with fewer than minNumGenotypes
// such calls are NaN.
func CalcObsHet(v *variation.Variations, minNumGenotypes int, opts ...HetOption) (array.Array, error) {
	var cfg hetConfig
	for _, o := range opts {
		o(&cfg)
	}
	gt, err := v.Field(variation.GT)
	if err != nil {
		return nil, err
	}
	c := &calc{be: v.Backend()}
	calls := c.unary(array.Not, c.reduce(array.Any, c.unary(array.IsMissing, gt), 2))
	if cfg.hasMinDP || cfg.hasMaxDP {
		dp, err := v.Field(variation.DP)
		if err != nil {
			return nil, err
		}
		if cfg.hasMinDP {
			calls = c.binary(array.And, calls, c.binary(array.GreaterEqual, dp, array.ScalarInt(cfg.minDP)))
		}
		if cfg.hasMaxDP {
			calls = c.binary(array.And, calls, c.binary(array.LessEqual, dp, array.ScalarInt(cfg.maxDP)))
		}
	}

	// A call is heterozygous when any allele differs from the first one.
	var het array.Array
	if s := gt.Shape(); s.NDim() == 3 && s[2] == 0 {
		het = c.binary(array.And, calls, array.ScalarBool(false))
	} else {
		het = c.reduce(array.Any, c.binary(array.NotEqual, gt, c.slice(gt, 2, 0, 1)), 2)
	}
	numHet := c.reduce(array.CountNonzero, c.binary(array.And, het, calls), 1)
	numCalls := c.reduce(array.CountNonzero, calls, 1)
	obs := c.binary(array.Divide, numHet, numCalls)
	return c.result(c.nanWhere(c.below(numCalls, minNumGenotypes), obs))
}

// CalcExpectedHet is the heterozygosity expected under Hardy-Weinberg
// equilibrium, 1 - sum(p_i^2) over the allele frequencies of CalcAlleleFreq.
func CalcExpectedHet(v *variation.Variations, maxAlleles, minNumGenotypes int) (array.Array, error) {
	c := &calc{be: v.Backend()}
	al := c.alleles(v, maxAlleles)
	return c.result(c.expectedHet(al, minNumGenotypes))
}

func (c *calc) expectedHet(al alleles, minNumGenotypes int) array.Array {
	freq := c.alleleFreq(al, minNumGenotypes)
	homozygosity := c.reduce(array.Sum, c.binary(array.Multiply, freq, freq), 1)
	return c.binary(array.Subtract, array.ScalarFloat(1), homozygosity)
}

// CalcUnbiasExpectedHet corrects CalcExpectedHet by n/(n-1), n being the
// called alleles of the variant. Variants with n <= 1 are NaN.
func CalcUnbiasExpectedHet(v *variation.Variations, maxAlleles, minNumGenotypes int) (array.Array, error) {
	c := &calc{be: v.Backend()}
	al := c.alleles(v, maxAlleles)
	exp := c.expectedHet(al, minNumGenotypes)
	n := c.cast(al.called, array.Float64)
	factor := c.binary(array.Divide, n, c.binary(array.Subtract, n, array.ScalarFloat(1)))
	tooFew := c.binary(array.LessEqual, al.called, array.ScalarInt(1))
	return c.result(c.nanWhere(tooFew, c.binary(array.Multiply, exp, factor)))
}
