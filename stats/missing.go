package stats

import (
	"fmt"

	"github.com/carbocation/variation"
	"github.com/carbocation/variation/array"
)

// CalcMissingGT counts, per variant, the calls whose genotype is entirely
// missing. With rates the count is divided by the number of samples.
func CalcMissingGT(v *variation.Variations, rates bool) (array.Array, error) {
	gt, err := v.Field(variation.GT)
	if err != nil {
		return nil, err
	}
	c := &calc{be: v.Backend()}
	count := c.reduce(array.CountNonzero, c.missingCalls(gt), 1)
	if rates {
		count = c.binary(array.Divide, count, array.ScalarInt(int64(v.NumSamples())))
	}
	return c.result(count)
}

// CalcMissingGTPerSample counts, per sample, the variants whose genotype is
// entirely missing. With rates the count is divided by the number of
// variants, which must be known.
func CalcMissingGTPerSample(v *variation.Variations, rates bool) (array.Array, error) {
	gt, err := v.Field(variation.GT)
	if err != nil {
		return nil, err
	}
	n, err := gt.Shape().Dim(0)
	if err != nil {
		return nil, fmt.Errorf("missing genotypes per sample: %w", err)
	}
	c := &calc{be: v.Backend()}
	count := c.reduce(array.CountNonzero, c.missingCalls(gt), 0)
	if rates {
		count = c.binary(array.Divide, count, array.ScalarInt(int64(n)))
	}
	return c.result(count)
}
