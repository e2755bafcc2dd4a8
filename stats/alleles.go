// Package stats computes per-variant population statistics over a
// variation.Variations. Every function uses the backend of the container:
// eager input gives computed arrays, deferred input gives deferred arrays that
// still have to be materialized.
package stats

import (
	"fmt"

	"github.com/carbocation/variation"
	"github.com/carbocation/variation/array"
)

// DefaultMinNumGenotypes is the number of called genotypes below which a
// variant's statistic is NaN.
const DefaultMinNumGenotypes = 10

// CountAlleles counts, per variant, the occurrences of every allele index
// below maxAlleles across all calls and ploidy positions of gts ([V,S,P]). The
// result is [V, maxAlleles+1]: the last column counts missing alleles. Allele
// indexes of maxAlleles or above are not counted.
func CountAlleles(gts array.Array, maxAlleles int) (array.Array, error) {
	be, err := array.BackendOf(gts)
	if err != nil {
		return nil, err
	}
	if maxAlleles < 1 {
		return nil, fmt.Errorf("%w: max alleles must be positive, got %d", array.ErrShape, maxAlleles)
	}
	shape := gts.Shape()
	if be == array.Eager && (shape.NDim() == 0 || shape[0] == 0) {
		return nil, variation.ErrEmptyVariations
	}
	if shape.NDim() != 3 {
		return nil, fmt.Errorf("%w: genotypes must be [variants, samples, ploidy], got %v", array.ErrShape, shape)
	}
	if !gts.Kind().IsInteger() {
		return nil, fmt.Errorf("%w: genotypes must be integers, got %s", array.ErrKind, gts.Kind())
	}
	result := array.MapResult{Kind: array.Int64, Trailing: array.Shape{maxAlleles + 1}}
	return be.Map(countAllelesBlock(maxAlleles), result, gts)
}

func countAllelesBlock(maxAlleles int) array.BlockFunc {
	width := maxAlleles + 1
	return func(in []*array.Dense) (*array.Dense, error) {
		gt := in[0]
		shape := gt.Shape()
		rows, perRow := shape[0], shape[1]*shape[2]
		mask, err := array.Eager.Unary(array.IsMissing, gt)
		if err != nil {
			return nil, err
		}
		missing := mask.(*array.Dense).Bools()
		counts := make([]int64, rows*width)
		for i, allele := range gt.Ints() {
			row := counts[(i/perRow)*width:][:width]
			switch {
			case missing[i]:
				row[maxAlleles]++
			case allele >= 0 && allele < int64(maxAlleles):
				row[allele]++
			}
		}
		return array.NewInts(array.Int64, array.Shape{rows, width}, counts)
	}
}

// MaxAllelesFromAlt is the number of alleles the ALT field allows: the
// reference plus one per ALT column.
func MaxAllelesFromAlt(v *variation.Variations) (int, error) {
	alt, err := v.Field(variation.Alt)
	if err != nil {
		return 0, err
	}
	shape := alt.Shape()
	if shape.NDim() != 2 {
		return 1, nil
	}
	return shape[1] + 1, nil
}

// alleles holds the per-variant allele tallies shared by the frequency
// statistics.
type alleles struct {
	counts    array.Array // [V, maxAlleles]
	called    array.Array // called alleles, [V]
	major     array.Array // count of the most frequent allele, [V]
	calledGTs array.Array // calls with at least one called allele, [V]
}

func (c *calc) alleles(v *variation.Variations, maxAlleles int) alleles {
	gt, err := v.Field(variation.GT)
	if err != nil {
		c.err = err
		return alleles{}
	}
	var counts array.Array
	if c.err == nil {
		counts = c.keep(CountAlleles(gt, maxAlleles))
	}
	counts = c.slice(counts, 1, 0, maxAlleles)
	return alleles{
		counts:    counts,
		called:    c.reduce(array.Sum, counts, 1),
		major:     c.reduce(array.Max, counts, 1),
		calledGTs: c.calledGenotypes(gt),
	}
}

// missingCalls flags the calls whose every allele is missing, [V,S].
func (c *calc) missingCalls(gt array.Array) array.Array {
	return c.reduce(array.All, c.unary(array.IsMissing, gt), 2)
}

func (c *calc) calledGenotypes(gt array.Array) array.Array {
	called := c.unary(array.Not, c.missingCalls(gt))
	return c.reduce(array.CountNonzero, called, 1)
}

// CalcMAFByGT is the frequency of the most frequent allele among the called
// alleles of every variant. Variants with fewer than minNumGenotypes called
// genotypes, or none, are NaN.
func CalcMAFByGT(v *variation.Variations, maxAlleles, minNumGenotypes int) (array.Array, error) {
	c := &calc{be: v.Backend()}
	al := c.alleles(v, maxAlleles)
	maf := c.binary(array.Divide, al.major, al.called)
	return c.result(c.nanWhere(c.below(al.calledGTs, minNumGenotypes), maf))
}

// CalcMAC is the number of called alleles that are not the most frequent
// one. Variants without called alleles or with fewer than minNumGenotypes
// called genotypes are NaN.
func CalcMAC(v *variation.Variations, maxAlleles, minNumGenotypes int) (array.Array, error) {
	c := &calc{be: v.Backend()}
	al := c.alleles(v, maxAlleles)
	mac := c.binary(array.Subtract, al.called, al.major)
	noCalls := c.binary(array.Equal, al.called, array.ScalarInt(0))
	undefined := c.binary(array.Or, noCalls, c.below(al.calledGTs, minNumGenotypes))
	return c.result(c.nanWhere(undefined, mac))
}

// CalcAlleleFreq gives, per variant, the frequency of every allele index
// below maxAlleles ([V, maxAlleles]). Rows of variants under minNumGenotypes
// called genotypes are NaN.
func CalcAlleleFreq(v *variation.Variations, maxAlleles, minNumGenotypes int) (array.Array, error) {
	c := &calc{be: v.Backend()}
	al := c.alleles(v, maxAlleles)
	return c.result(c.alleleFreq(al, minNumGenotypes))
}

func (c *calc) alleleFreq(al alleles, minNumGenotypes int) array.Array {
	freq := c.binary(array.Divide, al.counts, c.expand(al.called, 1))
	below := c.expand(c.below(al.calledGTs, minNumGenotypes), 1)
	return c.nanWhere(below, freq)
}

// CalcMAFByAlleleCount estimates the major allele frequency from read
// observations: the largest of the summed reference observations and every
// summed alternate observation, over all observations. Missing observations
// are left out. A call counts as sampled when any of its observations is
// present; variants with fewer than minNumGenotypes sampled calls are NaN.
func CalcMAFByAlleleCount(v *variation.Variations, minNumGenotypes int) (array.Array, error) {
	ro, err := v.Field(variation.RO)
	if err != nil {
		return nil, err
	}
	ao, err := v.Field(variation.AO)
	if err != nil {
		return nil, err
	}
	c := &calc{be: v.Backend()}
	zero := array.ScalarInt(0)

	roMissing := c.unary(array.IsMissing, ro)
	aoMissing := c.unary(array.IsMissing, ao)
	roSum := c.reduce(array.Sum, c.where(roMissing, zero, ro), 1)
	aoSums := c.reduce(array.Sum, c.where(aoMissing, zero, ao), 1)

	major := c.binary(array.Maximum, roSum, c.reduce(array.Max, aoSums, 1))
	total := c.binary(array.Add, roSum, c.reduce(array.Sum, aoSums, 1))
	maf := c.binary(array.Divide, major, total)

	roPresent := c.unary(array.Not, roMissing)
	aoPresent := c.reduce(array.Any, c.unary(array.Not, aoMissing), 2)
	sampled := c.reduce(array.CountNonzero, c.binary(array.Or, roPresent, aoPresent), 1)
	return c.result(c.nanWhere(c.below(sampled, minNumGenotypes), maf))
}
