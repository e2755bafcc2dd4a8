package stats

import (
	"fmt"
	"math"

	"github.com/carbocation/genomisc/hwe"

	"github.com/carbocation/variation"
	"github.com/carbocation/variation/array"
)

// CalcHWE is the exact Hardy-Weinberg equilibrium p-value of every diploid
// variant whose called genotypes only carry alleles 0 and 1. Other variants,
// and variants without fully called genotypes, are NaN.
func CalcHWE(v *variation.Variations) (array.Array, error) {
	gt, err := v.Field(variation.GT)
	if err != nil {
		return nil, err
	}
	if s := gt.Shape(); s.NDim() != 3 || s[2] != 2 {
		return nil, fmt.Errorf("%w: HWE needs diploid genotypes, got %v", array.ErrShape, s)
	}
	if !gt.Kind().IsInteger() {
		return nil, fmt.Errorf("%w: genotypes must be integers, got %s", array.ErrKind, gt.Kind())
	}
	return v.Backend().Map(hweBlock, array.MapResult{Kind: array.Float64}, gt)
}

func hweBlock(in []*array.Dense) (*array.Dense, error) {
	gt := in[0]
	shape := gt.Shape()
	rows, samples := shape[0], shape[1]
	mask, err := array.Eager.Unary(array.IsMissing, gt)
	if err != nil {
		return nil, err
	}
	missing := mask.(*array.Dense).Bools()
	alleles := gt.Ints()

	out := make([]float64, rows)
	for r := range out {
		var hom0, het, hom1 int64
		biallelic := true
		for s := 0; s < samples && biallelic; s++ {
			i := (r*samples + s) * 2
			if missing[i] || missing[i+1] {
				continue
			}
			switch a, b := alleles[i], alleles[i+1]; {
			case a == 0 && b == 0:
				hom0++
			case a == 1 && b == 1:
				hom1++
			case a+b == 1 && a*b == 0:
				het++
			default:
				biallelic = false
			}
		}
		if !biallelic || hom0+het+hom1 == 0 {
			out[r] = math.NaN()
			continue
		}
		out[r] = hwe.Exact(hom0, het, hom1)
	}
	return array.NewFloats(array.Float64, array.Shape{rows}, out)
}
