package stats

import (
	"context"

	"github.com/carbocation/variation"
	"github.com/carbocation/variation/array"
)

// DiversityParams are the thresholds of CalcDiversities. MinCallDPForHetCall
// applies to the observed heterozygosity when the container has depths.
type DiversityParams struct {
	MaxAlleles           int
	MinNumGenotypes      int
	MinCallDPForHetCall  int
	PolymorphicThreshold float64
}

// Diversities are scalar arrays. For deferred containers they are computed
// together by Compute.
type Diversities struct {
	NumVariableVars    array.Array
	NumPolymorphicVars array.Array
	ExpHet             array.Array
	ObsHet             array.Array
}

// DiversitySummary is the computed form of Diversities.
type DiversitySummary struct {
	NumVariableVars    int64   `yaml:"num_variable_vars"`
	NumPolymorphicVars int64   `yaml:"num_polymorphic_vars"`
	ExpHet             float64 `yaml:"exp_het"`
	ObsHet             float64 `yaml:"obs_het"`
}

// CalcDiversities counts the variable variants (more than one observed
// allele) and the polymorphic ones (major allele frequency at most
// PolymorphicThreshold), and averages the expected and observed
// heterozygosity ignoring NaN.
func CalcDiversities(v *variation.Variations, p DiversityParams) (*Diversities, error) {
	c := &calc{be: v.Backend()}
	al := c.alleles(v, p.MaxAlleles)

	observed := c.reduce(array.CountNonzero, c.binary(array.Greater, al.counts, array.ScalarInt(0)), 1)
	variable := c.reduce(array.CountNonzero, c.binary(array.Greater, observed, array.ScalarInt(1)), array.AxisAll)

	maf := c.nanWhere(c.below(al.calledGTs, p.MinNumGenotypes), c.binary(array.Divide, al.major, al.called))
	polymorphic := c.reduce(array.CountNonzero, c.binary(array.LessEqual, maf, array.ScalarFloat(p.PolymorphicThreshold)), array.AxisAll)

	expHet := c.nanMean(c.expectedHet(al, p.MinNumGenotypes), array.AxisAll)
	if c.err != nil {
		return nil, c.err
	}

	var opts []HetOption
	if _, ok := v.Get(variation.DP); ok {
		opts = append(opts, MinCallDP(p.MinCallDPForHetCall))
	}
	obsHet, err := CalcObsHet(v, p.MinNumGenotypes, opts...)
	if err != nil {
		return nil, err
	}
	obsHet = c.nanMean(obsHet, array.AxisAll)
	if c.err != nil {
		return nil, c.err
	}
	return &Diversities{
		NumVariableVars:    variable,
		NumPolymorphicVars: polymorphic,
		ExpHet:             expHet,
		ObsHet:             obsHet,
	}, nil
}

// Arrays returns the diversities by their summary names.
func (d *Diversities) Arrays() map[string]array.Array {
	return map[string]array.Array{
		"num_variable_vars":    d.NumVariableVars,
		"num_polymorphic_vars": d.NumPolymorphicVars,
		"exp_het":              d.ExpHet,
		"obs_het":              d.ObsHet,
	}
}

// Compute materializes the diversities in one pass.
func (d *Diversities) Compute(ctx context.Context, opts ...array.Option) (DiversitySummary, error) {
	ds, err := array.Materialize(ctx, []array.Array{d.NumVariableVars, d.NumPolymorphicVars, d.ExpHet, d.ObsHet}, opts...)
	if err != nil {
		return DiversitySummary{}, err
	}
	return DiversitySummary{
		NumVariableVars:    ds[0].Int(),
		NumPolymorphicVars: ds[1].Int(),
		ExpHet:             ds[2].Float(),
		ObsHet:             ds[3].Float(),
	}, nil
}
