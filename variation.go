// Package variation holds genotype matrices and their per-variant annotations
// in one container whose fields share the variant axis.
package variation

import (
	"context"
	"fmt"

	"github.com/carbocation/variation/array"
)

// Variations is a set of fields indexed by name. Every field has the variant
// axis first; per-call fields have the sample axis second. All fields share
// one backend.
type Variations struct {
	samples     []string
	sampleIndex map[string]int
	samplesSet  bool

	fields   map[string]array.Array
	order    []string
	metadata map[string]any
	backend  array.Backend
}

// Option configures a container built by New.
type Option func(*Variations) error

// WithSamples sets the sample names, as SetSamples.
func WithSamples(samples []string) Option {
	return func(v *Variations) error { return v.SetSamples(samples) }
}

// WithMetadata copies md into the container metadata.
func WithMetadata(md map[string]any) Option {
	return func(v *Variations) error {
		for k, val := range md {
			v.metadata[k] = val
		}
		return nil
	}
}

// WithBackend fixes the backend before any field is assigned.
func WithBackend(be array.Backend) Option {
	return func(v *Variations) error {
		if be != array.Eager && be != array.Lazy {
			return fmt.Errorf("%w: %v", ErrUnsupportedBackend, be)
		}
		v.backend = be
		return nil
	}
}

// New returns an empty container configured by opts.
func New(opts ...Option) (*Variations, error) {
	v := &Variations{
		fields:   make(map[string]array.Array),
		metadata: make(map[string]any),
	}
	for _, o := range opts {
		if err := o(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// SetSamples may be called once.
func (v *Variations) SetSamples(samples []string) error {
	if v.samplesSet {
		return ErrAlreadyInitialized
	}
	index := make(map[string]int, len(samples))
	for i, s := range samples {
		if _, dup := index[s]; dup {
			return fmt.Errorf("duplicated sample %q", s)
		}
		index[s] = i
	}
	v.samples = append([]string(nil), samples...)
	v.sampleIndex = index
	v.samplesSet = true
	return nil
}

// Samples returns a copy of the sample names in column order.
func (v *Variations) Samples() []string {
	return append([]string(nil), v.samples...)
}

// NumSamples is the length of the sample axis.
func (v *Variations) NumSamples() int { return len(v.samples) }

// SampleIndex returns the column of sample name.
func (v *Variations) SampleIndex(name string) (int, bool) {
	i, ok := v.sampleIndex[name]
	return i, ok
}

// Metadata is the free-form metadata of the container. Derived containers
// hold a copy.
func (v *Variations) Metadata() map[string]any { return v.metadata }

// Backend returns the backend of the fields, Eager for an empty container.
func (v *Variations) Backend() array.Backend {
	if v.backend == nil {
		return array.Eager
	}
	return v.backend
}

// Set assigns a field, enforcing the sample and variant axes.
func (v *Variations) Set(name string, a array.Array) error {
	be, err := array.BackendOf(a)
	if err != nil {
		return fmt.Errorf("field %s: %w", name, err)
	}
	if v.backend != nil && be != v.backend {
		return fmt.Errorf("%w: field %s is %s, the container is %s", ErrUnsupportedBackend, name, be.Name(), v.backend.Name())
	}
	shape := a.Shape()

	if IsPerCall(name) {
		if !v.samplesSet {
			return fmt.Errorf("field %s: %w", name, ErrSamplesNotSet)
		}
		actual := array.Unknown
		if shape.NDim() >= 2 {
			actual = shape[1]
		}
		if actual != len(v.samples) {
			return &ShapeMismatchError{Field: name, Axis: 1, Expected: len(v.samples), Actual: actual, Reason: "not fit with num samples"}
		}
	}

	if shape.NDim() == 0 {
		return &ShapeMismatchError{Field: name, Axis: 0, Expected: 1, Actual: 0, Reason: "has no variant axis"}
	}
	for _, other := range v.order {
		if other == name {
			continue
		}
		if want := v.fields[other].Shape()[0]; want != shape[0] {
			return &ShapeMismatchError{Field: name, Axis: 0, Expected: want, Actual: shape[0], Reason: "introduced matrix shape does not match"}
		}
		break
	}

	if _, ok := v.fields[name]; !ok {
		v.order = append(v.order, name)
	}
	v.fields[name] = a
	v.backend = be
	return nil
}

// Get returns the field called name.
func (v *Variations) Get(name string) (array.Array, bool) {
	a, ok := v.fields[name]
	return a, ok
}

// Field is Get with ErrMissingField for absent names.
func (v *Variations) Field(name string) (array.Array, error) {
	a, ok := v.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	return a, nil
}

// Fields returns the field names in assignment order.
func (v *Variations) Fields() []string {
	return append([]string(nil), v.order...)
}

// NumVariations is the length of the variant axis, read from the genotypes
// when present. It fails with ErrNotMaterialized for unresolved selections.
func (v *Variations) NumVariations() (int, error) {
	if len(v.order) == 0 {
		return 0, nil
	}
	a, ok := v.fields[GT]
	if !ok {
		a = v.fields[v.order[0]]
	}
	return a.Shape().Dim(0)
}

// derive returns an empty container with the same samples, metadata and
// backend.
func (v *Variations) derive(samples []string) *Variations {
	out := &Variations{
		fields:   make(map[string]array.Array, len(v.fields)),
		metadata: make(map[string]any, len(v.metadata)),
		backend:  v.backend,
	}
	for k, val := range v.metadata {
		out.metadata[k] = val
	}
	if v.samplesSet {
		_ = out.SetSamples(samples)
	}
	return out
}

func (v *Variations) put(name string, a array.Array) {
	v.order = append(v.order, name)
	v.fields[name] = a
}

// Replace returns a copy of v where field name holds a. v is not modified.
func (v *Variations) Replace(name string, a array.Array) (*Variations, error) {
	out := v.derive(v.samples)
	for _, n := range v.order {
		out.put(n, v.fields[n])
	}
	if err := out.Set(name, a); err != nil {
		return nil, err
	}
	return out, nil
}

// SelectVariants keeps the variants where the boolean vector mask holds.
func (v *Variations) SelectVariants(mask array.Array) (*Variations, error) {
	be := v.Backend()
	out := v.derive(v.samples)
	for _, name := range v.order {
		a, err := be.Compress(v.fields[name], mask)
		if err != nil {
			return nil, fmt.Errorf("selecting variants of %s: %w", name, err)
		}
		out.put(name, a)
	}
	return out, nil
}

// SelectSamples keeps the sample columns idx, in that order.
func (v *Variations) SelectSamples(idx []int) (*Variations, error) {
	samples := make([]string, len(idx))
	for i, j := range idx {
		if j < 0 || j >= len(v.samples) {
			return nil, fmt.Errorf("%w: column %d of %d", ErrUnknownSample, j, len(v.samples))
		}
		samples[i] = v.samples[j]
	}
	be := v.Backend()
	out := v.derive(samples)
	for _, name := range v.order {
		a := v.fields[name]
		if IsPerCall(name) {
			var err error
			if a, err = be.Take(a, 1, idx); err != nil {
				return nil, fmt.Errorf("selecting samples of %s: %w", name, err)
			}
		}
		out.put(name, a)
	}
	return out, nil
}

// ToMemory materializes every field in one pass and returns an eager copy.
func (v *Variations) ToMemory(ctx context.Context, opts ...array.Option) (*Variations, error) {
	arrays := make([]array.Array, len(v.order))
	for i, name := range v.order {
		arrays[i] = v.fields[name]
	}
	ds, err := array.Materialize(ctx, arrays, opts...)
	if err != nil {
		return nil, err
	}
	out := v.derive(v.samples)
	out.backend = array.Eager
	for i, name := range v.order {
		out.put(name, ds[i])
	}
	return out, nil
}
