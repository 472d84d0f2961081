package dynamock

import (
	"fmt"

	"github.com/bxcodec/faker/v3"
)

// FixtureOption is a functional option applied to a generated fixture.
type FixtureOption[T any] func(*T)

// FixtureBuilder generates values of a mapped type filled with random data.
type FixtureBuilder[T any] struct {
	opts []FixtureOption[T]
}

// NewFixture creates a fixture builder that applies opts after generating each value.
func NewFixture[T any](opts ...FixtureOption[T]) *FixtureBuilder[T] {
	return &FixtureBuilder[T]{opts: opts}
}

// With returns a builder that also applies opts.
func (b *FixtureBuilder[T]) With(opts ...FixtureOption[T]) *FixtureBuilder[T] {
	all := make([]FixtureOption[T], 0, len(b.opts)+len(opts))
	all = append(all, b.opts...)
	return &FixtureBuilder[T]{opts: append(all, opts...)}
}

// Build generates one value.
func (b *FixtureBuilder[T]) Build() (*T, error) {
	v := new(T)
	if err := faker.FakeData(v); err != nil {
		return nil, fmt.Errorf("failed to generate %T: %w", v, err)
	}
	for _, opt := range b.opts {
		opt(v)
	}
	return v, nil
}

// BuildN generates n values.
func (b *FixtureBuilder[T]) BuildN(n int) ([]*T, error) {
	out := make([]*T, 0, n)
	for i := 0; i < n; i++ {
		v, err := b.Build()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// MustBuild is like Build but panics on error.
func (b *FixtureBuilder[T]) MustBuild() *T {
	v, err := b.Build()
	if err != nil {
		panic(err)
	}
	return v
}

// Values returns fixtures as a slice of any, the form accepted by [Seeder.Seed].
func Values[T any](fixtures []*T) []any {
	out := make([]any, len(fixtures))
	for i, v := range fixtures {
		out[i] = v
	}
	return out
}
