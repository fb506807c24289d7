package project

import "context"

// memo holds one lazily loaded value for the lifetime of a run. A failed load
// is not cached.
type memo[T any] struct {
	value  T
	loaded bool
}

func (m *memo[T]) get(ctx context.Context, load func(context.Context) (T, error)) (T, error) {
	if m.loaded {
		return m.value, nil
	}
	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	m.value, m.loaded = v, true
	return v, nil
}

func (m *memo[T]) reset() {
	var zero T
	m.value, m.loaded = zero, false
}
