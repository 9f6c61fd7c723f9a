// Package registry is a concurrent name-to-value cache.
package registry

import "github.com/alphadose/haxmap"

// Registry caches values by name. It is safe for concurrent use.
type Registry[T any] struct {
	values *haxmap.Map[string, T]
}

func New[T any]() *Registry[T] {
	return &Registry[T]{
		values: haxmap.New[string, T](),
	}
}

// GetOrCreate returns the cached value for name or stores the one create
// builds. When two callers race, both get the value stored first. Failed
// creations are not cached.
func (r *Registry[T]) GetOrCreate(name string, create func() (T, error)) (T, error) {
	if v, ok := r.values.Get(name); ok {
		return v, nil
	}
	v, err := create()
	if err != nil {
		var zero T
		return zero, err
	}
	actual, _ := r.values.GetOrSet(name, v)
	return actual, nil
}
