package catalog

import "iter"

// OrderedMap is a map that iterates in first-insertion order. Setting an
// existing key replaces its value but keeps its position. The zero value is
// ready to use.
type OrderedMap[K comparable, V any] struct {
	keys   []K
	values []V
	index  map[K]int
}

// NewOrderedMap returns an empty map.
func NewOrderedMap[K comparable, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{index: make(map[K]int)}
}

// Set stores v under k.
func (m *OrderedMap[K, V]) Set(k K, v V) {
	if m.index == nil {
		m.index = make(map[K]int)
	}
	if i, ok := m.index[k]; ok {
		m.values[i] = v
		return
	}
	m.index[k] = len(m.keys)
	m.keys = append(m.keys, k)
	m.values = append(m.values, v)
}

// Get returns the value stored under k.
func (m *OrderedMap[K, V]) Get(k K) (V, bool) {
	i, ok := m.index[k]
	if !ok {
		var zero V
		return zero, false
	}
	return m.values[i], true
}

// Has reports whether k is present.
func (m *OrderedMap[K, V]) Has(k K) bool {
	_, ok := m.index[k]
	return ok
}

// Len returns the number of keys.
func (m *OrderedMap[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns a copy of the keys in order.
func (m *OrderedMap[K, V]) Keys() []K {
	out := make([]K, len(m.keys))
	copy(out, m.keys)
	return out
}

// Values returns a copy of the values in key order.
func (m *OrderedMap[K, V]) Values() []V {
	out := make([]V, len(m.values))
	copy(out, m.values)
	return out
}

// All iterates over the entries in order.
func (m *OrderedMap[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if m == nil {
			return
		}
		for i, k := range m.keys {
			if !yield(k, m.values[i]) {
				return
			}
		}
	}
}
