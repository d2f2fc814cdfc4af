/*
Copyright (C) 2023  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package board

import "github.com/google/btree"

// OrderedMap is a K -> V map backed by a B-tree rather than a plain Go map,
// so iterating a Board for snapshot encoding always walks keys in a fixed
// order: the codec's byte-stable encoding (spec.md 4.3) falls out of the
// iteration order instead of requiring an explicit sort at every snapshot.
type OrderedMap[K comparable, V any] struct {
	t *btree.BTreeG[entry[K, V]]
}

type entry[K comparable, V any] struct {
	key K
	val V
}

// NewOrderedMap builds an OrderedMap ordered by less(a.key, b.key).
func NewOrderedMap[K comparable, V any](less func(a, b K) bool) *OrderedMap[K, V] {
	lessEntry := func(a, b entry[K, V]) bool { return less(a.key, b.key) }
	return &OrderedMap[K, V]{t: btree.NewG(32, lessEntry)}
}

func NewUint64Map[V any]() *OrderedMap[uint64, V] {
	return NewOrderedMap[uint64, V](func(a, b uint64) bool { return a < b })
}

func NewObjectIdentifierMap[V any]() *OrderedMap[ObjectIdentifier, V] {
	return NewOrderedMap[ObjectIdentifier, V](func(a, b ObjectIdentifier) bool {
		if a.Namespace != b.Namespace {
			return a.Namespace < b.Namespace
		}
		return a.ID < b.ID
	})
}

func (m *OrderedMap[K, V]) Set(key K, v V) {
	m.t.ReplaceOrInsert(entry[K, V]{key: key, val: v})
}

func (m *OrderedMap[K, V]) Get(key K) (V, bool) {
	e, ok := m.t.Get(entry[K, V]{key: key})
	return e.val, ok
}

func (m *OrderedMap[K, V]) Delete(key K) (V, bool) {
	e, ok := m.t.Delete(entry[K, V]{key: key})
	return e.val, ok
}

func (m *OrderedMap[K, V]) Len() int {
	if m.t == nil {
		return 0
	}
	return m.t.Len()
}

// Ascend visits every entry in key order. Stop early by returning false.
func (m *OrderedMap[K, V]) Ascend(fn func(key K, v V) bool) {
	if m.t == nil {
		return
	}
	m.t.Ascend(func(e entry[K, V]) bool {
		return fn(e.key, e.val)
	})
}

func (m *OrderedMap[K, V]) Clone() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{t: m.t.Clone()}
}
