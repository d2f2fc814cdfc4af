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

// bimap keeps an ObjectIdentifier <-> uint64 (graphics-backend handle) pair
// in sync in both directions, so a client can both look up "what handle does
// this object have" and "which object does this handle belong to" (spec.md
// 4.9: the client's texture_internal_ids map needs both directions).
type bimap struct {
	left  map[ObjectIdentifier]uint64
	right map[uint64]ObjectIdentifier
}

func newBimap() *bimap {
	return &bimap{left: make(map[ObjectIdentifier]uint64), right: make(map[uint64]ObjectIdentifier)}
}

func (b *bimap) insert(l ObjectIdentifier, r uint64) {
	b.left[l] = r
	b.right[r] = l
}

func (b *bimap) getRight(l ObjectIdentifier) (uint64, bool) {
	r, ok := b.left[l]
	return r, ok
}

func (b *bimap) getLeft(r uint64) (ObjectIdentifier, bool) {
	l, ok := b.right[r]
	return l, ok
}

func (b *bimap) removeByLeft(l ObjectIdentifier) (uint64, bool) {
	r, ok := b.left[l]
	if !ok {
		return 0, false
	}
	delete(b.left, l)
	delete(b.right, r)
	return r, true
}

// rekeyLeft moves the pair keyed by oldLeft so it is keyed by newLeft
// instead, leaving the right-hand (graphics handle) value untouched.
func (b *bimap) rekeyLeft(oldLeft, newLeft ObjectIdentifier) {
	r, ok := b.left[oldLeft]
	if !ok {
		panic("bimap: rekeyLeft of unknown key " + oldLeft.String())
	}
	delete(b.left, oldLeft)
	b.left[newLeft] = r
	b.right[r] = newLeft
}
