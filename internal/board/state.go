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

// Board is the shape shared by the server-authoritative state (Id = uint64)
// and a client's mirror (Id = ObjectIdentifier, since a just-pasted object
// is keyed by a Local id until the server confirms it).
//
// Invariants (spec.md 3):
//  1. every Image.Texture is a key of Textures
//  2. all Textures values are pairwise distinct by content
//  3. (GlobalBoard only) ids are assigned from a monotonic counter starting at 1
type Board[Id comparable] struct {
	Objects  *OrderedMap[Id, BoardObject[Id]]
	Textures *OrderedMap[Id, []byte]
}

func NewGlobalState() Board[uint64] {
	return Board[uint64]{Objects: NewUint64Map[BoardObject[uint64]](), Textures: NewUint64Map[[]byte]()}
}

func NewLocalState() Board[ObjectIdentifier] {
	return Board[ObjectIdentifier]{
		Objects:  NewObjectIdentifierMap[BoardObject[ObjectIdentifier]](),
		Textures: NewObjectIdentifierMap[[]byte](),
	}
}

// Clone deep-copies the object/texture maps (the underlying B-trees are
// copy-on-write, so Clone is cheap and the result is safe to mutate
// independently of the source — used by GlobalBoard.GetState for snapshots
// and late-joiner sync).
func (b Board[Id]) Clone() Board[Id] {
	return Board[Id]{Objects: b.Objects.Clone(), Textures: b.Textures.Clone()}
}
