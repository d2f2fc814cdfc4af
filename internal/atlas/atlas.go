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

// Package atlas shelf-packs pasted images into fixed-size GPU texture
// atlases on the client, so the renderer can batch many small pastes into a
// handful of draw calls (spec.md 4.4).
package atlas

// AtlasSize is the fixed width/height of every atlas texture.
const AtlasSize = 2048

// BoundingBox is an immutable placement of one image inside one atlas.
type BoundingBox struct {
	AtlasID       int
	X, Y          uint32
	Width, Height uint32
	Rotated       bool
}

type row struct {
	usage uint32
}

// singleAtlas packs rectangles into AtlasSize/R rows of height R, each
// tracking a running horizontal usage counter (spec.md 4.4).
type singleAtlas struct {
	id       int
	rowSize  uint32
	rows     []row
}

func newSingleAtlas(id int, rowSize uint32) *singleAtlas {
	return &singleAtlas{
		id:      id,
		rowSize: rowSize,
		rows:    make([]row, AtlasSize/rowSize),
	}
}

// admit tries to place a normalised (w <= h) image into this atlas,
// following the three admission rules of spec.md 4.4.
func (a *singleAtlas) admit(w, h uint32) (BoundingBox, bool) {
	if h > a.rowSize {
		return BoundingBox{}, false
	}
	if h > 16 && h <= a.rowSize/2 {
		// fits, but would waste >= half a row: prefer a smaller-row atlas.
		return BoundingBox{}, false
	}
	for i := range a.rows {
		if a.rows[i].usage+w <= AtlasSize {
			x := a.rows[i].usage
			y := uint32(i) * a.rowSize
			a.rows[i].usage += w
			return BoundingBox{AtlasID: a.id, X: x, Y: y, Width: w, Height: h}, true
		}
	}
	return BoundingBox{}, false
}

// Allocator owns every atlas created so far for one client session and
// places new images across them (spec.md 4.4 "Global admission").
type Allocator struct {
	atlases []*singleAtlas
}

func NewAllocator() *Allocator {
	return &Allocator{}
}

// rowSizeFor returns the smallest power of two >= 32 that is >= v.
func rowSizeFor(v uint32) uint32 {
	r := uint32(32)
	for r < v {
		r *= 2
	}
	if r > AtlasSize {
		r = AtlasSize
	}
	return r
}

// Add normalises (width, height) so width <= height (remembering Rotated),
// tries every existing atlas in order, and creates a new one sized for this
// image if none accepts it. newAtlas reports whether a new atlas had to be
// created, so the client can allocate GPU resources for it.
func (a *Allocator) Add(width, height uint32) (box BoundingBox, newAtlas bool) {
	w, h := width, height
	rotated := false
	if w > h {
		w, h = h, w
		rotated = true
	}

	for _, atl := range a.atlases {
		if bb, ok := atl.admit(w, h); ok {
			bb.Rotated = rotated
			return bb, false
		}
	}

	rowSize := rowSizeFor(h)
	atl := newSingleAtlas(len(a.atlases), rowSize)
	a.atlases = append(a.atlases, atl)
	bb, ok := atl.admit(w, h)
	if !ok {
		// an image taller than AtlasSize cannot be packed at all; the
		// allocator has no recovery for this, matching spec.md's
		// "row size ... at least 32" ceiling of AtlasSize itself.
		panic("atlas: image does not fit even a freshly sized atlas")
	}
	bb.Rotated = rotated
	return bb, true
}

func (a *Allocator) NumAtlases() int {
	return len(a.atlases)
}
