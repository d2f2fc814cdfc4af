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
package codec

// v1 schema. DO NOT CHANGE after release (spec.md 4.3): a new field requires
// a new version and a forward-migration path in Loader, not an edit here.

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/launix-de/boardmesh/internal/board"
)

const V1 uint64 = 1

const (
	eventTagNewImage uint8 = 0
)

const (
	textureTagNew      uint8 = 0
	textureTagExisting uint8 = 1
)

const (
	objectTagImage uint8 = 0
	objectTagLine  uint8 = 1
)

func writeU64(w *bytes.Buffer, v uint64) { binary.Write(w, binary.LittleEndian, v) }
func writeU32(w *bytes.Buffer, v uint32) { binary.Write(w, binary.LittleEndian, v) }
func writeU8(w *bytes.Buffer, v uint8)   { w.WriteByte(v) }
func writeF64(w *bytes.Buffer, v float64) {
	binary.Write(w, binary.LittleEndian, math.Float64bits(v))
}
func writeBytes(w *bytes.Buffer, b []byte) {
	writeU32(w, uint32(len(b)))
	w.Write(b)
}

type reader struct {
	r   *bytes.Reader
	err error
}

func (r *reader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	b, err := r.r.ReadByte()
	if err != nil {
		r.err = err
	}
	return b
}
func (r *reader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	var v uint32
	r.err = binary.Read(r.r, binary.LittleEndian, &v)
	return v
}
func (r *reader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	var v uint64
	r.err = binary.Read(r.r, binary.LittleEndian, &v)
	return v
}
func (r *reader) f64() float64 {
	bits := r.u64()
	return math.Float64frombits(bits)
}
func (r *reader) bytes() []byte {
	n := r.u32()
	if r.err != nil {
		return nil
	}
	b := make([]byte, n)
	_, r.err = r.r.Read(b)
	return b
}

// EncodeEventV1 serialises a board.Event in the frozen v1 wire format.
func EncodeEventV1(e board.Event) []byte {
	var w bytes.Buffer
	switch e.Kind {
	case board.EventNewImage:
		writeU8(&w, eventTagNewImage)
		writeU64(&w, e.ID)
		writeF64(&w, e.X)
		writeF64(&w, e.Y)
		writeTextureV1(&w, e.Texture)
	default:
		panic(fmt.Sprintf("codec: v1 cannot encode event kind %d", e.Kind))
	}
	return w.Bytes()
}

func writeTextureV1(w *bytes.Buffer, t board.Texture[uint64]) {
	if t.Existing {
		writeU8(w, textureTagExisting)
		writeU64(w, t.ID)
		return
	}
	writeU8(w, textureTagNew)
	writeU64(w, t.ID)
	writeBytes(w, t.Data)
}

func readTextureV1(r *reader) board.Texture[uint64] {
	tag := r.u8()
	switch tag {
	case textureTagNew:
		id := r.u64()
		data := r.bytes()
		return board.NewTexture(id, data)
	case textureTagExisting:
		id := r.u64()
		return board.ExistingTexture(id)
	default:
		r.err = fmt.Errorf("codec: v1 unknown texture tag %d", tag)
		return board.Texture[uint64]{}
	}
}

// DecodeEventV1 parses the frozen v1 event wire format.
func DecodeEventV1(data []byte) (board.Event, error) {
	r := &reader{r: bytes.NewReader(data)}
	tag := r.u8()
	switch tag {
	case eventTagNewImage:
		id := r.u64()
		x := r.f64()
		y := r.f64()
		tex := readTextureV1(r)
		if r.err != nil {
			return board.Event{}, r.err
		}
		return board.NewImageEvent(id, x, y, tex), nil
	default:
		return board.Event{}, fmt.Errorf("codec: v1 unknown event tag %d", tag)
	}
}

// EncodeSnapshotV1 serialises a full board state in the frozen v1 snapshot
// wire format: textures first, then objects, both walked in ascending id
// order (the board's B-tree iteration order) so the encoding is byte-stable.
func EncodeSnapshotV1(state board.Board[uint64]) []byte {
	var w bytes.Buffer
	writeU64(&w, uint64(state.Textures.Len()))
	state.Textures.Ascend(func(id uint64, data []byte) bool {
		writeU64(&w, id)
		writeBytes(&w, data)
		return true
	})
	writeU64(&w, uint64(state.Objects.Len()))
	state.Objects.Ascend(func(id uint64, obj board.BoardObject[uint64]) bool {
		writeU64(&w, id)
		switch obj.Kind {
		case board.KindImage:
			writeU8(&w, objectTagImage)
			writeF64(&w, obj.Image.X)
			writeF64(&w, obj.Image.Y)
			writeU64(&w, obj.Image.Texture)
		case board.KindLine:
			writeU8(&w, objectTagLine)
		}
		return true
	})
	return w.Bytes()
}

// DecodeSnapshotV1 parses the frozen v1 snapshot wire format.
func DecodeSnapshotV1(data []byte) (board.Board[uint64], error) {
	state := board.NewGlobalState()
	r := &reader{r: bytes.NewReader(data)}

	numTextures := r.u64()
	for i := uint64(0); i < numTextures && r.err == nil; i++ {
		id := r.u64()
		data := r.bytes()
		state.Textures.Set(id, data)
	}

	numObjects := r.u64()
	for i := uint64(0); i < numObjects && r.err == nil; i++ {
		id := r.u64()
		tag := r.u8()
		switch tag {
		case objectTagImage:
			x := r.f64()
			y := r.f64()
			texID := r.u64()
			state.Objects.Set(id, board.ImageObject(board.Image[uint64]{ID: id, X: x, Y: y, Texture: texID}))
		case objectTagLine:
			state.Objects.Set(id, board.LineObject[uint64]())
		default:
			r.err = fmt.Errorf("codec: v1 unknown object tag %d", tag)
		}
	}

	if r.err != nil {
		return board.Board[uint64]{}, r.err
	}
	return state, nil
}

// ApplyEventV1ToState mutates state in place the way BoardV1::apply_event
// does in the original implementation: texture bytes (if New) are inserted
// first, then the image object is inserted referencing the resolved
// texture id.
func ApplyEventV1ToState(state board.Board[uint64], e board.Event) {
	switch e.Kind {
	case board.EventNewImage:
		textureID := e.Texture.GetID()
		if !e.Texture.Existing {
			state.Textures.Set(textureID, e.Texture.Data)
		}
		state.Objects.Set(e.ID, board.ImageObject(board.Image[uint64]{
			ID: e.ID, X: e.X, Y: e.Y, Texture: textureID,
		}))
	}
}
