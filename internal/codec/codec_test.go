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

import (
	"testing"

	"github.com/launix-de/boardmesh/internal/board"
)

func TestEventRoundtripNewImageWithNewTexture(t *testing.T) {
	event := board.NewImageEvent(7, 1.5, 2.5, board.NewTexture(uint64(3), []byte("raw pixels")))
	data := EncodeEventV1(event)

	decoded, err := DecodeEventV1(data)
	if err != nil {
		t.Fatalf("DecodeEventV1: %v", err)
	}
	if decoded.ID != event.ID || decoded.X != event.X || decoded.Y != event.Y {
		t.Fatalf("decoded event = %+v, want %+v", decoded, event)
	}
	if decoded.Texture.Existing || decoded.Texture.GetID() != 3 || string(decoded.Texture.Data) != "raw pixels" {
		t.Fatalf("decoded texture = %+v, want New(3, raw pixels)", decoded.Texture)
	}
}

func TestEventRoundtripNewImageWithExistingTexture(t *testing.T) {
	event := board.NewImageEvent(9, 0, 0, board.ExistingTexture(uint64(42)))
	decoded, err := DecodeEventV1(EncodeEventV1(event))
	if err != nil {
		t.Fatalf("DecodeEventV1: %v", err)
	}
	if !decoded.Texture.Existing || decoded.Texture.GetID() != 42 {
		t.Fatalf("decoded texture = %+v, want Existing(42)", decoded.Texture)
	}
}

func TestDecodeEventUnknownTagErrors(t *testing.T) {
	if _, err := DecodeEventV1([]byte{0xff}); err == nil {
		t.Fatalf("expected an error decoding an unknown event tag")
	}
}

func TestDecodeTextureUnknownTagErrors(t *testing.T) {
	// tag 0x00 (NewImage), id/x/y, then a texture tag of 0xff
	data := append([]byte{eventTagNewImage}, make([]byte, 8+8+8)...)
	data = append(data, 0xff)
	if _, err := DecodeEventV1(data); err == nil {
		t.Fatalf("expected an error decoding an unknown texture tag")
	}
}

func TestSnapshotRoundtrip(t *testing.T) {
	state := board.NewGlobalState()
	state.Textures.Set(uint64(1), []byte("a"))
	state.Textures.Set(uint64(2), []byte("bb"))
	state.Objects.Set(uint64(10), board.ImageObject(board.Image[uint64]{ID: 10, X: 1, Y: 2, Texture: 1}))
	state.Objects.Set(uint64(11), board.LineObject[uint64]())

	data := EncodeSnapshotV1(state)
	decoded, err := DecodeSnapshotV1(data)
	if err != nil {
		t.Fatalf("DecodeSnapshotV1: %v", err)
	}

	if decoded.Textures.Len() != 2 || decoded.Objects.Len() != 2 {
		t.Fatalf("decoded snapshot sizes = %d textures, %d objects, want 2 and 2",
			decoded.Textures.Len(), decoded.Objects.Len())
	}
	tex1, ok := decoded.Textures.Get(1)
	if !ok || string(tex1) != "a" {
		t.Fatalf("texture 1 = %q, want %q", tex1, "a")
	}
	obj10, ok := decoded.Objects.Get(10)
	if !ok || obj10.Kind != board.KindImage || obj10.Image.X != 1 || obj10.Image.Texture != 1 {
		t.Fatalf("object 10 = %+v, unexpected", obj10)
	}
	obj11, ok := decoded.Objects.Get(11)
	if !ok || obj11.Kind != board.KindLine {
		t.Fatalf("object 11 should round-trip as a Line placeholder, got %+v", obj11)
	}
}

func TestDecodeSnapshotUnknownObjectTagErrors(t *testing.T) {
	var buf []byte
	buf = append(buf, 0, 0, 0, 0, 0, 0, 0, 0) // zero textures
	buf = append(buf, 1, 0, 0, 0, 0, 0, 0, 0) // one object
	buf = append(buf, 5, 0, 0, 0, 0, 0, 0, 0) // object id 5
	buf = append(buf, 0xff)                  // unknown object tag
	if _, err := DecodeSnapshotV1(buf); err == nil {
		t.Fatalf("expected an error decoding an unknown object tag")
	}
}

func TestLoaderAppliesStateThenEvents(t *testing.T) {
	loader := NewLoader()

	snap := board.NewGlobalState()
	snap.Textures.Set(uint64(1), []byte("x"))
	if err := loader.LoadState(V1, EncodeSnapshotV1(snap)); err != nil {
		t.Fatalf("LoadState: %v", err)
	}

	event := board.NewImageEvent(2, 1, 1, board.ExistingTexture(uint64(1)))
	if err := loader.LoadEvent(V1, EncodeEventV1(event)); err != nil {
		t.Fatalf("LoadEvent: %v", err)
	}

	state := loader.Board()
	if state.Objects.Len() != 1 {
		t.Fatalf("expected one object after replaying one event, got %d", state.Objects.Len())
	}
	if state.Textures.Len() != 1 {
		t.Fatalf("expected the snapshot's texture to survive, got %d", state.Textures.Len())
	}
}

func TestLoaderRejectsUnsupportedVersion(t *testing.T) {
	loader := NewLoader()
	err := loader.LoadEvent(99, nil)
	if _, ok := err.(ErrUnsupportedVersion); !ok {
		t.Fatalf("LoadEvent with unknown version: got %v, want ErrUnsupportedVersion", err)
	}
}
