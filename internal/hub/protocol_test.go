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
package hub

import (
	"encoding/binary"
	"testing"

	"github.com/launix-de/boardmesh/internal/board"
)

func TestActionRoundtripNewTexture(t *testing.T) {
	action := board.Action{
		X: 1.5, Y: -2.5,
		LocalID: 7,
		Texture: board.NewTexture(board.LocalID(3), []byte("image bytes")),
	}
	wire := encodeAction(action)

	decoded, err := decodeBoardAction(wire)
	if err != nil {
		t.Fatalf("decodeBoardAction: %v", err)
	}
	if decoded.X != action.X || decoded.Y != action.Y || decoded.LocalID != action.LocalID {
		t.Fatalf("decoded action = %+v, want %+v", decoded, action)
	}
	if decoded.Texture.Existing || decoded.Texture.ID != action.Texture.ID {
		t.Fatalf("decoded texture = %+v, want %+v", decoded.Texture, action.Texture)
	}
	if string(decoded.Texture.Data) != string(action.Texture.Data) {
		t.Fatalf("decoded texture data = %q, want %q", decoded.Texture.Data, action.Texture.Data)
	}
}

func TestActionRoundtripExistingTexture(t *testing.T) {
	action := board.Action{
		X: 0, Y: 0,
		LocalID: 1,
		Texture: board.ExistingTexture(board.GlobalID(9)),
	}
	decoded, err := decodeBoardAction(encodeAction(action))
	if err != nil {
		t.Fatalf("decodeBoardAction: %v", err)
	}
	if !decoded.Texture.Existing || decoded.Texture.ID != board.GlobalID(9) {
		t.Fatalf("decoded texture = %+v, want Existing(Global(9))", decoded.Texture)
	}
}

func TestDecodeBoardActionRejectsWrongTag(t *testing.T) {
	if _, err := decodeBoardAction([]byte{0xff, 0, 0}); err == nil {
		t.Fatalf("expected an error for a non-BoardAction message tag")
	}
}

func TestDecodeBoardActionRejectsTruncatedPayload(t *testing.T) {
	full := encodeAction(board.Action{X: 1, Y: 1, LocalID: 1, Texture: board.NewTexture(board.LocalID(1), []byte("data"))})
	truncated := full[:len(full)-3]
	if _, err := decodeBoardAction(truncated); err == nil {
		t.Fatalf("expected an error decoding a truncated action")
	}
}

func TestEncodeClientListRoundtripsTag(t *testing.T) {
	msg := encodeClientList(ClientJoined, ClientInfo{ID: 5, Name: "alice", PingMS: 12})
	if msg[0] != serverTagClientList {
		t.Fatalf("message tag = %d, want serverTagClientList", msg[0])
	}
	if ClientListKind(msg[1]) != ClientJoined {
		t.Fatalf("client list kind = %d, want ClientJoined", msg[1])
	}
}

func TestEncodeNewBoardAndBoardEventCarryTheirTags(t *testing.T) {
	state := board.NewGlobalState()
	nb := encodeNewBoard(state)
	if nb[0] != serverTagNewBoard {
		t.Fatalf("NewBoard message tag = %d, want serverTagNewBoard", nb[0])
	}

	ev := encodeBoardEvent(board.NewImageEvent(1, 0, 0, board.ExistingTexture(uint64(1))))
	if ev[0] != serverTagBoardEvent {
		t.Fatalf("BoardEvent message tag = %d, want serverTagBoardEvent", ev[0])
	}
}

func TestEncodeRoomPoisonedCarriesTagAndReason(t *testing.T) {
	msg := encodeRoomPoisoned("disk full")
	if msg[0] != serverTagRoomPoisoned {
		t.Fatalf("message tag = %d, want serverTagRoomPoisoned", msg[0])
	}
	n := binary.LittleEndian.Uint32(msg[1:5])
	if string(msg[5:5+n]) != "disk full" {
		t.Fatalf("reason = %q, want %q", msg[5:5+n], "disk full")
	}
}
