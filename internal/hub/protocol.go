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

// Package hub implements the per-room actor (spec.md 4.7): it owns the
// client set and the Global Board, decodes client->server messages off the
// websocket transport, and fans out server->client messages.
package hub

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/launix-de/boardmesh/internal/board"
	"github.com/launix-de/boardmesh/internal/codec"
)

// Client -> Server message tags.
const (
	clientTagBoardAction byte = 0
)

// Server -> Client message tags.
const (
	serverTagClientList   byte = 0
	serverTagNewBoard     byte = 1
	serverTagBoardEvent   byte = 2
	serverTagRoomPoisoned byte = 3
)

// ClientListKind distinguishes the three client-info notice shapes (spec.md
// 4.7's Joined/Quit/Update).
type ClientListKind byte

const (
	ClientJoined ClientListKind = 0
	ClientQuit   ClientListKind = 1
	ClientUpdate ClientListKind = 2
)

// ClientInfo is the payload of a ClientListMessage notice (spec.md's
// external-interfaces section names the tag but not the payload shape; this
// is the supplemented shape — see SPEC_FULL.md).
type ClientInfo struct {
	ID     uint64
	Name   string
	PingMS int64
}

func encodeClientInfo(buf *bytes.Buffer, ci ClientInfo) {
	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], ci.ID)
	buf.Write(u64[:])
	nameBytes := []byte(ci.Name)
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(nameBytes)))
	buf.Write(u32[:])
	buf.Write(nameBytes)
	binary.LittleEndian.PutUint64(u64[:], uint64(ci.PingMS))
	buf.Write(u64[:])
}

// encodeClientList frames a ClientListMessage(Joined|Quit|Update) notice.
func encodeClientList(kind ClientListKind, ci ClientInfo) []byte {
	var buf bytes.Buffer
	buf.WriteByte(serverTagClientList)
	buf.WriteByte(byte(kind))
	encodeClientInfo(&buf, ci)
	return buf.Bytes()
}

// encodeNewBoard frames the full-state snapshot a freshly joined client
// receives (spec.md 4.7's NewClient handler).
func encodeNewBoard(state board.Board[uint64]) []byte {
	var buf bytes.Buffer
	buf.WriteByte(serverTagNewBoard)
	buf.Write(codec.EncodeSnapshot(state))
	return buf.Bytes()
}

// encodeBoardEvent frames one server->client board event (NewImage or
// ConfirmImage).
func encodeBoardEvent(e board.Event) []byte {
	var buf bytes.Buffer
	buf.WriteByte(serverTagBoardEvent)
	buf.Write(codec.EncodeEvent(e))
	return buf.Bytes()
}

// encodeRoomPoisoned frames the one-shot notice sent to every connected
// client when a persistence failure poisons the room (spec.md 7): it is the
// last message the room will ever send on this connection.
func encodeRoomPoisoned(reason string) []byte {
	var buf bytes.Buffer
	buf.WriteByte(serverTagRoomPoisoned)
	reasonBytes := []byte(reason)
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(reasonBytes)))
	buf.Write(u32[:])
	buf.Write(reasonBytes)
	return buf.Bytes()
}

// decodeBoardAction decodes a client's BoardAction message (spec.md 6).
func decodeBoardAction(data []byte) (board.Action, error) {
	if len(data) == 0 || data[0] != clientTagBoardAction {
		return board.Action{}, fmt.Errorf("hub: not a BoardAction message")
	}
	return decodeAction(data[1:])
}

func decodeAction(data []byte) (board.Action, error) {
	r := newReader(data)
	x := r.f64()
	y := r.f64()
	localID := r.u64()
	tex, err := decodeActionTexture(r)
	if err != nil {
		return board.Action{}, err
	}
	if r.err != nil {
		return board.Action{}, r.err
	}
	return board.Action{X: x, Y: y, LocalID: localID, Texture: tex}, nil
}

func decodeActionTexture(r *reader) (board.Texture[board.ObjectIdentifier], error) {
	tag := r.u8()
	switch tag {
	case 0: // new
		ns := r.u8()
		id := r.u64()
		n := r.u32()
		data := r.bytes(int(n))
		if r.err != nil {
			return board.Texture[board.ObjectIdentifier]{}, r.err
		}
		return board.NewTexture(board.ObjectIdentifier{Namespace: board.Namespace(ns), ID: id}, data), nil
	case 1: // existing
		ns := r.u8()
		id := r.u64()
		if r.err != nil {
			return board.Texture[board.ObjectIdentifier]{}, r.err
		}
		return board.ExistingTexture(board.ObjectIdentifier{Namespace: board.Namespace(ns), ID: id}), nil
	default:
		return board.Texture[board.ObjectIdentifier]{}, fmt.Errorf("hub: unknown texture tag %d", tag)
	}
}

// encodeAction is used by test helpers and the (future) native client shim to
// build a wire-format BoardAction message.
func encodeAction(a board.Action) []byte {
	var buf bytes.Buffer
	buf.WriteByte(clientTagBoardAction)
	writeF64(&buf, a.X)
	writeF64(&buf, a.Y)
	writeU64(&buf, a.LocalID)
	if a.Texture.Existing {
		buf.WriteByte(1)
		buf.WriteByte(byte(a.Texture.ID.Namespace))
		writeU64(&buf, a.Texture.ID.ID)
	} else {
		buf.WriteByte(0)
		buf.WriteByte(byte(a.Texture.ID.Namespace))
		writeU64(&buf, a.Texture.ID.ID)
		writeU32(&buf, uint32(len(a.Texture.Data)))
		buf.Write(a.Texture.Data)
	}
	return buf.Bytes()
}
