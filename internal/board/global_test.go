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
package board_test

import (
	"errors"
	"testing"

	"github.com/launix-de/boardmesh/internal/board"
	"github.com/launix-de/boardmesh/internal/boardtest"
)

// failingObserver always reports the given error from NewImage, standing in
// for an event store whose Append has hit an I/O failure.
type failingObserver struct{ err error }

func (f failingObserver) NewImage(id uint64, x, y float64, texture board.Texture[uint64]) error {
	return f.err
}

func TestGlobalBoardNewImageConfirmsAndBroadcasts(t *testing.T) {
	room := boardtest.NewRoom(t)
	room.Global.NewClient(1)
	room.Global.NewClient(2)

	action := board.Action{
		X: 1, Y: 2,
		LocalID: 10,
		Texture: board.NewTexture(board.LocalID(20), []byte("pixels")),
	}
	if err := room.Apply(1, action); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	confirmEvents := room.Sent.Events[1]
	if len(confirmEvents) != 1 || confirmEvents[0].Kind != board.EventConfirmImage {
		t.Fatalf("submitting client should get exactly one ConfirmImage event, got %+v", confirmEvents)
	}
	if confirmEvents[0].LocalID != 10 {
		t.Fatalf("confirm LocalID = %d, want 10", confirmEvents[0].LocalID)
	}

	broadcastEvents := room.Sent.Events[2]
	if len(broadcastEvents) != 1 || broadcastEvents[0].Kind != board.EventNewImage {
		t.Fatalf("other client should get exactly one NewImage event, got %+v", broadcastEvents)
	}
	if broadcastEvents[0].ID != confirmEvents[0].GlobalID {
		t.Fatalf("broadcast id %d must match confirmed global id %d", broadcastEvents[0].ID, confirmEvents[0].GlobalID)
	}
}

// TestGlobalBoardDedupsTextureByContent covers spec.md 8's "pasting the same
// bytes twice mints only one texture" scenario: a second New texture with
// identical payload must resolve as Existing against the first's global id.
func TestGlobalBoardDedupsTextureByContent(t *testing.T) {
	room := boardtest.NewRoom(t)
	room.Global.NewClient(1)

	payload := []byte("same-bytes")
	first := board.Action{X: 0, Y: 0, LocalID: 1, Texture: board.NewTexture(board.LocalID(1), payload)}
	if err := room.Apply(1, first); err != nil {
		t.Fatalf("Apply first: %v", err)
	}
	firstConfirm := room.Sent.Events[1][0]

	second := board.Action{X: 5, Y: 5, LocalID: 2, Texture: board.NewTexture(board.LocalID(2), payload)}
	if err := room.Apply(1, second); err != nil {
		t.Fatalf("Apply second: %v", err)
	}
	secondConfirm := room.Sent.Events[1][1]

	if firstConfirm.TextureID != secondConfirm.TextureID {
		t.Fatalf("identical bytes must dedup to the same texture id, got %d and %d",
			firstConfirm.TextureID, secondConfirm.TextureID)
	}

	state := room.Global.GetState()
	if state.Textures.Len() != 1 {
		t.Fatalf("expected exactly one stored texture after dedup, got %d", state.Textures.Len())
	}
}

// TestGlobalBoardUnknownTextureReferenceWastesID covers spec.md 8's edge case:
// an Action referencing an Existing texture the submitting client has never
// seen is dropped silently, but the global object id already allocated for
// it is never reused.
func TestGlobalBoardUnknownTextureReferenceWastesID(t *testing.T) {
	room := boardtest.NewRoom(t)
	room.Global.NewClient(1)

	bad := board.Action{
		X: 0, Y: 0,
		LocalID: 1,
		Texture: board.ExistingTexture(board.LocalID(999)), // never introduced
	}
	if err := room.Apply(1, bad); err != nil {
		t.Fatalf("Apply of an unresolvable reference must not error: %v", err)
	}
	if len(room.Sent.Events[1]) != 0 {
		t.Fatalf("a dropped action must not send any event, got %+v", room.Sent.Events[1])
	}

	good := board.Action{
		X: 1, Y: 1,
		LocalID: 2,
		Texture: board.NewTexture(board.LocalID(2), []byte("ok")),
	}
	if err := room.Apply(1, good); err != nil {
		t.Fatalf("Apply good: %v", err)
	}
	confirm := room.Sent.Events[1][0]
	// the dropped action already consumed one global id before aborting, so
	// the next successful allocation must skip it rather than reuse it.
	if confirm.GlobalID < 2 {
		t.Fatalf("global id %d should reflect the wasted allocation from the dropped action", confirm.GlobalID)
	}
}

// TestGlobalBoardLocalTextureReferenceRemaps covers the case where an
// Action's own Texture is itself a Local-namespace reference (the client
// pasted an image using a texture it minted earlier in the same batch): the
// submitting client must get its local texture id remapped too, not just its
// object id.
func TestGlobalBoardLocalTextureReferenceRemaps(t *testing.T) {
	room := boardtest.NewRoom(t)
	room.Global.NewClient(1)

	first := board.Action{X: 0, Y: 0, LocalID: 1, Texture: board.NewTexture(board.LocalID(5), []byte("tex"))}
	if err := room.Apply(1, first); err != nil {
		t.Fatalf("Apply first: %v", err)
	}
	texGlobalID := room.Sent.Events[1][0].TextureID

	second := board.Action{X: 1, Y: 1, LocalID: 2, Texture: board.ExistingTexture(board.LocalID(5))}
	if err := room.Apply(1, second); err != nil {
		t.Fatalf("Apply second: %v", err)
	}
	secondConfirm := room.Sent.Events[1][1]
	if secondConfirm.TextureID != texGlobalID {
		t.Fatalf("second action's remapped texture id = %d, want %d", secondConfirm.TextureID, texGlobalID)
	}
}

func TestGlobalBoardDropsActionFromUnknownClient(t *testing.T) {
	room := boardtest.NewRoom(t)
	// deliberately skip NewClient: the submitting client is unknown to the board.
	action := board.Action{X: 0, Y: 0, LocalID: 1, Texture: board.ExistingTexture(board.LocalID(1))}
	if err := room.Apply(42, action); err != nil {
		t.Fatalf("Apply from unknown client must not error: %v", err)
	}
	if len(room.Sent.Events[42]) != 0 {
		t.Fatalf("unknown client must receive no events")
	}
}

// TestGlobalBoardApplyWrapsPersistenceFailure covers spec.md 7's "Persistence
// I/O failure" error kind: it must come back distinguishable from the silent
// unknown-reference drop so the room hub can poison itself instead of just
// logging and moving on.
func TestGlobalBoardApplyWrapsPersistenceFailure(t *testing.T) {
	room := boardtest.NewRoom(t)
	room.Global.NewClient(1)

	cause := errors.New("disk full")
	action := board.Action{X: 0, Y: 0, LocalID: 1, Texture: board.NewTexture(board.LocalID(1), []byte("x"))}
	err := room.Global.Apply(1, action, room.Sent, failingObserver{err: cause})

	if !errors.Is(err, board.ErrPersistenceFailure) {
		t.Fatalf("Apply error = %v, want it to wrap board.ErrPersistenceFailure", err)
	}
	if len(room.Sent.Events[1]) != 0 {
		t.Fatalf("a failed persistence write must not have sent a ConfirmImage first, got %+v", room.Sent.Events[1])
	}
}

func TestFromBoardResumesIDCounterPastMax(t *testing.T) {
	room := boardtest.NewRoom(t)
	room.Global.NewClient(1)
	if err := room.Apply(1, board.Action{X: 0, Y: 0, LocalID: 1, Texture: board.NewTexture(board.LocalID(1), []byte("a"))}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	firstGlobalID := room.Sent.Events[1][0].GlobalID

	reopened := room.Reopen()
	reopened.Global.NewClient(2)
	if err := reopened.Apply(2, board.Action{X: 0, Y: 0, LocalID: 1, Texture: board.NewTexture(board.LocalID(1), []byte("b"))}); err != nil {
		t.Fatalf("Apply after reopen: %v", err)
	}
	secondGlobalID := reopened.Sent.Events[2][0].GlobalID

	if secondGlobalID <= firstGlobalID {
		t.Fatalf("id counter after replay must continue past the persisted max: got %d after %d",
			secondGlobalID, firstGlobalID)
	}
}
