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

// Package boardtest wires a GlobalBoard to a directory-backed BoardStore and
// a recording EventSender, and supplies a fake graphics observer for
// LocalBoard tests, all in one process, the Go
// analogue of the original implementation's test_back crate (which existed
// purely to host these round-trip and scenario tests — see SPEC_FULL.md 4).
package boardtest

import (
	"testing"

	"github.com/launix-de/boardmesh/internal/board"
	"github.com/launix-de/boardmesh/internal/eventstore"
)

// Room bundles one GlobalBoard with its durable store, rooted in a fresh
// t.TempDir() so every test gets an isolated event store directory.
type Room struct {
	t       *testing.T
	Global  *board.GlobalBoard
	Store   *eventstore.BoardStore
	Sent    *RecordingSender
	dataDir string
}

// NewRoom opens (creating) a fresh event-store-backed room for the duration
// of t.
func NewRoom(t *testing.T) *Room {
	t.Helper()
	dir := t.TempDir()
	store, state, err := eventstore.Open(dir)
	if err != nil {
		t.Fatalf("boardtest: open event store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return &Room{
		t:       t,
		Global:  board.FromBoard(state),
		Store:   store,
		Sent:    NewRecordingSender(),
		dataDir: dir,
	}
}

// Reopen flushes and closes the current store (as a room does on shutdown)
// and opens a fresh one over the same directory, returning a Room rebuilt
// from replay, for restart-semantics tests (spec.md 8's snapshot/replay
// scenarios).
func (r *Room) Reopen() *Room {
	r.t.Helper()
	if err := r.Store.Flush(); err != nil {
		r.t.Fatalf("boardtest: flush event store: %v", err)
	}
	if err := r.Store.Close(); err != nil {
		r.t.Fatalf("boardtest: close event store: %v", err)
	}
	store, state, err := eventstore.Open(r.dataDir)
	if err != nil {
		r.t.Fatalf("boardtest: reopen event store: %v", err)
	}
	r.t.Cleanup(func() { store.Close() })
	return &Room{
		t:       r.t,
		Global:  board.FromBoard(state),
		Store:   store,
		Sent:    NewRecordingSender(),
		dataDir: r.dataDir,
	}
}

// Apply is a thin wrapper around GlobalBoard.Apply wired to this room's
// recording sender and durable store; it returns Apply's error to the caller.
func (r *Room) Apply(clientID uint64, action board.Action) error {
	return r.Global.Apply(clientID, action, r.Sent, r.Store)
}

// RecordingSender is a board.EventSender that appends every delivered event
// to an in-memory log keyed by client id, for assertions.
type RecordingSender struct {
	Events map[uint64][]board.Event
}

func NewRecordingSender() *RecordingSender {
	return &RecordingSender{Events: make(map[uint64][]board.Event)}
}

func (s *RecordingSender) SendEvent(clientID uint64, event board.Event) {
	s.Events[clientID] = append(s.Events[clientID], event)
}

// FakeGraphics is a ClientObserver that assigns sequential fake handles
// (identical texture bytes get the same texture handle back, as a backend
// that recognises textures by content would), and lets a test force
// CreateTexture to report a decode failure for one byte sequence (spec.md
// 8's "undecodable texture aborts NewImage" case).
type FakeGraphics struct {
	nextTextureHandle uint64
	nextImageHandle   uint64
	textureHandles    map[string]uint64
	Undecodable       map[string]bool
}

func NewFakeGraphics() *FakeGraphics {
	return &FakeGraphics{textureHandles: make(map[string]uint64), Undecodable: make(map[string]bool)}
}

func (g *FakeGraphics) CreateTexture(data []byte) (uint64, bool) {
	if g.Undecodable[string(data)] {
		return 0, false
	}
	if h, ok := g.textureHandles[string(data)]; ok {
		return h, true
	}
	g.nextTextureHandle++
	g.textureHandles[string(data)] = g.nextTextureHandle
	return g.nextTextureHandle, true
}

func (g *FakeGraphics) NewImage(x, y float64, textureInternalID uint64) uint64 {
	g.nextImageHandle++
	return g.nextImageHandle
}
