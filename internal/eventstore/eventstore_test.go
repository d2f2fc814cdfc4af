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
package eventstore

import (
	"testing"

	"github.com/launix-de/boardmesh/internal/board"
)

func TestOpenCreatesEmptyStore(t *testing.T) {
	dir := t.TempDir()
	store, state, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if state.Objects.Len() != 0 || state.Textures.Len() != 0 {
		t.Fatalf("a freshly created store must replay to an empty board")
	}
}

func TestAppendFlushReopenReplays(t *testing.T) {
	dir := t.TempDir()
	store, _, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := store.NewImage(1, 10, 20, board.NewTexture(uint64(1), []byte("tex-bytes"))); err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	if err := store.NewImage(2, 30, 40, board.ExistingTexture(uint64(1))); err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, state, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if state.Objects.Len() != 2 {
		t.Fatalf("replayed object count = %d, want 2", state.Objects.Len())
	}
	if state.Textures.Len() != 1 {
		t.Fatalf("replayed texture count = %d, want 1", state.Textures.Len())
	}
	obj1, ok := state.Objects.Get(1)
	if !ok || obj1.Image.X != 10 || obj1.Image.Y != 20 {
		t.Fatalf("object 1 = %+v, unexpected", obj1)
	}
}

// TestSnapshotRotatesThenReplaysFromSnapshot covers spec.md 4.2's
// rotate-before-write ordering: after a snapshot, reopening must load state
// from the snapshot and replay WAL segments from the snapshot's own index
// onward, so events appended after the snapshot are not lost.
func TestSnapshotRotatesThenReplaysFromSnapshot(t *testing.T) {
	dir := t.TempDir()
	store, _, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := store.NewImage(1, 1, 1, board.NewTexture(uint64(1), []byte("before-snapshot"))); err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	snapState := board.NewGlobalState()
	snapState.Textures.Set(uint64(1), []byte("before-snapshot"))
	snapState.Objects.Set(uint64(1), board.ImageObject(board.Image[uint64]{ID: 1, X: 1, Y: 1, Texture: 1}))
	if err := store.Snapshot(snapState); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if err := store.NewImage(2, 2, 2, board.NewTexture(uint64(2), []byte("after-snapshot"))); err != nil {
		t.Fatalf("NewImage post-snapshot: %v", err)
	}
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, state, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if state.Objects.Len() != 2 {
		t.Fatalf("replayed object count after snapshot+event = %d, want 2", state.Objects.Len())
	}
	if _, ok := state.Objects.Get(2); !ok {
		t.Fatalf("post-snapshot event must still be replayed")
	}
}

func TestCurrentSegmentSizeGrowsWithAppends(t *testing.T) {
	dir := t.TempDir()
	store, _, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	before := store.CurrentSegmentSize()
	if err := store.NewImage(1, 0, 0, board.NewTexture(uint64(1), make([]byte, 1024))); err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	after := store.CurrentSegmentSize()
	if after <= before {
		t.Fatalf("segment size should grow after an append: before=%d after=%d", before, after)
	}
}

func TestCompressEventRoundtripsSmallAndLargePayloads(t *testing.T) {
	small := []byte("tiny")
	large := make([]byte, eventCompressionThreshold+512)
	for i := range large {
		large[i] = byte(i)
	}

	for _, payload := range [][]byte{small, large} {
		encoded := compressEvent(payload)
		decoded, err := decompressEvent(encoded)
		if err != nil {
			t.Fatalf("decompressEvent: %v", err)
		}
		if string(decoded) != string(payload) {
			t.Fatalf("roundtrip mismatch for payload of length %d", len(payload))
		}
	}
}

func TestCompressSnapshotRoundtrips(t *testing.T) {
	payload := []byte("a snapshot payload of some length, repeated. a snapshot payload of some length, repeated.")
	encoded, err := compressSnapshot(payload)
	if err != nil {
		t.Fatalf("compressSnapshot: %v", err)
	}
	decoded, err := decompressSnapshot(encoded)
	if err != nil {
		t.Fatalf("decompressSnapshot: %v", err)
	}
	if string(decoded) != string(payload) {
		t.Fatalf("snapshot roundtrip mismatch")
	}
}

func TestScanSegmentVersionsReadsEveryHeaderInRange(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(dir, 1, noopBuilder{})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if err := store.Append([]byte("rec")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := store.rotate(); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	versions, err := scanSegmentVersions(dir, 0, store.writableIndex)
	if err != nil {
		t.Fatalf("scanSegmentVersions: %v", err)
	}
	if len(versions) != int(store.writableIndex)+1 {
		t.Fatalf("scanned %d segment versions, want %d", len(versions), store.writableIndex+1)
	}
	for i, v := range versions {
		if v != 1 {
			t.Fatalf("segment %d version = %d, want 1", i, v)
		}
	}
}

type noopBuilder struct{}

func (noopBuilder) LoadState(version uint64, data []byte) error { return nil }
func (noopBuilder) LoadEvent(version uint64, data []byte) error { return nil }
