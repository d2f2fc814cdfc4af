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
	"github.com/launix-de/boardmesh/internal/board"
	"github.com/launix-de/boardmesh/internal/codec"
)

// decompressingBuilder adapts a codec.Loader into a StateBuilder that
// transparently undoes the compression BoardStore applies on write, so the
// codec itself never has to know records might be compressed.
type decompressingBuilder struct {
	inner *codec.Loader
}

func (d *decompressingBuilder) LoadState(version uint64, data []byte) error {
	raw, err := decompressSnapshot(data)
	if err != nil {
		return err
	}
	return d.inner.LoadState(version, raw)
}

func (d *decompressingBuilder) LoadEvent(version uint64, data []byte) error {
	raw, err := decompressEvent(data)
	if err != nil {
		return err
	}
	return d.inner.LoadEvent(version, raw)
}

// BoardStore is the board.Observer that bridges GlobalBoard to the
// directory-backed EventStore: it encodes with the versioned codec,
// compresses, and persists. This is the Go analogue of the original
// implementation's StoringObserver/BoardStore pair.
type BoardStore struct {
	store *EventStore
}

// Open replays root's snapshot+WAL into a fresh board.Board and returns a
// BoardStore ready to persist further mutations against it.
func Open(root string) (*BoardStore, board.Board[uint64], error) {
	loader := codec.NewLoader()
	store, err := OpenStore(root, codec.CurrentVersion, &decompressingBuilder{inner: loader})
	if err != nil {
		return nil, board.Board[uint64]{}, err
	}
	return &BoardStore{store: store}, loader.Board(), nil
}

// NewImage persists one accepted NewImage mutation (board.Observer).
func (b *BoardStore) NewImage(id uint64, x, y float64, texture board.Texture[uint64]) error {
	event := board.NewImageEvent(id, x, y, texture)
	raw := codec.EncodeEvent(event)
	return b.store.Append(compressEvent(raw))
}

// Flush fsyncs the current segment, making every Append so far durable.
func (b *BoardStore) Flush() error {
	return b.store.Flush()
}

// Snapshot encodes and persists a point-in-time board state (spec.md 4.2).
// Failure here is non-fatal per spec.md 7: callers should log and retry
// later, since in-memory state remains authoritative.
func (b *BoardStore) Snapshot(state board.Board[uint64]) error {
	raw := codec.EncodeSnapshot(state)
	compressed, err := compressSnapshot(raw)
	if err != nil {
		return err
	}
	return b.store.Snapshot(compressed)
}

func (b *BoardStore) CurrentSegmentSize() int64 {
	return b.store.CurrentSegmentSize()
}

func (b *BoardStore) Close() error {
	return b.store.Close()
}
