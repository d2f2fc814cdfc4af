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

// Package eventstore owns one room's directory of WAL segments and
// snapshots and orchestrates open/replay/append/snapshot/rotate exactly per
// spec.md 4.2. It never interprets record bytes itself — that's the
// codec's job — it only frames and persists them.
package eventstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/launix-de/boardmesh/internal/wal"
)

const indexWidth = 20 // zero-padded decimal digits in segment/snapshot file names

func formatIndex(i uint64) string {
	return fmt.Sprintf("%0*d", indexWidth, i)
}

// StateBuilder is fed the replayed snapshot and every subsequent event
// during Open, in order. Implementations dispatch on version (spec.md 4.3).
type StateBuilder interface {
	LoadState(version uint64, data []byte) error
	LoadEvent(version uint64, data []byte) error
}

// EventStore is one room's append-only log plus snapshot directory.
type EventStore struct {
	root          string
	version       uint64
	writable      *wal.Segment
	writableIndex uint64
}

func walDir(root string) string      { return filepath.Join(root, "wal") }
func snapshotDir(root string) string { return filepath.Join(root, "snapshot") }

func segmentPath(root string, i uint64) string {
	return filepath.Join(walDir(root), formatIndex(i)+".log")
}

func snapshotPath(root string, i uint64) string {
	return filepath.Join(snapshotDir(root), formatIndex(i)+".snapshot")
}

func snapshotTmpPath(root string, i uint64) string {
	return filepath.Join(snapshotDir(root), formatIndex(i)+".snapshot.tmp")
}

func maxIndex(dir, suffix string) (uint64, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, false, err
	}
	var max uint64
	found := false
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		idxStr := strings.TrimSuffix(name, suffix)
		idx, err := strconv.ParseUint(idxStr, 10, 64)
		if err != nil {
			continue
		}
		if !found || idx > max {
			max = idx
			found = true
		}
	}
	return max, found, nil
}

// OpenStore replays the newest snapshot (if any) plus every subsequent WAL
// segment into builder, then positions the store on the writable segment to
// append to next (spec.md 4.2 "Open protocol").
func OpenStore(root string, currentVersion uint64, builder StateBuilder) (*EventStore, error) {
	if err := os.MkdirAll(walDir(root), 0750); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(snapshotDir(root), 0750); err != nil {
		return nil, err
	}

	snapMax, hasSnap, err := maxIndex(snapshotDir(root), ".snapshot")
	if err != nil {
		return nil, err
	}
	walMax, hasWal, err := maxIndex(walDir(root), ".log")
	if err != nil {
		return nil, err
	}

	if hasSnap {
		version, payload, err := readSnapshotFile(snapshotPath(root, snapMax))
		if err != nil {
			return nil, err
		}
		if err := builder.LoadState(version, payload); err != nil {
			return nil, err
		}
	}

	var segmentVersions map[uint64]uint64
	if hasWal {
		start := uint64(0)
		if hasSnap {
			start = snapMax
		}

		segmentVersions, err = scanSegmentVersions(root, start, walMax)
		if err != nil {
			return nil, err
		}

		for i := start; i <= walMax; i++ {
			err := wal.Replay(segmentPath(root, i), func(version uint64, record []byte) error {
				return builder.LoadEvent(version, record)
			})
			if err != nil {
				return nil, err
			}
		}
	}

	var writableIndex uint64
	if hasWal {
		if segmentVersions[walMax] == currentVersion {
			writableIndex = walMax
		} else {
			writableIndex = walMax + 1
		}
	} else {
		writableIndex = 0
	}

	seg, err := wal.Open(segmentPath(root, writableIndex), currentVersion)
	if err != nil {
		return nil, err
	}

	return &EventStore{root: root, version: currentVersion, writable: seg, writableIndex: writableIndex}, nil
}

// Append delegates to the current writable segment. The caller is
// responsible for calling Flush at durability boundaries (spec.md 4.2).
func (s *EventStore) Append(event []byte) error {
	return s.writable.Append(event)
}

func (s *EventStore) Flush() error {
	return s.writable.Flush()
}

func (s *EventStore) CurrentSegmentSize() int64 {
	return s.writable.Size()
}

// rotate seals the current segment and opens a new writable one, used by
// Snapshot. A schema version change is handled by OpenStore, which opens
// walMax+1 directly instead of calling rotate.
func (s *EventStore) rotate() error {
	if err := s.writable.Flush(); err != nil {
		return err
	}
	if err := s.writable.Close(); err != nil {
		return err
	}
	s.writableIndex++
	seg, err := wal.Open(segmentPath(s.root, s.writableIndex), s.version)
	if err != nil {
		return err
	}
	s.writable = seg
	return nil
}

// Snapshot atomically records a point-in-time state (spec.md 4.2):
//  1. rotate so the about-to-be-snapshotted segment I is sealed first,
//  2. write version+payload to a .tmp file and fsync it,
//  3. rename .tmp -> .snapshot.
//
// The rotate-before-write ordering is what guarantees the snapshot named I
// really does reflect replaying segments [0..I] — I is sealed, so it will
// never receive another event.
func (s *EventStore) Snapshot(payload []byte) error {
	snapshotIndex := s.writableIndex
	if err := s.rotate(); err != nil {
		return err
	}

	tmpPath := snapshotTmpPath(s.root, snapshotIndex)
	finalPath := snapshotPath(s.root, snapshotIndex)

	if err := writeSnapshotFile(tmpPath, s.version, payload); err != nil {
		return err
	}
	return os.Rename(tmpPath, finalPath)
}

func (s *EventStore) Close() error {
	return s.writable.Close()
}
