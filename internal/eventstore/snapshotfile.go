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
	"encoding/binary"
	"io"
	"os"
)

// writeSnapshotFile writes "u64-LE version || payload" to path, flushing and
// fsyncing before returning (spec.md 4.2 step 2).
func writeSnapshotFile(path string, version uint64, payload []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var header [8]byte
	binary.LittleEndian.PutUint64(header[:], version)
	if _, err := f.Write(header[:]); err != nil {
		return err
	}
	if _, err := f.Write(payload); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return nil
}

// readSnapshotFile reads back what writeSnapshotFile wrote.
func readSnapshotFile(path string) (version uint64, payload []byte, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, err
	}
	defer f.Close()

	var header [8]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		return 0, nil, err
	}
	version = binary.LittleEndian.Uint64(header[:])

	payload, err = io.ReadAll(f)
	if err != nil {
		return 0, nil, err
	}
	return version, payload, nil
}
