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
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// eventCompressionThreshold is the payload size past which an event record
// is worth lz4-compressing. Pasted images dominate WAL size; the occasional
// small coordinate-only record isn't worth the framing overhead.
const eventCompressionThreshold = 256

const (
	flagRaw  byte = 0
	flagLZ4  byte = 1
	flagXZ   byte = 2
)

// compressEvent wraps an encoded event record with a one-byte compression
// flag, lz4-compressing it when it's large enough to be worth it.
func compressEvent(data []byte) []byte {
	if len(data) < eventCompressionThreshold {
		return append([]byte{flagRaw}, data...)
	}
	var buf bytes.Buffer
	buf.WriteByte(flagLZ4)
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return append([]byte{flagRaw}, data...)
	}
	if err := zw.Close(); err != nil {
		return append([]byte{flagRaw}, data...)
	}
	return buf.Bytes()
}

func decompressEvent(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("eventstore: empty record")
	}
	flag, body := data[0], data[1:]
	switch flag {
	case flagRaw:
		return body, nil
	case flagLZ4:
		zr := lz4.NewReader(bytes.NewReader(body))
		return io.ReadAll(zr)
	default:
		return nil, fmt.Errorf("eventstore: unknown record compression flag %d", flag)
	}
}

// compressSnapshot xz-compresses a snapshot payload. Snapshots are rare
// (one per rotation) and can be large, so the better-ratio, slower xz codec
// is used here instead of the per-event lz4 path.
func compressSnapshot(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(flagXZ)
	zw, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressSnapshot(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("eventstore: empty snapshot payload")
	}
	flag, body := data[0], data[1:]
	switch flag {
	case flagRaw:
		return body, nil
	case flagXZ:
		zr, err := xz.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		return io.ReadAll(zr)
	default:
		return nil, fmt.Errorf("eventstore: unknown snapshot compression flag %d", flag)
	}
}
