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

// Low-level binary helpers for the client->server BoardAction envelope,
// mirroring internal/codec's v1 reader/writer exactly (same framing rules,
// kept separate because the hub's envelope wraps a board.Action keyed on
// ObjectIdentifier, not the server-side uint64-keyed wire records codec
// handles).

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
)

func writeU64(w *bytes.Buffer, v uint64)  { binary.Write(w, binary.LittleEndian, v) }
func writeU32(w *bytes.Buffer, v uint32)  { binary.Write(w, binary.LittleEndian, v) }
func writeF64(w *bytes.Buffer, v float64) { binary.Write(w, binary.LittleEndian, math.Float64bits(v)) }

type reader struct {
	r   *bytes.Reader
	err error
}

func newReader(data []byte) *reader {
	return &reader{r: bytes.NewReader(data)}
}

func (r *reader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	b, err := r.r.ReadByte()
	if err != nil {
		r.err = err
	}
	return b
}

func (r *reader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	var v uint32
	r.err = binary.Read(r.r, binary.LittleEndian, &v)
	return v
}

func (r *reader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	var v uint64
	r.err = binary.Read(r.r, binary.LittleEndian, &v)
	return v
}

func (r *reader) f64() float64 {
	return math.Float64frombits(r.u64())
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	b := make([]byte, n)
	_, r.err = io.ReadFull(r.r, b)
	return b
}
