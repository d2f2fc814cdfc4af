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

// Package wal implements one write-ahead-log segment: a single append-only
// file with a schema-version header followed by length-prefixed framed
// records (spec.md 4.1).
//
//	[u64 LE schema version]
//	([u32 LE record length][record bytes])*
package wal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"
)

// Segment is one WAL file, open for append.
type Segment struct {
	f    *os.File
	w    *bufio.Writer
	size int64
}

// Open opens path for append, creating it and writing the version header if
// it does not yet exist. An existing file's header is never rewritten — the
// caller is responsible for checking its version matches what it expects
// before appending further records to it.
func Open(path string, schemaVersion uint64) (*Segment, error) {
	_, statErr := os.Stat(path)
	isNew := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0640)
	if err != nil {
		return nil, err
	}

	if isNew {
		var header [8]byte
		binary.LittleEndian.PutUint64(header[:], schemaVersion)
		if _, err := f.Write(header[:]); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, err
		}
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Segment{f: f, w: bufio.NewWriter(f), size: info.Size()}, nil
}

// Append writes one length-prefixed record to the buffered writer. No
// fsync happens here — call Flush at a durability boundary.
func (s *Segment) Append(record []byte) error {
	var lenbuf [4]byte
	binary.LittleEndian.PutUint32(lenbuf[:], uint32(len(record)))
	if _, err := s.w.Write(lenbuf[:]); err != nil {
		return err
	}
	if _, err := s.w.Write(record); err != nil {
		return err
	}
	s.size += int64(len(lenbuf)) + int64(len(record))
	return nil
}

// Flush flushes the buffer and fsyncs the file. Records written before the
// call returns are durable.
func (s *Segment) Flush() error {
	if err := s.w.Flush(); err != nil {
		return err
	}
	return s.f.Sync()
}

// Size is the current byte size including the header and all framed records.
func (s *Segment) Size() int64 {
	return s.size
}

func (s *Segment) Close() error {
	return s.f.Close()
}

// ReadHeader reads the u64-LE schema version from the start of path without
// otherwise touching it.
func ReadHeader(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	var header [8]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(header[:]), nil
}

// Replay reads every framed record in path after its version header,
// invoking fn(version, record) for each. A truncated tail (a length prefix
// or record body cut short by a crash mid-write) ends replay of this
// segment without error, per spec.md 4.1.
func Replay(path string, fn func(version uint64, record []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		return err
	}
	version := binary.LittleEndian.Uint64(header[:])

	for {
		var lenbuf [4]byte
		if _, err := io.ReadFull(r, lenbuf[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}
		recLen := binary.LittleEndian.Uint32(lenbuf[:])
		record := make([]byte, recLen)
		if _, err := io.ReadFull(r, record); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}
		if err := fn(version, record); err != nil {
			return err
		}
	}
}
