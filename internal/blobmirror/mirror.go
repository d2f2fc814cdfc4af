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

// Package blobmirror asynchronously copies texture bytes accepted by a
// Global Board out to object storage for CDN-style serving. It is strictly
// best-effort: the Event Store/WAL remain the sole source of truth (spec.md
// 4.2); a mirror write failure is reported to the OnFailure callback and is
// not retried, and it is never surfaced to the room actor or the client.
package blobmirror

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Backend puts one texture's bytes at a content-addressed key. Implemented
// by S3Backend (default) and, behind the "ceph" build tag, a RADOS-backed
// one mirroring the teacher's persistence-ceph.go/persistence-s3.go split.
type Backend interface {
	Put(ctx context.Context, key string, data []byte) error
}

// Key derives the mirror's object key from a texture's content hash, so
// re-pasting the same image is a no-op PUT of an already-present key rather
// than a fresh upload (the mirror's own dedup, independent of the Global
// Board's in-memory one).
func Key(roomID string, data []byte) string {
	sum := sha256.Sum256(data)
	return roomID + "/" + hex.EncodeToString(sum[:])
}

// Mirror runs one worker goroutine draining a bounded queue (1024 entries)
// of textures to mirror, so NewImage callers (the room task) never block on
// object-storage latency.
type Mirror struct {
	backend Backend
	queue   chan mirrorJob
}

type mirrorJob struct {
	roomID string
	data   []byte
}

// OnFailure is called (room_id, key, err) when a mirror PUT fails, so the
// caller can log it; Mirror itself never panics or blocks its caller.
type OnFailure func(roomID, key string, err error)

func New(backend Backend, onFailure OnFailure) *Mirror {
	m := &Mirror{backend: backend, queue: make(chan mirrorJob, 1024)}
	go m.run(onFailure)
	return m
}

// Enqueue submits one texture for best-effort mirroring. Never blocks past
// the queue's buffer; when the queue is full the texture being enqueued is
// dropped silently rather than apply backpressure to the room task.
func (m *Mirror) Enqueue(roomID string, data []byte) {
	select {
	case m.queue <- mirrorJob{roomID: roomID, data: data}:
	default:
	}
}

func (m *Mirror) run(onFailure OnFailure) {
	for job := range m.queue {
		key := Key(job.roomID, job.data)
		if err := m.backend.Put(context.Background(), key, job.data); err != nil && onFailure != nil {
			onFailure(job.roomID, key, err)
		}
	}
}
