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

import (
	"errors"
	"sync"
	"time"

	units "github.com/docker/go-units"
	"github.com/gorilla/websocket"

	"github.com/launix-de/boardmesh/internal/blobmirror"
	"github.com/launix-de/boardmesh/internal/board"
	"github.com/launix-de/boardmesh/internal/eventstore"
	"github.com/launix-de/boardmesh/internal/logx"
)

const tickInterval = 5 * time.Second

// snapshotThreshold is the writable-segment size past which the room takes a
// snapshot on its next Tick, bounding how much WAL a restart has to replay.
const snapshotThreshold = 8 << 20 // 8 MiB

func deadlineNow() time.Time {
	return time.Now().Add(2 * time.Second)
}

// envelope is the closed set of inputs a Room multiplexes (spec.md 4.7).
type envelope interface{ isEnvelope() }

type envNewClient struct{ client *Client }
type envMessage struct {
	clientID uint64
	action   board.Action
}
type envDisconnect struct{ clientID uint64 }
type envPong struct {
	clientID  uint64
	timestamp int64
}

func (envNewClient) isEnvelope()  {}
func (envMessage) isEnvelope()    {}
func (envDisconnect) isEnvelope() {}
func (envPong) isEnvelope()       {}

// Room is the per-room single-consumer actor (spec.md 4.7): exactly one
// goroutine (Run) ever touches global or clients, so the board package
// itself needs no locks.
type Room struct {
	ID string

	log    logx.Logger
	global *board.GlobalBoard
	store  *eventstore.BoardStore
	mirror *blobmirror.Mirror // optional; nil when no mirror backend is configured

	clients map[uint64]*Client

	// poisoned is set once a persistence write fails (spec.md 7): further
	// actions are refused and Run exits after notifying every client.
	// Only ever touched on the Run goroutine.
	poisoned bool

	queue    chan envelope
	kill     chan struct{}
	killOnce sync.Once
	done     chan struct{}
}

// Open replays id's persisted state and returns a Room ready to Run.
func Open(dataRoot, id string) (*Room, error) {
	store, state, err := eventstore.Open(dataRoot)
	if err != nil {
		return nil, err
	}
	return &Room{
		ID:      id,
		log:     logx.For("room_id", id),
		global:  board.FromBoard(state),
		store:   store,
		clients: make(map[uint64]*Client),
		queue:   make(chan envelope, 256),
		kill:    make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// SetMirror attaches a best-effort blob mirror: every accepted new texture's
// raw bytes are enqueued for async upload, independent of the WAL's own
// durability (spec.md 4.2 treats the mirror as out of the durability path).
func (r *Room) SetMirror(m *blobmirror.Mirror) {
	r.mirror = m
}

// enqueue posts one envelope to the room's inbound queue. Safe to call from
// any goroutine (reader tasks, the HTTP handler).
func (r *Room) enqueue(e envelope) {
	select {
	case r.queue <- e:
	case <-r.kill:
	}
}

// Join admits a newly upgraded socket to the room.
func (r *Room) Join(id uint64, name string, conn *websocket.Conn) *Client {
	c := newClient(id, name, conn)
	r.enqueue(envNewClient{client: c})
	return c
}

// Message submits one decoded client action for this room to apply.
func (r *Room) Message(clientID uint64, action board.Action) {
	r.enqueue(envMessage{clientID: clientID, action: action})
}

// Disconnect tells the room a client's socket reader hit end-of-stream. This
// is the ONLY path that ever enqueues a disconnect (spec.md 5).
func (r *Room) Disconnect(clientID uint64) {
	r.enqueue(envDisconnect{clientID: clientID})
}

// Pong reports a received pong's echoed timestamp for ping RTT accounting.
func (r *Room) Pong(clientID uint64, timestamp int64) {
	r.enqueue(envPong{clientID: clientID, timestamp: timestamp})
}

// Stop signals Run to exit on its next suspension point, without draining
// the queue (spec.md 5 "Cancellation").
func (r *Room) Stop() {
	r.closeKill()
	<-r.done
}

// closeKill closes the kill channel exactly once, whether triggered by an
// explicit Stop or by the room poisoning itself.
func (r *Room) closeKill() {
	r.killOnce.Do(func() { close(r.kill) })
}

// Run is the room's single consumer loop. It must be started in its own
// goroutine; it returns after Stop is called or the room poisons itself.
func (r *Room) Run() {
	defer close(r.done)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.kill:
			r.finalize()
			return
		case e := <-r.queue:
			r.handle(e)
			if r.poisoned {
				r.finalize()
				return
			}
		case <-ticker.C:
			r.tick()
		}
	}
}

func (r *Room) finalize() {
	if err := r.store.Flush(); err != nil {
		r.log.Error("final flush failed", "err", err)
	}
	if err := r.store.Close(); err != nil {
		r.log.Error("close failed", "err", err)
	}
	r.log.Info("room stopped", "clients", len(r.clients))
}

func (r *Room) handle(e envelope) {
	switch ev := e.(type) {
	case envNewClient:
		r.onNewClient(ev.client)
	case envMessage:
		r.onMessage(ev.clientID, ev.action)
	case envDisconnect:
		r.onDisconnect(ev.clientID)
	case envPong:
		r.onPong(ev.clientID, ev.timestamp)
	}
}

func (r *Room) onNewClient(c *Client) {
	r.clients[c.ID] = c
	r.global.NewClient(c.ID)

	if err := c.send(encodeNewBoard(r.global.GetState())); err != nil {
		r.log.Warn("failed to send initial board state", "client_id", c.ID, "err", err)
	}
	r.broadcast(encodeClientList(ClientJoined, ClientInfo{ID: c.ID, Name: c.Name}))
	r.log.Info("client joined", "client_id", c.ID, "name", c.Name)
}

func (r *Room) onMessage(clientID uint64, action board.Action) {
	if r.poisoned {
		return
	}
	if err := r.global.Apply(clientID, action, r, r.store); err != nil {
		if errors.Is(err, board.ErrPersistenceFailure) {
			r.poison(err)
			return
		}
		r.log.Warn("dropped action", "client_id", clientID, "err", err)
		return
	}
	if r.mirror != nil && !action.Texture.Existing {
		r.mirror.Enqueue(r.ID, action.Texture.Data)
	}
}

// poison marks the room unusable after an unrecoverable persistence failure
// (spec.md 7): every connected client is told once, no further action is
// ever applied, and Run exits right after this envelope is done handling.
func (r *Room) poison(cause error) {
	r.poisoned = true
	r.log.Error("room poisoned, refusing further writes", "err", cause)
	r.broadcast(encodeRoomPoisoned(cause.Error()))
	r.closeKill()
}

func (r *Room) onDisconnect(clientID uint64) {
	c, ok := r.clients[clientID]
	if !ok {
		return
	}
	delete(r.clients, clientID)
	r.global.RemoveClient(clientID)
	c.close()
	r.broadcast(encodeClientList(ClientQuit, ClientInfo{ID: clientID, Name: c.Name}))
	r.log.Info("client left", "client_id", clientID)
}

func (r *Room) onPong(clientID uint64, timestamp int64) {
	c, ok := r.clients[clientID]
	if !ok {
		return
	}
	now := time.Now().UnixMilli()
	ms := now - timestamp
	if ms < 0 {
		ms = 0
	}
	r.broadcast(encodeClientList(ClientUpdate, ClientInfo{ID: clientID, Name: c.Name, PingMS: ms}))
}

func (r *Room) tick() {
	now := time.Now().UnixMilli()
	var payload [8]byte
	for i := 0; i < 8; i++ {
		payload[i] = byte(now >> (8 * i))
	}
	for id, c := range r.clients {
		if err := c.sendPing(payload[:]); err != nil {
			r.log.Warn("ping failed, dropping client", "client_id", id, "err", err)
			r.onDisconnect(id)
		}
	}

	if r.store.CurrentSegmentSize() >= snapshotThreshold {
		r.snapshot()
	}
}

func (r *Room) snapshot() {
	state := r.global.GetState()
	start := time.Now()
	if err := r.store.Snapshot(state); err != nil {
		r.log.Error("snapshot failed", "err", err)
		return
	}
	r.log.Info("snapshot written", "objects", state.Objects.Len(), "textures", state.Textures.Len(),
		"elapsed", time.Since(start), "segment_size", units.BytesSize(float64(r.store.CurrentSegmentSize())))
}

// SendEvent implements board.EventSender: it's called synchronously from
// inside Apply, on the room's own goroutine, so no locking is needed here.
func (r *Room) SendEvent(clientID uint64, event board.Event) {
	c, ok := r.clients[clientID]
	if !ok {
		return
	}
	if err := c.send(encodeBoardEvent(event)); err != nil {
		r.log.Warn("failed to deliver event, dropping client", "client_id", clientID, "err", err)
		r.onDisconnect(clientID)
	}
}

func (r *Room) broadcast(msg []byte) {
	for id, c := range r.clients {
		if err := c.send(msg); err != nil {
			r.log.Warn("broadcast failed, dropping client", "client_id", id, "err", err)
			r.onDisconnect(id)
		}
	}
}
