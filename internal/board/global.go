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
package board

import (
	"errors"
	"fmt"
	"sort"
)

// ErrPersistenceFailure marks an Apply error as a persistence I/O failure
// rather than a discardable unknown-reference drop (spec.md 7): callers must
// distinguish the two and treat the room as poisoned on this one, instead of
// silently dropping the action the way an unresolvable texture reference is.
var ErrPersistenceFailure = errors.New("board: persistence write failed")

// EventSender delivers a per-client-addressed Event. Implemented by the room
// hub, which writes through to the client's socket.
type EventSender interface {
	SendEvent(clientID uint64, event Event)
}

// Observer is notified of every accepted mutation so it can be persisted.
// Implemented by the event-store-backed observer in internal/eventstore.
type Observer interface {
	NewImage(id uint64, x, y float64, texture Texture[uint64]) error
}

// remapClient is the per-connected-client bookkeeping GlobalBoard keeps:
// a map from that client's local ids to the global ids the server assigned
// once the corresponding submission was confirmed.
type remapClient struct {
	id            uint64
	localToGlobal map[uint64]uint64
}

func newRemapClient(id uint64) *remapClient {
	return &remapClient{id: id, localToGlobal: make(map[uint64]uint64)}
}

func (c *remapClient) setGlobalID(localID, globalID uint64) {
	c.localToGlobal[localID] = globalID
}

func (c *remapClient) getGlobalID(id ObjectIdentifier) (uint64, bool) {
	if id.Namespace == Global {
		return id.ID, true
	}
	gid, ok := c.localToGlobal[id.ID]
	return gid, ok
}

// GlobalBoard is the server-authoritative state machine for one room: it
// owns global-ID allocation, content-hash texture dedup, and per-client
// local->global remap tables, and drives fan-out of confirmation/broadcast
// events for every accepted Action (spec.md 4.5).
type GlobalBoard struct {
	state           Board[uint64]
	revTextures     map[string]uint64 // content hash (raw bytes as map key) -> global texture id
	globalIDCounter uint64
	clients         map[uint64]*remapClient
}

func NewGlobalBoard() *GlobalBoard {
	return &GlobalBoard{
		state:       NewGlobalState(),
		revTextures: make(map[string]uint64),
		clients:     make(map[uint64]*remapClient),
	}
}

// FromBoard reconstructs a GlobalBoard after event-store replay: it installs
// the replayed state, rebuilds the reverse texture index, and positions the
// ID counter at the maximum of every persisted object/texture id so that the
// next allocation never reuses a value (spec.md 3, 4.5).
func FromBoard(state Board[uint64]) *GlobalBoard {
	g := &GlobalBoard{
		state:       state,
		revTextures: make(map[string]uint64),
		clients:     make(map[uint64]*remapClient),
	}
	state.Textures.Ascend(func(id uint64, data []byte) bool {
		g.revTextures[string(data)] = id
		return true
	})
	var maxID uint64
	state.Objects.Ascend(func(id uint64, _ BoardObject[uint64]) bool {
		if id > maxID {
			maxID = id
		}
		return true
	})
	state.Textures.Ascend(func(id uint64, _ []byte) bool {
		if id > maxID {
			maxID = id
		}
		return true
	})
	g.globalIDCounter = maxID
	return g
}

// GetState returns a deep copy of the current board, for snapshotting or for
// syncing a newly-joined client (spec.md 4.5).
func (g *GlobalBoard) GetState() Board[uint64] {
	return g.state.Clone()
}

func (g *GlobalBoard) NewClient(clientID uint64) {
	g.clients[clientID] = newRemapClient(clientID)
}

func (g *GlobalBoard) RemoveClient(clientID uint64) {
	delete(g.clients, clientID)
}

func (g *GlobalBoard) next() uint64 {
	g.globalIDCounter++
	return g.globalIDCounter
}

// getGlobalTexture resolves a client-supplied Texture reference into the
// global namespace. For New payloads this performs content-hash dedup:
// bytes already present in revTextures are returned as Existing, discarding
// the client's New hint (dedup wins, spec.md 4.5 step 2). For Existing
// references it consults the submitting client's remap table; an unknown
// reference reports ok=false so the caller can abort the action silently.
func (g *GlobalBoard) getGlobalTexture(clientID uint64, tex Texture[ObjectIdentifier]) (Texture[uint64], bool) {
	if !tex.Existing {
		if existingID, ok := g.revTextures[string(tex.Data)]; ok {
			return ExistingTexture(existingID), true
		}
		globalID := g.next()
		g.state.Textures.Set(globalID, tex.Data)
		g.revTextures[string(tex.Data)] = globalID
		return NewTexture(globalID, tex.Data), true
	}
	client, ok := g.clients[clientID]
	if !ok {
		return Texture[uint64]{}, false
	}
	globalID, ok := client.getGlobalID(tex.ID)
	if !ok {
		return Texture[uint64]{}, false
	}
	return ExistingTexture(globalID), true
}

// Apply applies a client action, persists it through observer, and fans the
// resulting events out to every connected client (spec.md 4.5, 4.7).
//
// A persistence failure is fatal for the room: it comes back wrapped in
// ErrPersistenceFailure, distinct from the nil-error silent drop of an
// unresolvable texture reference, so the caller can treat the room as
// poisoned (spec.md 7) since in-memory state has already diverged from what
// will be replayed on restart.
func (g *GlobalBoard) Apply(clientID uint64, action Action, sender EventSender, observer Observer) error {
	globalObjID := g.next()

	texGlobal, ok := g.getGlobalTexture(clientID, action.Texture)
	if !ok {
		// unknown reference from this client: drop silently (spec.md 4.5 step 2,
		// 7). The allocated id above is simply never used again.
		return nil
	}

	g.state.Objects.Set(globalObjID, ImageObject(Image[uint64]{
		ID:      globalObjID,
		X:       action.X,
		Y:       action.Y,
		Texture: texGlobal.GetID(),
	}))

	if err := observer.NewImage(globalObjID, action.X, action.Y, texGlobal); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	for _, id := range g.sortedClientIDs() {
		client := g.clients[id]
		if client.id == clientID {
			client.setGlobalID(action.LocalID, globalObjID)
			if action.Texture.ID.Namespace == Local {
				client.setGlobalID(action.Texture.ID.ID, texGlobal.GetID())
			}
			sender.SendEvent(clientID, ConfirmImageEvent(action.LocalID, globalObjID, texGlobal.GetID()))
		} else {
			sender.SendEvent(client.id, NewImageEvent(globalObjID, action.X, action.Y, texGlobal))
		}
	}
	return nil
}

func (g *GlobalBoard) sortedClientIDs() []uint64 {
	ids := make([]uint64, 0, len(g.clients))
	for id := range g.clients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
