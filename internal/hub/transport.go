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
	"encoding/binary"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/launix-de/boardmesh/internal/authtoken"
	"github.com/launix-de/boardmesh/internal/logx"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades an HTTP request to a websocket and admits the connection
// to room, the direct analogue of the teacher's scm/network.go "websocket"
// primitive, generalized from a per-message Scheme callback into the room
// actor's envelope queue.
//
// verifier is nil for an anonymous deployment (each socket mints its own
// throwaway identity); when set, the "token" query parameter must verify or
// the upgrade is refused, and the room sees the token's UserData instead of
// a random UUID.
func ServeWS(room *Room, verifier authtoken.Verifier, w http.ResponseWriter, req *http.Request) {
	clientID, name, ok := identify(verifier, req)
	if !ok {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		logx.Root().Warn("websocket upgrade failed", "room_id", room.ID, "err", err)
		return
	}

	c := room.Join(clientID, name, conn)
	go readLoop(room, c)
}

// identify resolves the connecting client's id and display name, either from
// a verified bearer token or, for an anonymous deployment, a fresh UUID.
func identify(verifier authtoken.Verifier, req *http.Request) (clientID uint64, name string, ok bool) {
	if verifier == nil {
		id := uuid.New()
		name = req.URL.Query().Get("name")
		if name == "" {
			name = "guest-" + id.String()[:8]
		}
		return idToUint64(id), name, true
	}

	user, err := verifier.Verify(req.URL.Query().Get("token"))
	if err != nil {
		return 0, "", false
	}
	return user.ID, user.Username, true
}

// idToUint64 folds a UUID down to the uint64 client identity the board
// package keys remap tables and client sets by.
func idToUint64(id uuid.UUID) uint64 {
	return binary.LittleEndian.Uint64(id[:8])
}

func readLoop(room *Room, c *Client) {
	c.conn.SetPongHandler(func(payload string) error {
		if len(payload) != 8 {
			return nil
		}
		var ts int64
		for i := 0; i < 8; i++ {
			ts |= int64(payload[i]) << (8 * i)
		}
		room.Pong(c.ID, ts)
		return nil
	})

	defer func() {
		room.Disconnect(c.ID)
	}()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return // end-of-stream; Disconnect is enqueued by the deferred call above
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		action, err := decodeBoardAction(data)
		if err != nil {
			// spec.md 7 "Transport decode failure": discard the frame and close
			// the connection, no state change. The deferred room.Disconnect
			// above closes the socket once this goroutine returns.
			logx.Root().Warn("malformed BoardAction, closing connection", "room_id", room.ID, "client_id", c.ID, "err", err)
			return
		}
		room.Message(c.ID, action)
	}
}
