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
	"sync"

	"github.com/gorilla/websocket"
)

// Client is the room's handle on one connected socket. The writer half is
// owned exclusively by the room task (spec.md 5 "Per-socket tasks"): sending
// to a client only ever suspends the room task, never the reader goroutine
// draining that same socket.
type Client struct {
	ID   uint64
	Name string

	conn      *websocket.Conn
	writeLock sync.Mutex

	lastPingSent int64 // unix millis of the outstanding ping, 0 if none
}

func newClient(id uint64, name string, conn *websocket.Conn) *Client {
	return &Client{ID: id, Name: name, conn: conn}
}

func (c *Client) send(msg []byte) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, msg)
}

func (c *Client) sendPing(payload []byte) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, payload, deadlineNow())
}

func (c *Client) close() {
	c.conn.Close()
}
