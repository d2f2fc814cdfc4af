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
package menu

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/launix-de/boardmesh/internal/logx"
)

var (
	ErrInvalidName = errors.New("menu: room name must be 1-64 characters")
)

// Menu is the HTTP-facing room directory: list rooms, create a room. It
// owns a Directory (read-optimized cache) over a RoomCatalog (the durable
// backend) and keeps the former fresh via the latter's Watch.
type Menu struct {
	dir *Directory
	log logx.Logger
}

func New(catalog RoomCatalog) (*Menu, error) {
	dir, err := NewDirectory(catalog)
	if err != nil {
		return nil, err
	}
	m := &Menu{dir: dir, log: logx.Root().With("component", "menu")}

	stop, err := catalog.Watch(func() {
		if err := m.dir.Refresh(); err != nil {
			m.log.Warn("directory refresh failed", "err", err)
		}
	})
	if err != nil {
		return nil, err
	}
	_ = stop // kept open for the process lifetime; cmd/boardd owns shutdown ordering

	return m, nil
}

func validName(name string) bool {
	return len(name) > 0 && len(name) <= 64
}

// List returns every known room name.
func (m *Menu) List() []string {
	return m.dir.List()
}

// CreateRoom admits name as a new room if it doesn't already exist.
func (m *Menu) CreateRoom(name string) (created bool, err error) {
	if !validName(name) {
		return false, ErrInvalidName
	}
	return m.dir.Create(name)
}

// ServeHTTP answers GET (list rooms) and POST (create room, name in the
// "name" form/query value) on the same endpoint, the menu service's external
// interface (spec.md's board core treats routing as an out-of-scope
// collaborator; this is the supplemented menu surface — see SPEC_FULL.md 4).
func (m *Menu) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(m.List())
	case http.MethodPost:
		name := req.FormValue("name")
		created, err := m.CreateRoom(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"created": created})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
