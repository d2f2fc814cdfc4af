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
	"sync"

	"github.com/launix-de/NonLockingReadMap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
)

// roomEntry is the element type stored in the directory's read-optimized
// map. Room lookups vastly outnumber room creations (every client connect
// and every menu listing reads; only an explicit "create room" writes), which
// is exactly the access pattern NonLockingReadMap is built for.
type roomEntry struct {
	name string
}

func (e roomEntry) GetKey() string { return e.name }
func (e roomEntry) ComputeSize() uint {
	return uint(16 + len(e.name))
}

var foldCaser = cases.Fold()

// foldName normalizes a room name for case-insensitive comparison the way
// the rest of the corpus leans on golang.org/x/text for locale-aware string
// handling rather than a bespoke ToLower.
func foldName(name string) string {
	return foldCaser.String(name)
}

// Directory is the in-memory, read-optimized view of a RoomCatalog: one
// NonLockingReadMap for fast concurrent List/Exists, with Create collapsed
// through a singleflight.Group so N simultaneous "create room X" requests
// only ever touch the backing catalog once.
type Directory struct {
	catalog RoomCatalog

	mu    sync.Mutex // guards rooms during bulk refresh; reads never take it
	rooms NonLockingReadMap.NonLockingReadMap[roomEntry, string]

	creating singleflight.Group
}

func NewDirectory(catalog RoomCatalog) (*Directory, error) {
	d := &Directory{
		catalog: catalog,
		rooms:   NonLockingReadMap.New[roomEntry, string](),
	}
	if err := d.Refresh(); err != nil {
		return nil, err
	}
	return d, nil
}

// Refresh reloads the directory from the backing catalog, e.g. after the
// catalog's Watch reports a change.
func (d *Directory) Refresh() error {
	names, err := d.catalog.List()
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	fresh := NonLockingReadMap.New[roomEntry, string]()
	for _, name := range names {
		entry := &roomEntry{name: foldName(name)}
		fresh.Set(entry)
	}
	d.rooms = fresh
	return nil
}

// List returns every known room name, folded form.
func (d *Directory) List() []string {
	items := d.rooms.GetAll()
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.name
	}
	return out
}

// Exists reports whether name (any casing) is already a known room.
func (d *Directory) Exists(name string) bool {
	return d.rooms.Get(foldName(name)) != nil
}

// Create admits a new room, collapsing concurrent callers asking for the
// same (folded) name into one backing-catalog write.
func (d *Directory) Create(name string) (created bool, err error) {
	folded := foldName(name)
	if d.Exists(folded) {
		return false, nil
	}

	v, err, _ := d.creating.Do(folded, func() (any, error) {
		return d.createOnce(name, folded)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// createOnce is the singleflight-guarded body of Create: it re-checks
// existence because a caller can reach here after another one already won
// the race between Create's outer check and this call running.
func (d *Directory) createOnce(name, folded string) (bool, error) {
	if d.Exists(folded) {
		return false, nil // lost the race: another call already created it
	}
	if err := d.catalog.Create(name); err != nil {
		return false, err
	}
	d.rooms.Set(&roomEntry{name: folded})
	return true, nil
}
