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

// Package menu is the room directory: it lists the rooms a deployment hosts
// and admits creation of new ones, the Go analogue of the original
// implementation's menu_back::ServerList plus its menu_server actor
// (supplemented feature, see SPEC_FULL.md 4).
package menu

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// RoomCatalog is the persistence boundary for the room directory. FileCatalog
// is the default (mirrors the teacher's filesystem-first storage bias, see
// storage/schema_fs.go); SQLCatalog is the pluggable alternative for
// deployments that already run a MySQL/Postgres instance for everything else.
type RoomCatalog interface {
	List() ([]string, error)
	Create(name string) error
	// Watch notifies onChange whenever the catalog's contents may have
	// changed out of band (another process, an operator editing a file).
	// Returns a stop function. A catalog that cannot watch returns a no-op
	// stop and a nil error.
	Watch(onChange func()) (stop func() error, err error)
}

// FileCatalog stores one empty marker file per room under root/rooms/, and
// watches that directory with fsnotify so out-of-band edits (an operator
// dropping a file in) are picked up without a restart.
type FileCatalog struct {
	dir string
}

func NewFileCatalog(root string) (*FileCatalog, error) {
	dir := filepath.Join(root, "rooms")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}
	return &FileCatalog{dir: dir}, nil
}

func (f *FileCatalog) List() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), ".room") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".room"))
	}
	return names, nil
}

func (f *FileCatalog) Create(name string) error {
	path := filepath.Join(f.dir, name+".room")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0640)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	return file.Close()
}

func (f *FileCatalog) Watch(onChange func()) (func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(f.dir); err != nil {
		watcher.Close()
		return nil, err
	}
	go func() {
		for {
			select {
			case _, ok := <-watcher.Events:
				if !ok {
					return
				}
				onChange()
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return watcher.Close, nil
}
