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

// Command boardctl is an operator REPL over a data root shared with a
// running (or stopped) boardd: it lists rooms, forces a snapshot, and
// reports WAL segment sizes directly off the filesystem, without needing
// boardd's own HTTP surface up.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	units "github.com/docker/go-units"

	"github.com/launix-de/boardmesh/internal/eventstore"
	"github.com/launix-de/boardmesh/internal/menu"
)

func main() {
	dataRoot := flag.String("data", "./data", "root directory shared with boardd's -data")
	flag.Parse()

	rl, err := readline.New("boardctl> ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Fprintln(rl.Stdout(), "boardctl: type 'help' for commands")
	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF on ^D, readline.ErrInterrupt on ^C
			return
		}
		run(rl, *dataRoot, strings.Fields(line))
	}
}

func run(rl *readline.Instance, dataRoot string, args []string) {
	out := rl.Stdout()
	if len(args) == 0 {
		return
	}
	switch args[0] {
	case "help":
		fmt.Fprintln(out, "commands: rooms | snapshot <room> | size <room> | quit")
	case "rooms":
		cmdRooms(out, dataRoot)
	case "size":
		if len(args) < 2 {
			fmt.Fprintln(out, "usage: size <room>")
			return
		}
		cmdSize(out, dataRoot, args[1])
	case "snapshot":
		if len(args) < 2 {
			fmt.Fprintln(out, "usage: snapshot <room>")
			return
		}
		cmdSnapshot(out, dataRoot, args[1])
	case "quit", "exit":
		os.Exit(0)
	default:
		fmt.Fprintf(out, "unknown command %q\n", args[0])
	}
}

func cmdRooms(out io.Writer, dataRoot string) {
	catalog, err := menu.NewFileCatalog(dataRoot)
	if err != nil {
		fmt.Fprintln(out, "error:", err)
		return
	}
	names, err := catalog.List()
	if err != nil {
		fmt.Fprintln(out, "error:", err)
		return
	}
	for _, n := range names {
		fmt.Fprintln(out, n)
	}
}

func roomDataDir(dataRoot, room string) string {
	return filepath.Join(dataRoot, "rooms-data", room)
}

func cmdSize(out io.Writer, dataRoot, room string) {
	dir := filepath.Join(roomDataDir(dataRoot, room), "wal")
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintln(out, "error:", err)
		return
	}
	var total int64
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
		fmt.Fprintf(out, "%s\t%s\n", e.Name(), units.BytesSize(float64(info.Size())))
	}
	fmt.Fprintf(out, "total\t%s\n", units.BytesSize(float64(total)))
}

func cmdSnapshot(out io.Writer, dataRoot, room string) {
	store, state, err := eventstore.Open(roomDataDir(dataRoot, room))
	if err != nil {
		fmt.Fprintln(out, "error:", err)
		return
	}
	defer store.Close()

	if err := store.Snapshot(state); err != nil {
		fmt.Fprintln(out, "error:", err)
		return
	}
	fmt.Fprintf(out, "snapshot written: %d objects, %d textures\n", state.Objects.Len(), state.Textures.Len())
}
