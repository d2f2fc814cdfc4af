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

// Command boardd is the board daemon: it serves the menu HTTP surface and,
// per room, upgrades websocket connections into the room hub (spec.md 4.7).
package main

import (
	"flag"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/dc0d/onexit"

	"github.com/launix-de/boardmesh/internal/authtoken"
	"github.com/launix-de/boardmesh/internal/blobmirror"
	"github.com/launix-de/boardmesh/internal/hub"
	"github.com/launix-de/boardmesh/internal/logx"
	"github.com/launix-de/boardmesh/internal/menu"
)

func main() {
	dataRoot := flag.String("data", "./data", "root directory for room event stores and the room catalog")
	listen := flag.String("listen", ":8080", "HTTP listen address")
	sqlDriver := flag.String("catalog-driver", "", "if set (mysql|postgres), use a SQL room catalog instead of the file catalog")
	sqlDSN := flag.String("catalog-dsn", "", "DSN for -catalog-driver")
	authSecret := flag.String("auth-secret", "", "if set, require a verified bearer token (?token=) on every room connection")
	mirrorBucket := flag.String("mirror-s3-bucket", "", "if set, best-effort mirror every pasted texture to this S3(-compatible) bucket")
	mirrorEndpoint := flag.String("mirror-s3-endpoint", "", "S3 endpoint override for -mirror-s3-bucket (for MinIO/Ceph RGW etc.)")
	mirrorRegion := flag.String("mirror-s3-region", "us-east-1", "S3 region for -mirror-s3-bucket")
	mirrorAccessKey := flag.String("mirror-s3-access-key", "", "access key for -mirror-s3-bucket, empty to use the default AWS credential chain")
	mirrorSecretKey := flag.String("mirror-s3-secret-key", "", "secret key for -mirror-s3-bucket")
	mirrorPathStyle := flag.Bool("mirror-s3-path-style", false, "use path-style S3 addressing, required by most non-AWS S3-compatible stores")
	verbose := flag.Bool("verbose", false, "debug-level logging")
	flag.Parse()

	if *verbose {
		logx.SetLevel(slog.LevelDebug)
	}
	log := logx.Root().With("component", "boardd")

	catalog, err := openCatalog(*dataRoot, *sqlDriver, *sqlDSN)
	if err != nil {
		log.Error("failed to open room catalog", "err", err)
		panic(err)
	}

	m, err := menu.New(catalog)
	if err != nil {
		log.Error("failed to start menu service", "err", err)
		panic(err)
	}

	var verifier authtoken.Verifier
	if *authSecret != "" {
		verifier = authtoken.NewHMACKey([]byte(*authSecret))
	}

	mirror, err := openMirror(*mirrorBucket, *mirrorRegion, *mirrorEndpoint, *mirrorAccessKey, *mirrorSecretKey, *mirrorPathStyle, log)
	if err != nil {
		log.Error("failed to configure blob mirror", "err", err)
		panic(err)
	}

	srv := newServer(*dataRoot, m, verifier, mirror, log)

	onexit.Register(func() {
		log.Info("shutting down, flushing open rooms")
		srv.closeAll()
	})

	log.Info("listening", "addr", *listen)
	httpErr := http.ListenAndServe(*listen, srv)
	if httpErr != nil {
		log.Error("http server exited", "err", httpErr)
	}
}

func openCatalog(dataRoot, driver, dsn string) (menu.RoomCatalog, error) {
	if driver == "" {
		return menu.NewFileCatalog(dataRoot)
	}
	return menu.NewSQLCatalog(driver, dsn)
}

// openMirror returns nil, nil when bucket is empty: the mirror is entirely
// optional, and Room.onMessage already skips mirroring when unset.
func openMirror(bucket, region, endpoint, accessKey, secretKey string, pathStyle bool, log logx.Logger) (*blobmirror.Mirror, error) {
	if bucket == "" {
		return nil, nil
	}
	backend, err := blobmirror.NewS3Backend(blobmirror.S3Config{
		AccessKeyID:     accessKey,
		SecretAccessKey: secretKey,
		Region:          region,
		Endpoint:        endpoint,
		Bucket:          bucket,
		ForcePathStyle:  pathStyle,
	})
	if err != nil {
		return nil, err
	}
	onFailure := func(roomID, key string, err error) {
		log.Warn("blob mirror PUT failed", "room_id", roomID, "key", key, "err", err)
	}
	return blobmirror.New(backend, onFailure), nil
}

// server multiplexes the menu surface at /menu and, per room name, the
// websocket upgrade at /room/<name>. Rooms are opened lazily on first
// connection and kept running until shutdown.
type server struct {
	dataRoot string
	menu     *menu.Menu
	verifier authtoken.Verifier
	mirror   *blobmirror.Mirror
	log      logx.Logger

	mu    sync.Mutex
	rooms map[string]*hub.Room
}

func newServer(dataRoot string, m *menu.Menu, verifier authtoken.Verifier, mirror *blobmirror.Mirror, log logx.Logger) *server {
	return &server{dataRoot: dataRoot, menu: m, verifier: verifier, mirror: mirror, log: log, rooms: make(map[string]*hub.Room)}
}

func (s *server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	switch {
	case req.URL.Path == "/menu":
		s.menu.ServeHTTP(w, req)
	case strings.HasPrefix(req.URL.Path, "/room/"):
		name := strings.TrimPrefix(req.URL.Path, "/room/")
		if name == "" {
			http.NotFound(w, req)
			return
		}
		room, err := s.roomFor(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hub.ServeWS(room, s.verifier, w, req)
	default:
		http.NotFound(w, req)
	}
}

func (s *server) roomFor(name string) (*hub.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.rooms[name]; ok {
		return r, nil
	}

	root := path.Join(s.dataRoot, "rooms-data", name)
	room, err := hub.Open(root, name)
	if err != nil {
		return nil, err
	}
	room.SetMirror(s.mirror)
	go room.Run()
	s.rooms[name] = room
	return room, nil
}

func (s *server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, room := range s.rooms {
		room.Stop()
		s.log.Info("room flushed", "room_id", name)
	}
}
