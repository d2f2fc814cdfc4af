//go:build ceph

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
package blobmirror

import (
	"context"
	"fmt"

	"github.com/ceph/go-ceph/rados"
)

// CephConfig names the RADOS pool textures are mirrored into, the same
// shape as the teacher's ceph persistence backend (storage/
// persistence-ceph.go), gated behind the same "ceph" build tag since the
// cgo-backed rados binding isn't always available in a build environment.
type CephConfig struct {
	UserName    string
	ClusterName string
	ConfFile    string
	Pool        string
}

type CephBackend struct {
	cfg  CephConfig
	conn *rados.Conn
	ioctx *rados.IOContext
}

func NewCephBackend(cfg CephConfig) (*CephBackend, error) {
	conn, err := rados.NewConnWithUser(cfg.UserName)
	if err != nil {
		return nil, fmt.Errorf("blobmirror: rados conn: %w", err)
	}
	if cfg.ClusterName != "" {
		conn.SetClusterName(cfg.ClusterName)
	}
	if err := conn.ReadConfigFile(cfg.ConfFile); err != nil {
		return nil, fmt.Errorf("blobmirror: rados config: %w", err)
	}
	if err := conn.Connect(); err != nil {
		return nil, fmt.Errorf("blobmirror: rados connect: %w", err)
	}
	ioctx, err := conn.OpenIOContext(cfg.Pool)
	if err != nil {
		conn.Shutdown()
		return nil, fmt.Errorf("blobmirror: rados pool %q: %w", cfg.Pool, err)
	}
	return &CephBackend{cfg: cfg, conn: conn, ioctx: ioctx}, nil
}

func (b *CephBackend) Put(ctx context.Context, key string, data []byte) error {
	return b.ioctx.WriteFull(key, data)
}

func (b *CephBackend) Close() {
	b.ioctx.Destroy()
	b.conn.Shutdown()
}
