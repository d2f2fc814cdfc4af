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
package eventstore

import (
	"golang.org/x/sync/errgroup"

	"github.com/launix-de/boardmesh/internal/wal"
)

// scanSegmentVersions reads every WAL segment's header concurrently over the
// inclusive range [start, end], so a corrupt or missing header anywhere in a
// long segment run during Open is reported before replay starts working
// through the (potentially large) record bodies sequentially.
func scanSegmentVersions(root string, start, end uint64) (map[uint64]uint64, error) {
	versions := make([]uint64, end-start+1)

	var g errgroup.Group
	for i := start; i <= end; i++ {
		i := i
		g.Go(func() error {
			v, err := wal.ReadHeader(segmentPath(root, i))
			if err != nil {
				return err
			}
			versions[i-start] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[uint64]uint64, len(versions))
	for i, v := range versions {
		out[start+uint64(i)] = v
	}
	return out, nil
}
