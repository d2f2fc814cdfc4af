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
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// SQLCatalog is a RoomCatalog backed by a `rooms(name TEXT PRIMARY KEY)`
// table in MySQL or Postgres, chosen by driverName ("mysql" or "postgres") —
// the pluggable-backend shape the teacher uses for its PersistenceEngine
// factory (storage/persistence.go), generalized here to the room directory.
type SQLCatalog struct {
	db         *sql.DB
	driverName string
}

func NewSQLCatalog(driverName, dsn string) (*SQLCatalog, error) {
	if driverName != "mysql" && driverName != "postgres" {
		return nil, fmt.Errorf("menu: unsupported SQL catalog driver %q", driverName)
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	c := &SQLCatalog{db: db, driverName: driverName}
	if err := c.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *SQLCatalog) ensureSchema() error {
	switch c.driverName {
	case "mysql":
		_, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS rooms (name VARCHAR(255) PRIMARY KEY)`)
		return err
	case "postgres":
		_, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS rooms (name TEXT PRIMARY KEY)`)
		return err
	default:
		return errors.New("menu: unreachable driver")
	}
}

func (c *SQLCatalog) List() ([]string, error) {
	rows, err := c.db.Query(`SELECT name FROM rooms ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (c *SQLCatalog) Create(name string) error {
	var query string
	switch c.driverName {
	case "mysql":
		query = `INSERT IGNORE INTO rooms (name) VALUES (?)`
	case "postgres":
		query = `INSERT INTO rooms (name) VALUES ($1) ON CONFLICT DO NOTHING`
	}
	_, err := c.db.Exec(query, name)
	return err
}

// Watch is a no-op for SQLCatalog: polling-based invalidation isn't worth it
// for a backend that's usually only mutated through this same process's
// Create; cross-process room creation via direct SQL is not a supported path.
func (c *SQLCatalog) Watch(onChange func()) (func() error, error) {
	return func() error { return nil }, nil
}
