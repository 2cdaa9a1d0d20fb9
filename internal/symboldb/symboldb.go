// Package symboldb implements a small sqlite-backed cache mapping symbol
// names to addresses, which a caller can place in front of a
// program.HostProvider's find_symbol (spec §4.4, SPEC_FULL §6 host
// integration expansion) so that symbols already looked up once are not
// re-resolved. Neither hostenv provider nor the CLI uses it.
package symboldb

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS symbols (
	name    TEXT PRIMARY KEY,
	address INTEGER NOT NULL
);
`

// DB wraps a sqlite-backed name->address cache.
type DB struct {
	sql *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path. Pass
// ":memory:" for a process-local cache with no on-disk file.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("symboldb: opening %s: %w", path, err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("symboldb: creating schema: %w", err)
	}
	return &DB{sql: conn}, nil
}

// Close releases the underlying sqlite handle.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Put records (or overwrites) name's address.
func (d *DB) Put(name string, addr uint64) error {
	_, err := d.sql.Exec(
		`INSERT INTO symbols(name, address) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET address = excluded.address`,
		name, int64(addr),
	)
	if err != nil {
		return fmt.Errorf("symboldb: writing %s: %w", name, err)
	}
	return nil
}

// Lookup returns name's cached address, if any.
func (d *DB) Lookup(name string) (uint64, bool, error) {
	var addr int64
	err := d.sql.QueryRow(`SELECT address FROM symbols WHERE name = ?`, name).Scan(&addr)
	switch {
	case err == sql.ErrNoRows:
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("symboldb: reading %s: %w", name, err)
	}
	return uint64(addr), true, nil
}

// CachingProvider wraps a program.HostProvider-shaped resolver function
// with this cache: a hit returns straight from sqlite, a miss falls
// through to resolve and is then recorded for next time. Errors reading
// or writing the cache are treated as a cache miss rather than failing
// the lookup — the cache is a performance layer, never a correctness
// dependency.
type CachingProvider struct {
	db      *DB
	resolve func(name string) (uint64, bool)
}

// NewCachingProvider wraps resolve (e.g. a hostenv provider's FindSymbol)
// with db as a front-line cache.
func NewCachingProvider(db *DB, resolve func(name string) (uint64, bool)) *CachingProvider {
	return &CachingProvider{db: db, resolve: resolve}
}

// FindSymbol implements program.HostProvider.
func (c *CachingProvider) FindSymbol(name string) (uint64, bool) {
	if addr, ok, err := c.db.Lookup(name); err == nil && ok {
		return addr, true
	}
	addr, ok := c.resolve(name)
	if ok {
		_ = c.db.Put(name, addr)
	}
	return addr, ok
}
