package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"mylaundry/internal/models"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// ErrNoSession is returned when no session record is stored.
var ErrNoSession = errors.New("no session stored")

// DB wraps the local sqlite database holding the session record and the
// last fetched copies of the remote price and order lists.
type DB struct {
	conn *sql.DB
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		return nil, err
	}

	return db, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		// Single-row table: at most one session exists at a time.
		`CREATE TABLE IF NOT EXISTS session (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			token TEXT NOT NULL,
			expires_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS package_cache (
			id TEXT PRIMARY KEY,
			package_name TEXT NOT NULL,
			price REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS order_cache (
			id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			created_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS cache_meta (
			name TEXT PRIMARY KEY,
			fetched_at DATETIME NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return err
		}
	}

	return nil
}

// SaveSession stores the session record, replacing any previous one.
func (db *DB) SaveSession(token string, expiresAt time.Time) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO session (id, token, expires_at) VALUES (1, ?, ?)",
		token, expiresAt,
	)
	return err
}

// GetSession retrieves the stored session, or ErrNoSession if there is
// none. Expiry is not checked here; that is the session manager's call.
func (db *DB) GetSession() (*models.Session, error) {
	row := db.conn.QueryRow("SELECT token, expires_at FROM session WHERE id = 1")

	var s models.Session
	if err := row.Scan(&s.Token, &s.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	return &s, nil
}

// DeleteSession removes the stored session record. Deleting when no
// record exists is not an error.
func (db *DB) DeleteSession() error {
	_, err := db.conn.Exec("DELETE FROM session WHERE id = 1")
	return err
}

// ReplacePackages swaps the cached price list for a freshly fetched one.
func (db *DB) ReplacePackages(pkgs []models.Package) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM package_cache"); err != nil {
		return err
	}
	for _, p := range pkgs {
		if _, err := tx.Exec(
			"INSERT INTO package_cache (id, package_name, price) VALUES (?, ?, ?)",
			p.ID, p.Name, p.Price,
		); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO cache_meta (name, fetched_at) VALUES ('packages', ?)",
		time.Now(),
	); err != nil {
		return err
	}

	return tx.Commit()
}

// CachedPackages returns the last fetched price list and when it was
// fetched. An empty cache returns no rows and a zero time.
func (db *DB) CachedPackages() ([]models.Package, time.Time, error) {
	rows, err := db.conn.Query(
		"SELECT id, package_name, price FROM package_cache ORDER BY package_name",
	)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer rows.Close()

	var pkgs []models.Package
	for rows.Next() {
		var p models.Package
		if err := rows.Scan(&p.ID, &p.Name, &p.Price); err != nil {
			return nil, time.Time{}, err
		}
		pkgs = append(pkgs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, err
	}

	fetchedAt, err := db.fetchedAt("packages")
	if err != nil {
		return nil, time.Time{}, err
	}
	return pkgs, fetchedAt, nil
}

// ReplaceOrders swaps the cached order list for a freshly fetched one.
// Orders are stored as serialized JSON; the cache is display data for
// when the server is unreachable, never a source of truth.
func (db *DB) ReplaceOrders(orders []models.Order) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM order_cache"); err != nil {
		return err
	}
	for _, o := range orders {
		payload, err := json.Marshal(o)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			"INSERT INTO order_cache (id, payload, created_at) VALUES (?, ?, ?)",
			o.ID, string(payload), o.CreatedAt,
		); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO cache_meta (name, fetched_at) VALUES ('orders', ?)",
		time.Now(),
	); err != nil {
		return err
	}

	return tx.Commit()
}

// CachedOrders returns the last fetched order list, newest first, and
// when it was fetched.
func (db *DB) CachedOrders() ([]models.Order, time.Time, error) {
	rows, err := db.conn.Query(
		"SELECT payload FROM order_cache ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, time.Time{}, err
		}
		var o models.Order
		if err := json.Unmarshal([]byte(payload), &o); err != nil {
			return nil, time.Time{}, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, err
	}

	fetchedAt, err := db.fetchedAt("orders")
	if err != nil {
		return nil, time.Time{}, err
	}
	return orders, fetchedAt, nil
}

func (db *DB) fetchedAt(name string) (time.Time, error) {
	row := db.conn.QueryRow("SELECT fetched_at FROM cache_meta WHERE name = ?", name)

	var t time.Time
	if err := row.Scan(&t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return t, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
