package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tphummel/hwreq/internal/rules"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrCustomerExists is returned when a customer already owns a requirement set.
var ErrCustomerExists = errors.New("customer already has a requirement set")

// DB wraps a SQLite connection.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at path, enables WAL mode, and runs migrations.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Each connection to :memory: is a separate database.
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := migrate(conn); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Rules are stored as the JSON document the API exchanges, so a loaded set is
// the same shape that was saved.
func migrate(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS requirement_sets (
			id          TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			rules       TEXT NOT NULL DEFAULT '[]',
			created_at  DATETIME NOT NULL,
			updated_at  DATETIME NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_requirement_sets_customer ON requirement_sets(customer_id);
		CREATE INDEX IF NOT EXISTS idx_requirement_sets_updated ON requirement_sets(updated_at);
	`)
	return err
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Ping verifies the database connection is alive.
func (d *DB) Ping() error {
	return d.conn.Ping()
}

// Create inserts a new requirement set. Returns ErrCustomerExists if the
// customer already owns one.
func (d *DB) Create(s *rules.RequirementSet) error {
	doc, err := encodeRules(s.Rules)
	if err != nil {
		return err
	}
	_, err = d.conn.Exec(`
		INSERT INTO requirement_sets (id, customer_id, rules, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.CustomerID, doc,
		s.CreatedAt.UTC().Format(time.RFC3339),
		s.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if isUniqueViolation(err) {
		return ErrCustomerExists
	}
	return err
}

// GetByID returns the requirement set with the given ID, or sql.ErrNoRows if not found.
func (d *DB) GetByID(id string) (*rules.RequirementSet, error) {
	row := d.conn.QueryRow(`
		SELECT id, customer_id, rules, created_at, updated_at
		FROM requirement_sets WHERE id = ?`, id)
	return scan(row)
}

// GetByCustomer returns the requirement set owned by customerID, or
// sql.ErrNoRows if there is none.
func (d *DB) GetByCustomer(customerID string) (*rules.RequirementSet, error) {
	row := d.conn.QueryRow(`
		SELECT id, customer_id, rules, created_at, updated_at
		FROM requirement_sets WHERE customer_id = ?`, customerID)
	return scan(row)
}

// ListFilter narrows List. Query matches customer ids by substring; a zero
// Limit means no limit.
type ListFilter struct {
	Query  string
	Limit  int
	Offset int
}

// List returns requirement sets ordered by most recently updated, together
// with the number of sets matching the filter before paging.
func (d *DB) List(f ListFilter) ([]*rules.RequirementSet, int, error) {
	where := ""
	var args []any
	if q := strings.TrimSpace(f.Query); q != "" {
		where = ` WHERE customer_id LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(q)+"%")
	}

	var total int
	if err := d.conn.QueryRow(`SELECT COUNT(*) FROM requirement_sets`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, customer_id, rules, created_at, updated_at
		FROM requirement_sets` + where + ` ORDER BY updated_at DESC, customer_id`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sets []*rules.RequirementSet
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		sets = append(sets, s)
	}
	return sets, total, rows.Err()
}

// Update replaces the rules of the set with s.ID and stamps updated_at.
// Concurrent writers race; the last one wins.
// Returns sql.ErrNoRows if no such set exists.
func (d *DB) Update(s *rules.RequirementSet) error {
	doc, err := encodeRules(s.Rules)
	if err != nil {
		return err
	}
	res, err := d.conn.Exec(`
		UPDATE requirement_sets
		SET rules=?, updated_at=?
		WHERE id=?`,
		doc,
		s.UpdatedAt.UTC().Format(time.RFC3339),
		s.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the requirement set with the given ID.
// Returns sql.ErrNoRows if no such set exists.
func (d *DB) Delete(id string) error {
	res, err := d.conn.Exec(`DELETE FROM requirement_sets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Stats summarises stored requirement sets for metrics.
type Stats struct {
	Sets             int
	RulesByArchetype map[rules.ServerArchetype]int
}

// Stats counts stored sets and their rules per server archetype.
func (d *DB) Stats() (Stats, error) {
	st := Stats{RulesByArchetype: make(map[rules.ServerArchetype]int)}
	rows, err := d.conn.Query(`SELECT rules FROM requirement_sets`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return st, err
		}
		rs, err := decodeRules(doc)
		if err != nil {
			return st, err
		}
		st.Sets++
		for _, r := range rs {
			st.RulesByArchetype[r.ServerArchetype]++
		}
	}
	return st, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*rules.RequirementSet, error) {
	var s rules.RequirementSet
	var doc, createdAt, updatedAt string
	if err := row.Scan(&s.ID, &s.CustomerID, &doc, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if s.Rules, err = decodeRules(doc); err != nil {
		return nil, err
	}
	s.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	s.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at %q: %w", updatedAt, err)
	}
	return &s, nil
}

func encodeRules(rs []rules.Rule) (string, error) {
	if rs == nil {
		rs = []rules.Rule{}
	}
	b, err := json.Marshal(rs)
	if err != nil {
		return "", fmt.Errorf("encode rules: %w", err)
	}
	return string(b), nil
}

func decodeRules(doc string) ([]rules.Rule, error) {
	var rs []rules.Rule
	if err := json.Unmarshal([]byte(doc), &rs); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if rs == nil {
		rs = []rules.Rule{}
	}
	return rs, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	// The base code shows up when extended result codes are off.
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT
}
