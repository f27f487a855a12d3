// Package docstore keeps JSON documents in a single SQLite table, one row per
// (collection, id) with a version counter used for optimistic writes.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-sales/internal/domain/apperr"
	"github.com/mattn/go-sqlite3"
)

const (
	driverName         = "sqlite3"
	defaultBusyTimeout = "5000"
	defaultJournalMode = "WAL"
	defaultSynchronous = "NORMAL"
	maxModifyAttempts  = 5
)

var (
	ErrNotFound  = errors.New("docstore: document not found")
	ErrDuplicate = errors.New("docstore: duplicate document")
	// ErrConflict is returned by Modify after every attempt lost a concurrent write.
	ErrConflict = fmt.Errorf("docstore: too many concurrent writes: %w", apperr.ErrConflict)

	errVersionMismatch = errors.New("docstore: version mismatch")
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT    NOT NULL,
	id         TEXT    NOT NULL,
	version    INTEGER NOT NULL DEFAULT 1,
	body       TEXT    NOT NULL,
	PRIMARY KEY (collection, id)
);
CREATE UNIQUE INDEX IF NOT EXISTS documents_users_email
	ON documents (json_extract(body, '$.email')) WHERE collection = 'users';
CREATE UNIQUE INDEX IF NOT EXISTS documents_clients_email
	ON documents (json_extract(body, '$.email')) WHERE collection = 'clients';
`

type Store struct {
	db *sql.DB
}

// Open connects to the SQLite file at path (":memory:" for a private in-memory
// database) with a single writer connection, WAL journal and busy timeout.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open(driverName, buildDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if path != ":memory:" {
		db.SetConnMaxLifetime(time.Hour)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return New(db), nil
}

// New wraps an already opened database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func buildDSN(path string) string {
	params := url.Values{}
	params.Set("_journal_mode", defaultJournalMode)
	params.Set("_busy_timeout", defaultBusyTimeout)
	params.Set("_synchronous", defaultSynchronous)
	params.Set("_txlock", "immediate")
	return path + "?" + params.Encode()
}

// Init creates the documents table and its indexes when missing.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Collection returns a handle scoped to one collection name.
func (s *Store) Collection(name string) *Collection {
	return &Collection{db: s.db, name: name}
}

type Collection struct {
	db   *sql.DB
	name string
}

// Document is a raw stored row.
type Document struct {
	ID      string
	Version int64
	Body    []byte
}

// Decode unmarshals the document body into dst.
func (d Document) Decode(dst any) error {
	if err := json.Unmarshal(d.Body, dst); err != nil {
		return fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return nil
}

func (c *Collection) Insert(ctx context.Context, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c.name, id, err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, version, body) VALUES (?, ?, 1, ?)`,
		c.name, id, string(body))
	if err != nil {
		return c.wrap("insert", id, err)
	}
	return nil
}

// Get decodes the document into dst and returns its current version.
func (c *Collection) Get(ctx context.Context, id string, dst any) (int64, error) {
	var (
		version int64
		body    string
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT version, body FROM documents WHERE collection = ? AND id = ?`,
		c.name, id).Scan(&version, &body)
	if err != nil {
		return 0, c.wrap("get", id, err)
	}
	if err := json.Unmarshal([]byte(body), dst); err != nil {
		return 0, fmt.Errorf("decode %s/%s: %w", c.name, id, err)
	}
	return version, nil
}

// Replace overwrites the document only if it is still at version.
func (c *Collection) Replace(ctx context.Context, id string, version int64, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c.name, id, err)
	}
	res, err := c.db.ExecContext(ctx,
		`UPDATE documents SET body = ?, version = version + 1 WHERE collection = ? AND id = ? AND version = ?`,
		string(body), c.name, id, version)
	if err != nil {
		return c.wrap("replace", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return c.wrap("replace", id, err)
	}
	if n == 0 {
		return errVersionMismatch
	}
	return nil
}

func (c *Collection) Delete(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, c.name, id)
	if err != nil {
		return c.wrap("delete", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return c.wrap("delete", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Match selects documents whose top-level Field equals Value.
type Match struct {
	Field string
	Value any
}

// Contains selects documents whose Field contains any of Terms, case-insensitively.
type Contains struct {
	Field string
	Terms []string
}

type Query struct {
	Equal    []Match
	Contains *Contains
	Limit    int
}

// Find returns matching documents in insertion order.
func (c *Collection) Find(ctx context.Context, q Query) ([]Document, error) {
	var sb strings.Builder
	args := []any{c.name}
	sb.WriteString(`SELECT id, version, body FROM documents WHERE collection = ?`)

	for _, m := range q.Equal {
		sb.WriteString(` AND json_extract(body, ?) = ?`)
		args = append(args, "$."+m.Field, m.Value)
	}
	if q.Contains != nil && len(q.Contains.Terms) > 0 {
		sb.WriteString(` AND (`)
		for i, term := range q.Contains.Terms {
			if i > 0 {
				sb.WriteString(` OR `)
			}
			sb.WriteString(`lower(json_extract(body, ?)) LIKE ? ESCAPE '\'`)
			args = append(args, "$."+q.Contains.Field, "%"+escapeLike(strings.ToLower(term))+"%")
		}
		sb.WriteString(`)`)
	}
	sb.WriteString(` ORDER BY rowid`)
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}

	rows, err := c.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, c.wrap("find", "", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			d    Document
			body string
		)
		if err := rows.Scan(&d.ID, &d.Version, &body); err != nil {
			return nil, c.wrap("find", "", err)
		}
		d.Body = []byte(body)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, c.wrap("find", "", err)
	}
	return docs, nil
}

// FindOne returns the first match or ErrNotFound.
func (c *Collection) FindOne(ctx context.Context, q Query, dst any) error {
	q.Limit = 1
	docs, err := c.Find(ctx, q)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return ErrNotFound
	}
	return docs[0].Decode(dst)
}

// Modify runs a read-modify-write of one document, retrying when another writer
// got in between. An error from fn aborts without writing and is returned as is.
func Modify[T any](ctx context.Context, c *Collection, id string, fn func(doc *T) error) (*T, error) {
	for attempt := 0; attempt < maxModifyAttempts; attempt++ {
		var doc T
		version, err := c.Get(ctx, id, &doc)
		if err != nil {
			return nil, err
		}
		if err := fn(&doc); err != nil {
			return nil, err
		}
		err = c.Replace(ctx, id, version, &doc)
		if err == nil {
			return &doc, nil
		}
		if !errors.Is(err, errVersionMismatch) {
			return nil, err
		}
	}
	return nil, ErrConflict
}

func (c *Collection) wrap(op, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%s %s/%s: %w", op, c.name, id, ErrDuplicate)
	}
	return fmt.Errorf("%s %s/%s: %w", op, c.name, id, err)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
