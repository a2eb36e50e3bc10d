// Package sqlite implements the descriptor store on a local SQLite file.
// Every operation opens the file, runs, and closes it again; no connection
// is held between requests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/kozaktomas/face-auth/internal/database"
	"github.com/kozaktomas/face-auth/internal/facematch"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS usuarios (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		nome               TEXT NOT NULL,
		nivel_acesso       INTEGER NOT NULL,
		codificacao_facial BLOB NOT NULL
	)
`

// Store is a SQLite-backed descriptor store.
type Store struct {
	path string
	log  zerolog.Logger
}

// New creates a store for the database file at path. The file is created
// on first use.
func New(path string, log zerolog.Logger) (*Store, error) {
	path = strings.TrimPrefix(path, "sqlite://")
	if path == "" {
		return nil, errors.New("sqlite database path is required")
	}
	return &Store{path: path, log: log.With().Str("store", "sqlite").Logger()}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// open returns a fresh connection handle; callers must close it.
func (s *Store) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", s.dsn())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	return db, nil
}

// dsn returns a SQLite URI for the store file. The path is percent-escaped
// so '?', '#' and '%' in file names are not read as URI syntax.
func (s *Store) dsn() string {
	path := (&url.URL{Path: s.path}).EscapedPath()
	return "file:" + path + "?_pragma=busy_timeout(5000)"
}

// EnsureSchema creates the usuarios table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	db, err := s.open(ctx)
	if err != nil {
		return database.NewStorageError("ensure schema", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return database.NewStorageError("ensure schema", fmt.Errorf("create usuarios table: %w", err))
	}
	s.log.Debug().Str("path", s.path).Msg("schema verified")
	return nil
}

// Save inserts a new user and returns its id.
func (s *Store) Save(ctx context.Context, displayName string, accessLevel int, descriptor database.Descriptor) (int64, error) {
	db, err := s.open(ctx)
	if err != nil {
		return 0, database.NewStorageError("save", err)
	}
	defer db.Close()

	res, err := db.ExecContext(ctx,
		"INSERT INTO usuarios (nome, nivel_acesso, codificacao_facial) VALUES (?, ?, ?)",
		displayName, accessLevel, database.EncodeDescriptor(descriptor),
	)
	if err != nil {
		return 0, database.NewStorageError("save", fmt.Errorf("insert user: %w", err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, database.NewStorageError("save", fmt.Errorf("last insert id: %w", err))
	}
	s.log.Debug().Int64("user_id", id).Msg("user saved")
	return id, nil
}

// LoadAll returns every enrolled descriptor ordered by id.
func (s *Store) LoadAll(ctx context.Context) ([]database.StoredDescriptor, error) {
	db, err := s.open(ctx)
	if err != nil {
		return nil, database.NewStorageError("load", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT id, nome, nivel_acesso, codificacao_facial FROM usuarios ORDER BY id")
	if err != nil {
		return nil, database.NewStorageError("load", fmt.Errorf("query users: %w", err))
	}
	defer rows.Close()

	result, err := database.ScanDescriptors(rows)
	if err != nil {
		return nil, database.NewStorageError("load", err)
	}
	for _, id := range result.Skipped {
		s.log.Warn().Int64("user_id", id).Msg("skipping user with malformed descriptor")
	}
	s.log.Debug().Int("count", len(result.Descriptors)).Msg("users loaded")
	return result.Descriptors, nil
}

// FindNearest returns the closest enrolled identity within tolerance.
func (s *Store) FindNearest(ctx context.Context, candidate database.Descriptor, tolerance float64) (facematch.Result, error) {
	return facematch.FindNearest(ctx, s, candidate, tolerance, s.log)
}

// Count returns the number of enrolled users.
func (s *Store) Count(ctx context.Context) (int, error) {
	db, err := s.open(ctx)
	if err != nil {
		return 0, database.NewStorageError("count", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM usuarios").Scan(&count); err != nil {
		return 0, database.NewStorageError("count", fmt.Errorf("count users: %w", err))
	}
	return count, nil
}

// Close is a no-op; connections never outlive a single operation.
func (s *Store) Close() error {
	return nil
}
