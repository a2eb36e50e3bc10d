package mariadb

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-auth/internal/database"
	"github.com/kozaktomas/face-auth/internal/facematch"
)

const schema = `
	CREATE TABLE IF NOT EXISTS usuarios (
		id                 BIGINT AUTO_INCREMENT PRIMARY KEY,
		nome               TEXT NOT NULL,
		nivel_acesso       INT NOT NULL,
		codificacao_facial LONGBLOB NOT NULL
	) DEFAULT CHARSET = utf8mb4
`

// UserRepository provides MariaDB-backed descriptor storage.
type UserRepository struct {
	pool *Pool
}

// NewUserRepository creates a new MariaDB user repository.
func NewUserRepository(pool *Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// EnsureSchema creates the usuarios table if it does not exist.
func (r *UserRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.db.ExecContext(ctx, schema); err != nil {
		return database.NewStorageError("ensure schema", fmt.Errorf("create usuarios table: %w", err))
	}
	return nil
}

// Save inserts a new user and returns its id.
func (r *UserRepository) Save(
	ctx context.Context, displayName string, accessLevel int, descriptor database.Descriptor,
) (int64, error) {
	res, err := r.pool.db.ExecContext(ctx,
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
	r.pool.log.Debug().Int64("user_id", id).Msg("user saved")
	return id, nil
}

// LoadAll returns every enrolled descriptor ordered by id.
func (r *UserRepository) LoadAll(ctx context.Context) ([]database.StoredDescriptor, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		"SELECT id, nome, nivel_acesso, codificacao_facial FROM usuarios ORDER BY id")
	if err != nil {
		return nil, database.NewStorageError("load", fmt.Errorf("query users: %w", err))
	}
	defer rows.Close()

	result, err := database.ScanDescriptors(rows)
	if err != nil {
		return nil, database.NewStorageError("load", err)
	}
	for _, id := range result.Skipped {
		r.pool.log.Warn().Int64("user_id", id).Msg("skipping user with malformed descriptor")
	}
	return result.Descriptors, nil
}

// FindNearest returns the closest enrolled identity within tolerance.
func (r *UserRepository) FindNearest(
	ctx context.Context, candidate database.Descriptor, tolerance float64,
) (facematch.Result, error) {
	return facematch.FindNearest(ctx, r, candidate, tolerance, r.pool.log)
}

// Count returns the number of enrolled users.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM usuarios").Scan(&count); err != nil {
		return 0, database.NewStorageError("count", fmt.Errorf("count users: %w", err))
	}
	return count, nil
}

// Close closes the underlying pool.
func (r *UserRepository) Close() error {
	return r.pool.Close()
}
