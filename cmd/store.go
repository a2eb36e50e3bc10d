package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-auth/internal/biometric"
	"github.com/kozaktomas/face-auth/internal/config"
	"github.com/kozaktomas/face-auth/internal/database/mariadb"
	"github.com/kozaktomas/face-auth/internal/database/postgres"
	"github.com/kozaktomas/face-auth/internal/database/sqlite"
	"github.com/kozaktomas/face-auth/internal/facematch"
	"github.com/kozaktomas/face-auth/internal/fingerprint"
	"github.com/rs/zerolog"
)

// openStore opens the descriptor store selected by DATABASE_URL and makes
// sure the usuarios table exists.
func openStore(ctx context.Context, cfg *config.DatabaseConfig, log zerolog.Logger) (biometric.Store, error) {
	var store biometric.Store

	switch cfg.Backend() {
	case config.BackendPostgres:
		repo, err := postgres.Open(cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		store = repo
	case config.BackendMariaDB:
		repo, err := mariadb.Open(cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MariaDB: %w", err)
		}
		store = repo
	default:
		s, err := sqlite.New(cfg.URL, log)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
		}
		store = s
	}

	log.Info().Str("backend", string(cfg.Backend())).Msg("descriptor store ready")
	return store, nil
}

// newService wires the store, the embedding client and the matcher.
func newService(cfg *config.Config, store biometric.Store, log zerolog.Logger) *biometric.Service {
	extractor := fingerprint.NewFaceClient(cfg.Embedding, log)
	matcher := facematch.NewMatcher(cfg.Matcher.Tolerance, log)
	return biometric.NewService(store, extractor, matcher, log)
}
