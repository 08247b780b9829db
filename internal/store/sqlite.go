package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/milchgeldkassierer/SmartMailSorter-sub003/internal/model"
	"github.com/milchgeldkassierer/SmartMailSorter-sub003/internal/secret"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db            *sqlx.DB
	cipher        CredentialCipher
	logger        *logrus.Logger
	defaultFolder string
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, enables
// WAL mode, and brings the schema up to date.
func NewSQLiteStore(dbPath string, cipher CredentialCipher, logger *logrus.Logger) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// SQLite allows a single writer; one pooled connection also keeps
	// :memory: databases from being recreated per connection.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys so account deletion cascades to messages
	// and attachments.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:            db,
		cipher:        cipher,
		logger:        logger,
		defaultFolder: model.DefaultFolder,
	}
	if err := s.EnsureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Open builds the credential codec from configuration and opens the
// store, running the one-time credential migration.
func Open(cfg *model.AppConfig, logger *logrus.Logger) (*SQLiteStore, error) {
	codec := secret.NewCodec(cfg.Store.KeyringService, logger)

	s, err := NewSQLiteStore(cfg.Store.DatabasePath, codec, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Store.DefaultFolder != "" {
		s.defaultFolder = cfg.Store.DefaultFolder
	}

	if err := s.MigrateCredentials(context.Background()); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrating credentials: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
