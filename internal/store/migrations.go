package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/milchgeldkassierer/SmartMailSorter-sub003/internal/model"
)

// migration holds a single schema migration with its target version.
// Each step runs inside its own transaction together with the version
// bump, so a failed step rolls back fully and can be retried.
type migration struct {
	version int
	apply   func(tx *sqlx.Tx) error
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{version: 1, apply: execSQL(`
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
	id                   TEXT PRIMARY KEY,
	name                 TEXT NOT NULL DEFAULT '',
	email                TEXT NOT NULL DEFAULT '',
	host                 TEXT NOT NULL DEFAULT '',
	port                 INTEGER NOT NULL DEFAULT 993,
	username             TEXT NOT NULL DEFAULT '',
	credential           TEXT NOT NULL DEFAULT '',
	credential_encrypted INTEGER NOT NULL DEFAULT 0 CHECK(credential_encrypted IN (0, 1)),
	color                TEXT NOT NULL DEFAULT '',
	last_uid             INTEGER NOT NULL DEFAULT 0,
	quota_used           INTEGER NOT NULL DEFAULT 0,
	quota_total          INTEGER NOT NULL DEFAULT 0,
	last_sync            DATETIME,
	created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS emails (
	id              TEXT PRIMARY KEY,
	account_id      TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	sender_name     TEXT NOT NULL DEFAULT '',
	sender_email    TEXT NOT NULL DEFAULT '',
	subject         TEXT NOT NULL DEFAULT '',
	body            TEXT,
	body_html       TEXT,
	date            DATETIME NOT NULL,
	folder          TEXT NOT NULL DEFAULT 'INBOX',
	smart_category  TEXT,
	read            INTEGER NOT NULL DEFAULT 0 CHECK(read IN (0, 1)),
	flagged         INTEGER NOT NULL DEFAULT 0 CHECK(flagged IN (0, 1)),
	has_attachments INTEGER NOT NULL DEFAULT 0 CHECK(has_attachments IN (0, 1)),
	uid             INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS attachments (
	id           TEXT PRIMARY KEY,
	email_id     TEXT NOT NULL REFERENCES emails(id) ON DELETE CASCADE,
	filename     TEXT NOT NULL DEFAULT '',
	content_type TEXT NOT NULL DEFAULT '',
	size         INTEGER NOT NULL DEFAULT 0,
	content      BLOB
);

CREATE TABLE IF NOT EXISTS categories (
	name TEXT PRIMARY KEY,
	type TEXT NOT NULL DEFAULT 'custom' CHECK(type IN ('system', 'custom', 'folder'))
);

CREATE TABLE IF NOT EXISTS notification_settings (
	account_id       TEXT PRIMARY KEY REFERENCES accounts(id) ON DELETE CASCADE,
	enabled          INTEGER NOT NULL DEFAULT 1 CHECK(enabled IN (0, 1)),
	muted_categories TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_emails_account_id ON emails(account_id);
CREATE INDEX IF NOT EXISTS idx_emails_date ON emails(date);
CREATE INDEX IF NOT EXISTS idx_emails_folder ON emails(account_id, folder);
CREATE INDEX IF NOT EXISTS idx_emails_smart_category ON emails(smart_category);
CREATE INDEX IF NOT EXISTS idx_attachments_email_id ON attachments(email_id);

CREATE UNIQUE INDEX IF NOT EXISTS idx_emails_remote
	ON emails(account_id, folder, uid) WHERE uid > 0;
`)},
	{version: 2, apply: func(tx *sqlx.Tx) error {
		cols := []struct{ name, ddl string }{
			{"ai_summary", "ai_summary TEXT NOT NULL DEFAULT ''"},
			{"ai_reasoning", "ai_reasoning TEXT NOT NULL DEFAULT ''"},
			{"ai_confidence", "ai_confidence REAL NOT NULL DEFAULT 0"},
		}
		for _, col := range cols {
			if err := addColumnIfMissing(tx, "emails", col.name, col.ddl); err != nil {
				return err
			}
		}
		return nil
	}},
}

// execSQL wraps a plain SQL script as a migration step.
func execSQL(script string) func(tx *sqlx.Tx) error {
	return func(tx *sqlx.Tx) error {
		_, err := tx.Exec(script)
		return err
	}
}

// addColumnIfMissing applies an additive ALTER TABLE, tolerating a
// column that already exists from a previous partial run.
func addColumnIfMissing(tx *sqlx.Tx, table, column, ddl string) error {
	var count int
	err := tx.Get(&count,
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column)
	if err != nil {
		return fmt.Errorf("inspecting %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	if _, err := tx.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, ddl)); err != nil {
		return fmt.Errorf("adding column %s.%s: %w", table, column, err)
	}
	return nil
}

// EnsureSchema applies any outstanding migrations, seeds the default
// categories into an empty categories table, and repairs category rows
// implied by cached messages. Safe to call repeatedly.
func (s *SQLiteStore) EnsureSchema() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if err := s.applyMigration(m); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	if err := s.seedCategories(); err != nil {
		return err
	}
	return s.repairCategories()
}

// applyMigration runs one migration step and its version bump in a
// single transaction.
func (s *SQLiteStore) applyMigration(m migration) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := m.apply(tx); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
		return fmt.Errorf("recording version: %w", err)
	}
	return tx.Commit()
}

// seedCategories inserts the system default categories, but only into
// an empty table so user customization is never clobbered.
func (s *SQLiteStore) seedCategories() error {
	var count int
	if err := s.db.Get(&count, "SELECT COUNT(*) FROM categories"); err != nil {
		return fmt.Errorf("counting categories: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, cat := range model.SystemCategories {
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO categories (name, type) VALUES (?, ?)",
			cat.Name, string(cat.Type),
		); err != nil {
			return fmt.Errorf("seeding category %s: %w", cat.Name, err)
		}
	}
	return tx.Commit()
}

// repairCategories restores category rows referenced by cached messages
// but missing from the categories table, guarding against a lost
// category table independent of message data.
func (s *SQLiteStore) repairCategories() error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO categories (name, type)
		SELECT DISTINCT smart_category, 'custom'
		FROM emails
		WHERE smart_category IS NOT NULL AND smart_category != ''`)
	if err != nil {
		return fmt.Errorf("repairing categories from messages: %w", err)
	}
	return nil
}
