package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/milchgeldkassierer/SmartMailSorter-sub003/internal/model"
)

const accountColumns = `id, name, email, host, port, username, credential,
	credential_encrypted, color, last_uid, quota_used, quota_total,
	last_sync, created_at`

// ListAccounts retrieves all accounts with the credential field left
// blank, safe to hand to the UI.
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, name, email, host, port, username, '',
			credential_encrypted, color, last_uid, quota_used, quota_total,
			last_sync, created_at
		FROM accounts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

// GetAccountWithCredential retrieves one account with the credential
// decrypted. A credential that cannot be decrypted is returned as
// stored, with a logged warning; a corrupt credential never makes the
// account unreadable.
func (s *SQLiteStore) GetAccountWithCredential(ctx context.Context, id string) (*model.Account, error) {
	row := s.db.QueryRowxContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)

	acc, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("getting account %s: %w", id, err)
	}

	if acc.Credential != "" && s.cipher.IsSealed(acc.Credential) {
		if !s.cipher.Available() {
			s.logger.WithField("account", id).
				Warn("credential is encrypted but the secret store is unavailable")
			return &acc, nil
		}
		plaintext, err := s.cipher.Decrypt(acc.Credential)
		if err != nil {
			s.logger.WithField("account", id).WithError(err).
				Warn("decrypting credential failed, returning stored value")
			return &acc, nil
		}
		acc.Credential = plaintext
	}

	return &acc, nil
}

// AddAccount persists a new account. The credential is sealed through
// the codec when encryption is available; otherwise it is stored in
// plaintext and the record's CredentialEncrypted flag stays false so
// the condition is visible to the caller.
func (s *SQLiteStore) AddAccount(ctx context.Context, acc *model.Account) error {
	if acc.ID == "" {
		acc.ID = uuid.New().String()
	}
	acc.CreatedAt = time.Now().UTC()

	credential := acc.Credential
	acc.CredentialEncrypted = false
	if credential != "" && s.cipher.Available() {
		sealed, err := s.cipher.Encrypt(credential)
		if err != nil {
			return fmt.Errorf("encrypting credential: %w", err)
		}
		credential = sealed
		acc.CredentialEncrypted = true
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (
			id, name, email, host, port, username,
			credential, credential_encrypted, color,
			last_uid, quota_used, quota_total, last_sync, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		acc.ID, acc.Name, acc.Email, acc.Host, acc.Port, acc.Username,
		credential, boolToInt(acc.CredentialEncrypted), acc.Color,
		acc.LastUID, acc.QuotaUsed, acc.QuotaTotal, acc.LastSync, acc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating account %s: %w", acc.ID, err)
	}
	return nil
}

// UpdateSyncProgress records the UID high-water mark and timestamp of a
// completed synchronization pass.
func (s *SQLiteStore) UpdateSyncProgress(ctx context.Context, id string, lastUID int64, syncedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE accounts SET last_uid = ?, last_sync = ? WHERE id = ?",
		lastUID, syncedAt.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating sync progress for account %s: %w", id, err)
	}
	return nil
}

// UpdateQuota records the server-reported storage quota.
func (s *SQLiteStore) UpdateQuota(ctx context.Context, id string, used, total int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE accounts SET quota_used = ?, quota_total = ? WHERE id = ?",
		used, total, id,
	)
	if err != nil {
		return fmt.Errorf("updating quota for account %s: %w", id, err)
	}
	return nil
}

// DeleteAccount removes an account. Foreign keys cascade to its
// messages, attachments, and notification settings.
func (s *SQLiteStore) DeleteAccount(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting account %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("account %s not found", id)
	}
	return nil
}

// MigrateCredentials runs the one-time startup pass over all stored
// credentials. Legacy plaintext values are sealed in place when
// encryption is available. The whole pass is one transaction, so a
// crash mid-migration leaves the prior state intact. Sealed blobs that
// fail to open are left untouched with a logged warning.
func (s *SQLiteStore) MigrateCredentials(ctx context.Context) error {
	if !s.cipher.Available() {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryxContext(ctx, "SELECT id, credential FROM accounts")
	if err != nil {
		return fmt.Errorf("querying credentials: %w", err)
	}

	type pending struct{ id, sealed string }
	var updates []pending
	for rows.Next() {
		var id, credential string
		if err := rows.Scan(&id, &credential); err != nil {
			rows.Close()
			return fmt.Errorf("scanning credential row: %w", err)
		}
		if credential == "" {
			continue
		}
		if s.cipher.IsSealed(credential) {
			if _, err := s.cipher.Decrypt(credential); err != nil {
				s.logger.WithField("account", id).WithError(err).
					Warn("stored credential is corrupt, leaving as-is")
			}
			continue
		}
		sealed, err := s.cipher.Encrypt(credential)
		if err != nil {
			rows.Close()
			return fmt.Errorf("encrypting legacy credential for account %s: %w", id, err)
		}
		updates = append(updates, pending{id: id, sealed: sealed})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, u := range updates {
		if _, err := tx.ExecContext(ctx,
			"UPDATE accounts SET credential = ?, credential_encrypted = 1 WHERE id = ?",
			u.sealed, u.id,
		); err != nil {
			return fmt.Errorf("migrating credential for account %s: %w", u.id, err)
		}
		s.logger.WithField("account", u.id).Info("migrated legacy plaintext credential")
	}

	return tx.Commit()
}

// rowScanner is satisfied by both sqlx.Row and sqlx.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanAccount scans one account row.
func scanAccount(rows rowScanner) (model.Account, error) {
	var (
		acc       model.Account
		encrypted int
		lastSync  sql.NullTime
	)

	err := rows.Scan(
		&acc.ID, &acc.Name, &acc.Email, &acc.Host, &acc.Port, &acc.Username,
		&acc.Credential, &encrypted, &acc.Color,
		&acc.LastUID, &acc.QuotaUsed, &acc.QuotaTotal,
		&lastSync, &acc.CreatedAt,
	)
	if err != nil {
		return model.Account{}, fmt.Errorf("scanning account row: %w", err)
	}

	acc.CredentialEncrypted = encrypted != 0
	if lastSync.Valid {
		t := lastSync.Time
		acc.LastSync = &t
	}
	return acc, nil
}
