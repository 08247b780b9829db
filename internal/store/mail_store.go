package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/milchgeldkassierer/SmartMailSorter-sub003/internal/model"
	"github.com/milchgeldkassierer/SmartMailSorter-sub003/internal/sanitize"
	"github.com/milchgeldkassierer/SmartMailSorter-sub003/internal/search"
)

// messageListColumns is the list projection: the large body columns are
// excluded and fetched on demand through GetMessageContent.
const messageListColumns = `id, account_id, sender_name, sender_email, subject,
	date, folder, smart_category, read, flagged, has_attachments,
	ai_summary, ai_reasoning, ai_confidence, uid`

// ListMessages retrieves all cached messages for an account, newest
// first, without their body content.
func (s *SQLiteStore) ListMessages(ctx context.Context, accountID string) ([]model.Message, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT "+messageListColumns+" FROM emails WHERE account_id = ? ORDER BY date DESC",
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

// SearchMessages retrieves the list projection of all messages matching
// a compiled search filter, newest first.
func (s *SQLiteStore) SearchMessages(ctx context.Context, filter search.Filter) ([]model.Message, error) {
	query := "SELECT " + messageListColumns + " FROM emails" +
		filter.WhereClause() + " ORDER BY date DESC"

	rows, err := s.db.QueryxContext(ctx, query, filter.Args...)
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

// GetMessageContent retrieves only the body fields of one message, for
// lazy loading. NULL columns come back as nil pointers, distinguishing
// never-fetched content from a genuinely empty body.
func (s *SQLiteStore) GetMessageContent(ctx context.Context, id string) (*model.MessageContent, error) {
	var content model.MessageContent
	err := s.db.QueryRowxContext(ctx,
		"SELECT body, body_html FROM emails WHERE id = ?", id,
	).Scan(&content.Body, &content.BodyHTML)
	if err != nil {
		return nil, fmt.Errorf("getting content for message %s: %w", id, err)
	}
	return &content, nil
}

// GetAttachments retrieves attachment metadata for a message, without
// the binary payloads.
func (s *SQLiteStore) GetAttachments(ctx context.Context, messageID string) ([]model.Attachment, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, email_id, filename, content_type, size
		FROM attachments WHERE email_id = ? ORDER BY filename`, messageID)
	if err != nil {
		return nil, fmt.Errorf("querying attachments for message %s: %w", messageID, err)
	}
	defer rows.Close()

	var attachments []model.Attachment
	for rows.Next() {
		var a model.Attachment
		if err := rows.Scan(&a.ID, &a.MessageID, &a.Filename, &a.ContentType, &a.Size); err != nil {
			return nil, fmt.Errorf("scanning attachment row: %w", err)
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

// GetAttachment retrieves one attachment including its binary payload.
func (s *SQLiteStore) GetAttachment(ctx context.Context, id string) (*model.Attachment, error) {
	var a model.Attachment
	err := s.db.QueryRowxContext(ctx, `
		SELECT id, email_id, filename, content_type, size, content
		FROM attachments WHERE id = ?`, id,
	).Scan(&a.ID, &a.MessageID, &a.Filename, &a.ContentType, &a.Size, &a.Content)
	if err != nil {
		return nil, fmt.Errorf("getting attachment %s: %w", id, err)
	}
	return &a, nil
}

// UpsertMessage inserts or replaces a message by ID, together with any
// attachment children it carries, in one transaction. Missing fields
// are normalized to safe defaults. Replacing an existing row cascades
// away its previous attachments.
func (s *SQLiteStore) UpsertMessage(ctx context.Context, msg *model.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if strings.TrimSpace(msg.SenderName) == "" && strings.TrimSpace(msg.SenderEmail) == "" {
		msg.SenderName = model.UnknownSender
	}
	if strings.TrimSpace(msg.Subject) == "" {
		msg.Subject = model.NoSubject
	}
	if strings.TrimSpace(msg.Folder) == "" {
		msg.Folder = s.defaultFolder
	}
	if msg.Date.IsZero() {
		msg.Date = time.Now().UTC()
	}
	if len(msg.Attachments) > 0 {
		msg.HasAttachments = true
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO emails (
			id, account_id, sender_name, sender_email, subject,
			body, body_html, date, folder, smart_category,
			read, flagged, has_attachments,
			ai_summary, ai_reasoning, ai_confidence, uid
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.AccountID, msg.SenderName, msg.SenderEmail, msg.Subject,
		msg.Body, msg.BodyHTML, msg.Date.UTC(), msg.Folder, msg.SmartCategory,
		boolToInt(msg.Read), boolToInt(msg.Flagged), boolToInt(msg.HasAttachments),
		msg.AISummary, msg.AIReasoning, msg.AIConfidence, msg.UID,
	)
	if err != nil {
		return fmt.Errorf("upserting message %s: %w", msg.ID, err)
	}

	for i := range msg.Attachments {
		att := &msg.Attachments[i]
		if att.ID == "" {
			att.ID = uuid.New().String()
		}
		att.MessageID = msg.ID
		att.Filename = sanitize.Filename(att.Filename)
		if att.Size == 0 {
			att.Size = int64(len(att.Content))
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO attachments (id, email_id, filename, content_type, size, content)
			VALUES (?, ?, ?, ?, ?, ?)`,
			att.ID, att.MessageID, att.Filename, att.ContentType, att.Size, att.Content,
		); err != nil {
			return fmt.Errorf("upserting attachment %s: %w", att.ID, err)
		}
	}

	return tx.Commit()
}

// UpdateSmartCategory assigns the AI categorization result to a
// message. An empty category clears the label.
func (s *SQLiteStore) UpdateSmartCategory(ctx context.Context, id, category, summary, reasoning string, confidence float64) error {
	var cat *string
	if category != "" {
		cat = &category
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE emails SET smart_category = ?, ai_summary = ?, ai_reasoning = ?, ai_confidence = ?
		WHERE id = ?`,
		cat, summary, reasoning, confidence, id,
	)
	if err != nil {
		return fmt.Errorf("updating smart category for message %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("message %s not found", id)
	}
	return nil
}

// UpdateReadStatus sets the read flag on a message.
func (s *SQLiteStore) UpdateReadStatus(ctx context.Context, id string, read bool) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE emails SET read = ? WHERE id = ?", boolToInt(read), id)
	if err != nil {
		return fmt.Errorf("updating read status for message %s: %w", id, err)
	}
	return nil
}

// UpdateFlagStatus sets the flagged flag on a message.
func (s *SQLiteStore) UpdateFlagStatus(ctx context.Context, id string, flagged bool) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE emails SET flagged = ? WHERE id = ?", boolToInt(flagged), id)
	if err != nil {
		return fmt.Errorf("updating flag status for message %s: %w", id, err)
	}
	return nil
}

// DeleteMessage removes one message. Cascades to its attachments.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM emails WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting message %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("message %s not found", id)
	}
	return nil
}

// DeleteByUids removes all messages matching the given UIDs within one
// (account, folder) scope. The whole batch is a single statement, so it
// applies atomically. Returns the number of rows actually removed; UIDs
// with no matching row are simply not counted.
func (s *SQLiteStore) DeleteByUids(ctx context.Context, accountID, folder string, uids []int64) (int64, error) {
	if len(uids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(
		"DELETE FROM emails WHERE account_id = ? AND folder = ? AND uid IN (?)",
		accountID, folder, uids,
	)
	if err != nil {
		return 0, fmt.Errorf("building uid delete: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting messages by uid: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted messages: %w", err)
	}
	return removed, nil
}

// MaxUidForFolder returns the highest cached UID for one (account,
// folder) scope, or 0 when the folder holds no messages. A reconciler
// uses this to bound its next incremental fetch.
func (s *SQLiteStore) MaxUidForFolder(ctx context.Context, accountID, folder string) (int64, error) {
	var maxUID int64
	err := s.db.GetContext(ctx, &maxUID,
		"SELECT COALESCE(MAX(uid), 0) FROM emails WHERE account_id = ? AND folder = ?",
		accountID, folder,
	)
	if err != nil {
		return 0, fmt.Errorf("getting max uid for folder %s: %w", folder, err)
	}
	return maxUID, nil
}

// AllUidsForFolder returns every cached UID for one (account, folder)
// scope. A reconciler subtracts the remote UID listing from this set to
// find orphaned messages without re-fetching bodies.
func (s *SQLiteStore) AllUidsForFolder(ctx context.Context, accountID, folder string) ([]int64, error) {
	var uids []int64
	err := s.db.SelectContext(ctx, &uids,
		"SELECT uid FROM emails WHERE account_id = ? AND folder = ? AND uid > 0 ORDER BY uid",
		accountID, folder,
	)
	if err != nil {
		return nil, fmt.Errorf("listing uids for folder %s: %w", folder, err)
	}
	return uids, nil
}

// MigrateFolder renames a physical folder: every message in oldName
// moves to newName and the matching category row is renamed along with
// it. When a category named newName already exists the old row is
// deleted instead, so the name stays unique. All in one transaction.
func (s *SQLiteStore) MigrateFolder(ctx context.Context, oldName, newName string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE emails SET folder = ? WHERE folder = ?", newName, oldName); err != nil {
		return fmt.Errorf("moving messages from folder %s: %w", oldName, err)
	}

	var newExists int
	if err := tx.GetContext(ctx, &newExists,
		"SELECT COUNT(*) FROM categories WHERE name = ?", newName); err != nil {
		return fmt.Errorf("checking category %s: %w", newName, err)
	}

	if newExists > 0 {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM categories WHERE name = ?", oldName); err != nil {
			return fmt.Errorf("removing category %s: %w", oldName, err)
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			"UPDATE categories SET name = ? WHERE name = ?", newName, oldName); err != nil {
			return fmt.Errorf("renaming category %s: %w", oldName, err)
		}
	}

	return tx.Commit()
}

// UnreadCount returns the number of unread messages for one account.
func (s *SQLiteStore) UnreadCount(ctx context.Context, accountID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM emails WHERE account_id = ? AND read = 0", accountID)
	if err != nil {
		return 0, fmt.Errorf("counting unread messages: %w", err)
	}
	return count, nil
}

// TotalUnreadCount returns the number of unread messages across all
// accounts.
func (s *SQLiteStore) TotalUnreadCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM emails WHERE read = 0")
	if err != nil {
		return 0, fmt.Errorf("counting unread messages: %w", err)
	}
	return count, nil
}

// ResetAll drops every table and rebuilds the schema from scratch. Only
// invoked for an explicit user-triggered full reset; the store is fully
// usable again when it returns.
func (s *SQLiteStore) ResetAll(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{
		"attachments", "emails", "notification_settings", "accounts",
		"categories", "schema_version",
	} {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("dropping table %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reset: %w", err)
	}

	return s.EnsureSchema()
}

// collectMessages drains a list-projection result set.
func collectMessages(rows *sqlx.Rows) ([]model.Message, error) {
	var messages []model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// scanMessage scans one list-projection row, normalizing the persisted
// 0/1 flags into real booleans.
func scanMessage(rows rowScanner) (model.Message, error) {
	var (
		msg           model.Message
		smartCategory sql.NullString
		read          int
		flagged       int
		hasAtt        int
	)

	err := rows.Scan(
		&msg.ID, &msg.AccountID, &msg.SenderName, &msg.SenderEmail, &msg.Subject,
		&msg.Date, &msg.Folder, &smartCategory, &read, &flagged, &hasAtt,
		&msg.AISummary, &msg.AIReasoning, &msg.AIConfidence, &msg.UID,
	)
	if err != nil {
		return model.Message{}, fmt.Errorf("scanning message row: %w", err)
	}

	if smartCategory.Valid {
		v := smartCategory.String
		msg.SmartCategory = &v
	}
	msg.Read = read != 0
	msg.Flagged = flagged != 0
	msg.HasAttachments = hasAtt != 0
	return msg, nil
}
