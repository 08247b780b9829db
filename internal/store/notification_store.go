package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/milchgeldkassierer/SmartMailSorter-sub003/internal/model"
)

// GetNotificationSetting retrieves the notification preferences for an
// account. An absent record resolves to the defaults, never an error. A
// corrupt muted-categories list falls back to empty with a logged
// warning.
func (s *SQLiteStore) GetNotificationSetting(ctx context.Context, accountID string) (model.NotificationSetting, error) {
	var (
		enabled int
		mutedJS string
	)
	err := s.db.QueryRowxContext(ctx,
		"SELECT enabled, muted_categories FROM notification_settings WHERE account_id = ?",
		accountID,
	).Scan(&enabled, &mutedJS)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultNotificationSetting(accountID), nil
	}
	if err != nil {
		return model.NotificationSetting{}, fmt.Errorf("getting notification setting for account %s: %w", accountID, err)
	}

	setting := model.NotificationSetting{
		AccountID:       accountID,
		Enabled:         enabled != 0,
		MutedCategories: []string{},
	}
	if mutedJS != "" {
		if err := json.Unmarshal([]byte(mutedJS), &setting.MutedCategories); err != nil {
			s.logger.WithField("account", accountID).WithError(err).
				Warn("muted categories list is corrupt, using empty list")
			setting.MutedCategories = []string{}
		}
	}
	return setting, nil
}

// UpsertNotificationSetting replaces the whole notification record for
// an account.
func (s *SQLiteStore) UpsertNotificationSetting(ctx context.Context, setting model.NotificationSetting) error {
	muted := setting.MutedCategories
	if muted == nil {
		muted = []string{}
	}
	mutedJS, err := json.Marshal(muted)
	if err != nil {
		return fmt.Errorf("marshaling muted categories: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO notification_settings (account_id, enabled, muted_categories)
		VALUES (?, ?, ?)`,
		setting.AccountID, boolToInt(setting.Enabled), string(mutedJS),
	)
	if err != nil {
		return fmt.Errorf("upserting notification setting for account %s: %w", setting.AccountID, err)
	}
	return nil
}
