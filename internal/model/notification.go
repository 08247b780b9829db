package model

// NotificationSetting holds the per-account notification preferences.
// Absent settings resolve to the defaults returned by
// DefaultNotificationSetting, never to an error.
type NotificationSetting struct {
	AccountID string `json:"account_id"`

	// Enabled controls whether new-mail notifications fire at all.
	Enabled bool `json:"enabled"`

	// MutedCategories lists smart-category names that never notify.
	MutedCategories []string `json:"muted_categories"`
}

// DefaultNotificationSetting returns the setting used when no record
// exists for the account.
func DefaultNotificationSetting(accountID string) NotificationSetting {
	return NotificationSetting{
		AccountID:       accountID,
		Enabled:         true,
		MutedCategories: []string{},
	}
}
