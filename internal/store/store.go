package store

import (
	"context"
	"time"

	"github.com/milchgeldkassierer/SmartMailSorter-sub003/internal/model"
	"github.com/milchgeldkassierer/SmartMailSorter-sub003/internal/search"
)

// CredentialCipher seals and opens account credentials. Availability
// must be checked before every encrypt or decrypt attempt; when the
// platform secret store is unusable, credentials are persisted in
// plaintext with an explicit flag.
type CredentialCipher interface {
	Available() bool
	IsSealed(value string) bool
	Encrypt(plaintext string) (string, error)
	Decrypt(blob string) (string, error)
}

// AddOutcome reports the effect of adding a category. Duplicate names
// are an expected result of racing discovery paths, not an error.
type AddOutcome int

const (
	CategoryCreated AddOutcome = iota
	CategoryAlreadyExists
)

// Store defines the persistence interface for the local mailbox mirror.
type Store interface {
	// === Accounts ===

	ListAccounts(ctx context.Context) ([]model.Account, error)
	GetAccountWithCredential(ctx context.Context, id string) (*model.Account, error)
	AddAccount(ctx context.Context, acc *model.Account) error
	UpdateSyncProgress(ctx context.Context, id string, lastUID int64, syncedAt time.Time) error
	UpdateQuota(ctx context.Context, id string, used, total int64) error
	DeleteAccount(ctx context.Context, id string) error
	MigrateCredentials(ctx context.Context) error

	// === Messages ===

	ListMessages(ctx context.Context, accountID string) ([]model.Message, error)
	SearchMessages(ctx context.Context, filter search.Filter) ([]model.Message, error)
	GetMessageContent(ctx context.Context, id string) (*model.MessageContent, error)
	GetAttachments(ctx context.Context, messageID string) ([]model.Attachment, error)
	GetAttachment(ctx context.Context, id string) (*model.Attachment, error)
	UpsertMessage(ctx context.Context, msg *model.Message) error
	UpdateSmartCategory(ctx context.Context, id, category, summary, reasoning string, confidence float64) error
	UpdateReadStatus(ctx context.Context, id string, read bool) error
	UpdateFlagStatus(ctx context.Context, id string, flagged bool) error
	DeleteMessage(ctx context.Context, id string) error
	DeleteByUids(ctx context.Context, accountID, folder string, uids []int64) (int64, error)
	MaxUidForFolder(ctx context.Context, accountID, folder string) (int64, error)
	AllUidsForFolder(ctx context.Context, accountID, folder string) ([]int64, error)
	MigrateFolder(ctx context.Context, oldName, newName string) error
	UnreadCount(ctx context.Context, accountID string) (int, error)
	TotalUnreadCount(ctx context.Context) (int, error)
	ResetAll(ctx context.Context) error

	// === Categories ===

	ListCategories(ctx context.Context) ([]model.Category, error)
	AddCategory(ctx context.Context, name string, typ model.CategoryType) (AddOutcome, error)
	UpdateCategoryType(ctx context.Context, name string, typ model.CategoryType) error
	DeleteCategory(ctx context.Context, name string) error
	RenameCategory(ctx context.Context, oldName, newName string) error

	// === Notification settings ===

	GetNotificationSetting(ctx context.Context, accountID string) (model.NotificationSetting, error)
	UpsertNotificationSetting(ctx context.Context, setting model.NotificationSetting) error

	// === Lifecycle ===

	Close() error
}
