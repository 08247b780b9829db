package model

import "time"

// Account identifies one remote mailbox connection and tracks its
// synchronization progress.
type Account struct {
	// ID is the stable unique identifier for this account. It never
	// changes after creation and is referenced by all cached messages.
	ID string `json:"id"`

	// Name is the user-defined display label for the account.
	Name string `json:"name"`

	// Email is the mailbox address.
	Email string `json:"email"`

	// Host and Port locate the remote mail server.
	Host string `json:"host"`
	Port int    `json:"port"`

	// Username is the login name for the remote server.
	Username string `json:"username"`

	// Credential is the stored secret. It holds either a sealed blob
	// produced by the secret codec or, when encryption is unavailable,
	// the plaintext value. List projections leave it empty.
	Credential string `json:"-"`

	// CredentialEncrypted reports whether Credential is stored as a
	// sealed blob. False means the value sits on disk in plaintext and
	// the UI must warn the user.
	CredentialEncrypted bool `json:"credential_encrypted"`

	// Color is the display color used for the account badge.
	Color string `json:"color"`

	// LastUID is the highest remote UID seen so far, used to bound the
	// next incremental fetch.
	LastUID int64 `json:"last_uid"`

	// QuotaUsed and QuotaTotal mirror the server-reported storage quota
	// in bytes. Zero when the server did not report one.
	QuotaUsed  int64 `json:"quota_used"`
	QuotaTotal int64 `json:"quota_total"`

	// LastSync is when a synchronization pass last completed.
	LastSync *time.Time `json:"last_sync,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
