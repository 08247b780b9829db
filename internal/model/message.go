package model

import "time"

// DefaultFolder is the physical folder assigned to messages cached
// without an explicit folder name.
const DefaultFolder = "INBOX"

// NoSubject is the placeholder stored for messages without a subject line.
const NoSubject = "(No Subject)"

// UnknownSender is the placeholder stored for messages without sender
// information.
const UnknownSender = "Unknown"

// Message is a locally cached copy of one remote message.
type Message struct {
	// ID is the locally generated identifier, stable across resyncs.
	// All other components reference messages by this key.
	ID string `json:"id"`

	// AccountID is the owning account.
	AccountID string `json:"account_id"`

	// SenderName and SenderEmail identify the message author.
	SenderName  string `json:"sender_name"`
	SenderEmail string `json:"sender_email"`

	Subject string `json:"subject"`

	// Body and BodyHTML are tri-state: nil means the content has not
	// been fetched from the server yet, a pointer to an empty string
	// means it was fetched and is genuinely empty. List projections
	// always leave both nil.
	Body     *string `json:"body,omitempty"`
	BodyHTML *string `json:"body_html,omitempty"`

	// Date is the message timestamp as reported by the server.
	Date time.Time `json:"date"`

	// Folder is the physical folder on the remote mailbox that this
	// message was observed in.
	Folder string `json:"folder"`

	// SmartCategory is the virtual label assigned by the user or the AI
	// categorizer, independent of the physical folder. Nil when the
	// message has no label.
	SmartCategory *string `json:"smart_category,omitempty"`

	Read           bool `json:"read"`
	Flagged        bool `json:"flagged"`
	HasAttachments bool `json:"has_attachments"`

	// AISummary, AIReasoning and AIConfidence carry the categorizer's
	// output for this message. Empty / zero when not categorized.
	AISummary    string  `json:"ai_summary,omitempty"`
	AIReasoning  string  `json:"ai_reasoning,omitempty"`
	AIConfidence float64 `json:"ai_confidence,omitempty"`

	// UID is the server-assigned identifier within Folder. Not globally
	// unique; (AccountID, Folder, UID) identifies the remote counterpart
	// when UID is non-zero.
	UID int64 `json:"uid"`

	// Attachments are the child attachment records carried by an upsert.
	// Only populated on write; reads go through the attachment queries.
	Attachments []Attachment `json:"attachments,omitempty"`
}

// MessageContent carries only the lazily loaded body fields of a
// message. Nil pointers mean the content has not been fetched yet.
type MessageContent struct {
	Body     *string `json:"body"`
	BodyHTML *string `json:"body_html"`
}

// Attachment is binary content belonging to a message. Attachments are
// written together with their message and never mutated afterwards.
type Attachment struct {
	ID          string `json:"id"`
	MessageID   string `json:"message_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Content     []byte `json:"-"`
}
