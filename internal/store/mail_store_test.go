package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milchgeldkassierer/SmartMailSorter-sub003/internal/model"
	"github.com/milchgeldkassierer/SmartMailSorter-sub003/internal/store"
	"github.com/milchgeldkassierer/SmartMailSorter-sub003/tests/testutil"
)

// seedAccount creates an account and returns its ID.
func seedAccount(t *testing.T, s *store.SQLiteStore) string {
	t.Helper()
	acc := testAccount("")
	require.NoError(t, s.AddAccount(context.Background(), acc))
	return acc.ID
}

func strPtr(v string) *string { return &v }

func TestUpsertMessageAppliesDefaults(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	accountID := seedAccount(t, s)

	msg := &model.Message{AccountID: accountID, UID: 1}
	require.NoError(t, s.UpsertMessage(ctx, msg))
	require.NotEmpty(t, msg.ID)

	messages, err := s.ListMessages(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, model.UnknownSender, messages[0].SenderName)
	assert.Equal(t, model.NoSubject, messages[0].Subject)
	assert.Equal(t, model.DefaultFolder, messages[0].Folder)
	assert.False(t, messages[0].Date.IsZero())
}

func TestListMessagesProjectionAndOrder(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	accountID := seedAccount(t, s)

	older := &model.Message{
		AccountID: accountID,
		Subject:   "older",
		Body:      strPtr("large body"),
		BodyHTML:  strPtr("<p>large body</p>"),
		Date:      time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		Read:      true,
		Flagged:   true,
		UID:       1,
	}
	newer := &model.Message{
		AccountID: accountID,
		Subject:   "newer",
		Date:      time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		UID:       2,
	}
	require.NoError(t, s.UpsertMessage(ctx, older))
	require.NoError(t, s.UpsertMessage(ctx, newer))

	messages, err := s.ListMessages(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	// Newest first, bodies excluded, 0/1 flags normalized.
	assert.Equal(t, "newer", messages[0].Subject)
	assert.Equal(t, "older", messages[1].Subject)
	assert.Nil(t, messages[1].Body)
	assert.Nil(t, messages[1].BodyHTML)
	assert.True(t, messages[1].Read)
	assert.True(t, messages[1].Flagged)
	assert.False(t, messages[0].Read)
}

func TestGetMessageContentTriState(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	accountID := seedAccount(t, s)

	notFetched := &model.Message{AccountID: accountID, Subject: "headers only", UID: 1}
	fetchedEmpty := &model.Message{
		AccountID: accountID, Subject: "empty body", UID: 2,
		Body: strPtr(""), BodyHTML: strPtr(""),
	}
	fetched := &model.Message{
		AccountID: accountID, Subject: "full", UID: 3,
		Body: strPtr("hello"), BodyHTML: strPtr("<p>hello</p>"),
	}
	for _, msg := range []*model.Message{notFetched, fetchedEmpty, fetched} {
		require.NoError(t, s.UpsertMessage(ctx, msg))
	}

	content, err := s.GetMessageContent(ctx, notFetched.ID)
	require.NoError(t, err)
	assert.Nil(t, content.Body)
	assert.Nil(t, content.BodyHTML)

	content, err = s.GetMessageContent(ctx, fetchedEmpty.ID)
	require.NoError(t, err)
	require.NotNil(t, content.Body)
	assert.Equal(t, "", *content.Body)

	content, err = s.GetMessageContent(ctx, fetched.ID)
	require.NoError(t, err)
	require.NotNil(t, content.Body)
	assert.Equal(t, "hello", *content.Body)
	require.NotNil(t, content.BodyHTML)
	assert.Equal(t, "<p>hello</p>", *content.BodyHTML)
}

func TestUpsertMessagePersistsAttachments(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	accountID := seedAccount(t, s)

	msg := &model.Message{
		AccountID: accountID,
		Subject:   "invoices",
		UID:       1,
		Attachments: []model.Attachment{
			{Filename: "../../etc/passwd", ContentType: "text/plain", Content: []byte("a")},
			{Filename: "rechnung.pdf", ContentType: "application/pdf", Content: []byte("pdf-bytes")},
		},
	}
	require.NoError(t, s.UpsertMessage(ctx, msg))

	messages, err := s.ListMessages(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.True(t, messages[0].HasAttachments)

	attachments, err := s.GetAttachments(ctx, msg.ID)
	require.NoError(t, err)
	require.Len(t, attachments, 2)

	// Metadata only, filenames sanitized.
	for _, a := range attachments {
		assert.Nil(t, a.Content)
		assert.NotContains(t, a.Filename, "/")
	}

	full, err := s.GetAttachment(ctx, msg.Attachments[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "rechnung.pdf", full.Filename)
	assert.Equal(t, []byte("pdf-bytes"), full.Content)
	assert.Equal(t, int64(len("pdf-bytes")), full.Size)
}

func TestNarrowUpdates(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	accountID := seedAccount(t, s)

	msg := &model.Message{AccountID: accountID, Subject: "status", UID: 1}
	require.NoError(t, s.UpsertMessage(ctx, msg))

	require.NoError(t, s.UpdateReadStatus(ctx, msg.ID, true))
	require.NoError(t, s.UpdateFlagStatus(ctx, msg.ID, true))
	require.NoError(t, s.UpdateSmartCategory(ctx, msg.ID, "Rechnungen", "an invoice", "sender is a shop", 0.93))

	messages, err := s.ListMessages(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	got := messages[0]
	assert.True(t, got.Read)
	assert.True(t, got.Flagged)
	require.NotNil(t, got.SmartCategory)
	assert.Equal(t, "Rechnungen", *got.SmartCategory)
	assert.Equal(t, "an invoice", got.AISummary)
	assert.Equal(t, "sender is a shop", got.AIReasoning)
	assert.InDelta(t, 0.93, got.AIConfidence, 1e-9)

	// Clearing the category nulls the label.
	require.NoError(t, s.UpdateSmartCategory(ctx, msg.ID, "", "", "", 0))
	messages, err = s.ListMessages(ctx, accountID)
	require.NoError(t, err)
	assert.Nil(t, messages[0].SmartCategory)
}

func TestDeleteMessageCascadesToAttachments(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	accountID := seedAccount(t, s)

	msg := &model.Message{
		AccountID:   accountID,
		UID:         1,
		Attachments: []model.Attachment{{Filename: "a.txt", Content: []byte("a")}},
	}
	require.NoError(t, s.UpsertMessage(ctx, msg))
	require.NoError(t, s.DeleteMessage(ctx, msg.ID))

	_, err := s.GetAttachment(ctx, msg.Attachments[0].ID)
	assert.Error(t, err)
}

func TestDeleteByUids(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	accountID := seedAccount(t, s)

	for _, uid := range []int64{1, 2, 3} {
		require.NoError(t, s.UpsertMessage(ctx, &model.Message{
			AccountID: accountID, Folder: "INBOX", UID: uid,
		}))
	}
	// Same UID in another folder must survive.
	require.NoError(t, s.UpsertMessage(ctx, &model.Message{
		AccountID: accountID, Folder: "Archive", UID: 2,
	}))

	// Non-existent UIDs are simply not counted.
	removed, err := s.DeleteByUids(ctx, accountID, "INBOX", []int64{2, 3, 99})
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	uids, err := s.AllUidsForFolder(ctx, accountID, "INBOX")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, uids)

	uids, err = s.AllUidsForFolder(ctx, accountID, "Archive")
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, uids)
}

func TestDeleteByUidsEmptyBatch(t *testing.T) {
	s := testutil.NewTestStore(t)
	removed, err := s.DeleteByUids(context.Background(), "acc", "INBOX", nil)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestMaxUidForFolder(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	accountID := seedAccount(t, s)

	maxUID, err := s.MaxUidForFolder(ctx, accountID, "INBOX")
	require.NoError(t, err)
	assert.Zero(t, maxUID)

	for _, uid := range []int64{5, 12, 7} {
		require.NoError(t, s.UpsertMessage(ctx, &model.Message{
			AccountID: accountID, Folder: "INBOX", UID: uid,
		}))
	}

	maxUID, err = s.MaxUidForFolder(ctx, accountID, "INBOX")
	require.NoError(t, err)
	assert.Equal(t, int64(12), maxUID)
}

func TestMigrateFolderMergesIntoExistingCategory(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	accountID := seedAccount(t, s)

	const oldName = "Posteingang/Old"
	const newName = "Posteingang/New"

	for uid := int64(1); uid <= 3; uid++ {
		require.NoError(t, s.UpsertMessage(ctx, &model.Message{
			AccountID: accountID, Folder: oldName, UID: uid,
		}))
	}
	_, err := s.AddCategory(ctx, oldName, model.CategoryTypeFolder)
	require.NoError(t, err)
	_, err = s.AddCategory(ctx, newName, model.CategoryTypeFolder)
	require.NoError(t, err)

	require.NoError(t, s.MigrateFolder(ctx, oldName, newName))

	messages, err := s.ListMessages(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	for _, msg := range messages {
		assert.Equal(t, newName, msg.Folder)
	}

	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	var newCount, oldCount int
	for _, c := range categories {
		switch c.Name {
		case newName:
			newCount++
		case oldName:
			oldCount++
		}
	}
	assert.Equal(t, 1, newCount)
	assert.Zero(t, oldCount)
}

func TestMigrateFolderRenamesCategory(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	accountID := seedAccount(t, s)

	require.NoError(t, s.UpsertMessage(ctx, &model.Message{
		AccountID: accountID, Folder: "Drafts", UID: 1,
	}))
	_, err := s.AddCategory(ctx, "Drafts", model.CategoryTypeFolder)
	require.NoError(t, err)

	require.NoError(t, s.MigrateFolder(ctx, "Drafts", "Entwürfe"))

	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	names := categoryNames(categories)
	assert.Contains(t, names, "Entwürfe")
	assert.NotContains(t, names, "Drafts")
}

func TestUnreadCounts(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	first := seedAccount(t, s)

	second := testAccount("")
	second.Email = "other@example.com"
	require.NoError(t, s.AddAccount(ctx, second))

	require.NoError(t, s.UpsertMessage(ctx, &model.Message{AccountID: first, UID: 1}))
	require.NoError(t, s.UpsertMessage(ctx, &model.Message{AccountID: first, UID: 2, Read: true}))
	require.NoError(t, s.UpsertMessage(ctx, &model.Message{AccountID: second.ID, UID: 1}))

	count, err := s.UnreadCount(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	total, err := s.TotalUnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestResetAllLeavesUsableStore(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	accountID := seedAccount(t, s)
	require.NoError(t, s.UpsertMessage(ctx, &model.Message{AccountID: accountID, UID: 1}))

	require.NoError(t, s.ResetAll(ctx))

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)

	// The schema is rebuilt and reseeded; the store stays usable.
	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, len(model.SystemCategories))

	require.NoError(t, s.AddAccount(ctx, testAccount("")))
}
