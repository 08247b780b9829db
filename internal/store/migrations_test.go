package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milchgeldkassierer/SmartMailSorter-sub003/internal/model"
	"github.com/milchgeldkassierer/SmartMailSorter-sub003/tests/testutil"
)

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	accountID := seedAccount(t, s)
	require.NoError(t, s.UpsertMessage(ctx, &model.Message{AccountID: accountID, UID: 1}))

	// Running the schema setup again must not error and must not touch
	// existing data.
	require.NoError(t, s.EnsureSchema())
	require.NoError(t, s.EnsureSchema())

	messages, err := s.ListMessages(ctx, accountID)
	require.NoError(t, err)
	assert.Len(t, messages, 1)

	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, len(model.SystemCategories))
}

func TestSeedSkippedWhenCategoriesExist(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	// Remove one seeded category; a later schema pass must not restore
	// it, since the table is no longer empty and reseeding would clobber
	// user customization.
	require.NoError(t, s.DeleteCategory(ctx, model.SystemCategories[0].Name))
	require.NoError(t, s.EnsureSchema())

	names := mustCategoryNames(t, s)
	assert.NotContains(t, names, model.SystemCategories[0].Name)
	assert.Len(t, names, len(model.SystemCategories)-1)
}

func TestRepairRestoresCategoriesImpliedByMessages(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	accountID := seedAccount(t, s)

	_, err := s.AddCategory(ctx, "Rechnungen", model.CategoryTypeCustom)
	require.NoError(t, err)

	msg := &model.Message{AccountID: accountID, UID: 1}
	require.NoError(t, s.UpsertMessage(ctx, msg))
	require.NoError(t, s.UpdateSmartCategory(ctx, msg.ID, "Rechnungen", "", "", 0))

	// Simulate a lost category row: deleting also clears the label, so
	// re-apply it afterwards to leave a message referencing a category
	// that no longer exists.
	require.NoError(t, s.DeleteCategory(ctx, "Rechnungen"))
	require.NoError(t, s.UpdateSmartCategory(ctx, msg.ID, "Rechnungen", "", "", 0))
	assert.NotContains(t, mustCategoryNames(t, s), "Rechnungen")

	require.NoError(t, s.EnsureSchema())

	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	var found bool
	for _, c := range categories {
		if c.Name == "Rechnungen" {
			found = true
			assert.Equal(t, model.CategoryTypeCustom, c.Type)
		}
	}
	assert.True(t, found, "repair pass should restore the referenced category")
}
