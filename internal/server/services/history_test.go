package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/gophcredits/internal/common"
	"github.com/dmitrijs2005/gophcredits/internal/server/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedHistory leaves userID with one bonus and n usage transactions.
func seedHistory(t *testing.T, env *testEnv, userID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := env.usage.Debit(context.Background(), userID, 1, "export")
		require.NoError(t, err)
	}
}

func TestListTransactions_PagesNewestFirst(t *testing.T) {
	env := newTestEnv(t, withWelcomeBonus(100))
	seedHistory(t, env, "u-1", 24)
	ctx := context.Background()

	var all []string
	cursor := ""
	var pages []int
	for {
		page, err := env.history.ListTransactions(ctx, "u-1", 10, cursor)
		require.NoError(t, err)
		pages = append(pages, len(page.Items))
		for _, tx := range page.Items {
			all = append(all, tx.ID)
		}
		if !page.HasMore {
			assert.Empty(t, page.Cursor)
			break
		}
		assert.Equal(t, page.Items[len(page.Items)-1].ID, page.Cursor)
		cursor = page.Cursor
	}

	assert.Equal(t, []int{10, 10, 5}, pages)
	require.Len(t, all, 25)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i-1], all[i], "ids must be strictly descending")
	}

	first, err := env.history.ListTransactions(ctx, "u-1", 1, "")
	require.NoError(t, err)
	assert.Equal(t, int64(76), first.Items[0].BalanceAfter, "newest transaction comes first")
}

func TestListTransactions_LimitDefaults(t *testing.T) {
	env := newTestEnv(t, withWelcomeBonus(100))
	seedHistory(t, env, "u-1", 24)
	ctx := context.Background()

	page, err := env.history.ListTransactions(ctx, "u-1", 0, "")
	require.NoError(t, err)
	assert.Len(t, page.Items, DefaultHistoryLimit)
	assert.True(t, page.HasMore)

	page, err = env.history.ListTransactions(ctx, "u-1", 1000, "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 25)
	assert.False(t, page.HasMore)
}

func TestListTransactions_InvalidCursor(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.history.ListTransactions(context.Background(), "u-1", 10, "not-a-cursor")
	require.ErrorIs(t, err, common.ErrInvalidCursor)
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestListTransactions_UnknownUserIsEmptyAndReadOnly(t *testing.T) {
	env := newTestEnv(t)

	page, err := env.history.ListTransactions(context.Background(), "ghost", 10, "")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasMore)
	assert.Equal(t, 0, storetest.CountRows(t, env.db, `SELECT COUNT(*) FROM accounts`))
}
