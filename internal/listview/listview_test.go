package listview

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-portal/internal/model"
)

func complaintFixtures(n int) []model.Complaint {
	items := make([]model.Complaint, 0, n)
	for i := 0; i < n; i++ {
		category := "food"
		if i%2 == 1 {
			category = "damage"
		}
		items = append(items, model.Complaint{
			ID:       fmt.Sprintf("c-%d", i),
			Title:    fmt.Sprintf("Complaint %d", i),
			Category: category,
			Severity: "medium",
			Status:   model.StatusPending,
		})
	}
	return items
}

func TestSearch_CaseInsensitiveSubstring(t *testing.T) {
	items := []model.Complaint{
		{ID: "1", Title: "Broken Fan", Description: "ceiling fan rattles"},
		{ID: "2", Title: "Mess food", StudentRoll: "HOSTEL-42"},
	}

	filter := Search(" hostel-42 ", func(c model.Complaint) []string {
		return []string{c.Title, c.Description, c.StudentRoll}
	})

	got := Apply(items, filter)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestExact_AllSentinelMatchesEverything(t *testing.T) {
	items := complaintFixtures(4)
	got := Apply(items, Exact("all", func(c model.Complaint) string { return c.Category }))
	assert.Len(t, got, 4)

	got = Apply(items, Exact("damage", func(c model.Complaint) string { return c.Category }))
	assert.Len(t, got, 2)
}

func TestPaginate_ClampsIntoRange(t *testing.T) {
	// 20 complaints, page size 8, filter matching 5: one page, and a
	// stale page cursor of 3 clamps back to 1.
	items := complaintFixtures(20)
	filtered := Apply(items, Exact("damage", func(c model.Complaint) string { return c.Category }))
	filtered = filtered[:5]
	require.Len(t, filtered, 5)

	page := Paginate(filtered, 3, 8)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Items, 5)
}

func TestPaginate_EmptyViewStillOnePage(t *testing.T) {
	page := Paginate([]model.Complaint{}, 5, 8)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 1, page.Page)
	assert.Empty(t, page.Items)
}

func TestPaginate_MiddlePage(t *testing.T) {
	page := Paginate(complaintFixtures(20), 2, 8)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Items, 8)
	assert.Equal(t, "c-8", page.Items[0].ID)
}

func TestCache_DeleteRollbackRestoresExactList(t *testing.T) {
	cache := NewCache(func(s model.StockItem) string { return s.ID })
	original := []model.StockItem{
		{ID: "a", Name: "Mop"},
		{ID: "b", Name: "Rice"},
		{ID: "c", Name: "Bulbs"},
	}
	require.NoError(t, cache.Load(context.Background(), func(context.Context) ([]model.StockItem, error) {
		return append([]model.StockItem{}, original...), nil
	}, false))

	err := cache.Delete(context.Background(), "b", func(context.Context) error {
		// The server rejects the delete after the optimistic removal.
		return errors.New("stock item is referenced by an open order")
	})
	require.Error(t, err)

	assert.Equal(t, original, cache.Items(), "rollback must restore the same items in the same order")
}

func TestCache_DeleteKeepsRemovalOnSuccess(t *testing.T) {
	cache := NewCache(func(s model.StockItem) string { return s.ID })
	require.NoError(t, cache.Load(context.Background(), func(context.Context) ([]model.StockItem, error) {
		return []model.StockItem{{ID: "a"}, {ID: "b"}}, nil
	}, false))

	require.NoError(t, cache.Delete(context.Background(), "a", func(context.Context) error { return nil }))

	items := cache.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ID)
}

func TestCache_PatchRollback(t *testing.T) {
	cache := NewCache(func(c model.Complaint) string { return c.ID })
	require.NoError(t, cache.Load(context.Background(), func(context.Context) ([]model.Complaint, error) {
		return complaintFixtures(3), nil
	}, false))

	err := cache.Patch(context.Background(), "c-1", func(c *model.Complaint) {
		c.Status = model.StatusResolved
	}, func(context.Context) error {
		return errors.New("resolve rejected")
	})
	require.Error(t, err)

	for _, c := range cache.Items() {
		assert.Equal(t, model.StatusPending, c.Status)
	}
}

func TestCache_PrependReplacesById(t *testing.T) {
	cache := NewCache(func(c model.Complaint) string { return c.ID })
	require.NoError(t, cache.Load(context.Background(), func(context.Context) ([]model.Complaint, error) {
		return complaintFixtures(2), nil
	}, false))

	// Canonical server object for an existing id replaces in place.
	cache.Replace(model.Complaint{ID: "c-1", Title: "Canonical", Status: model.StatusInProgress})
	items := cache.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Canonical", items[1].Title)

	// A brand new id lands at the front, newest first.
	cache.Prepend(model.Complaint{ID: "c-9", Title: "Fresh"})
	items = cache.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "c-9", items[0].ID)
}

func TestCache_LoadOnceUnlessForced(t *testing.T) {
	cache := NewCache(func(c model.Complaint) string { return c.ID })
	calls := 0
	fetch := func(context.Context) ([]model.Complaint, error) {
		calls++
		return complaintFixtures(1), nil
	}

	require.NoError(t, cache.Load(context.Background(), fetch, false))
	require.NoError(t, cache.Load(context.Background(), fetch, false))
	assert.Equal(t, 1, calls)

	require.NoError(t, cache.Load(context.Background(), fetch, true))
	assert.Equal(t, 2, calls)
}
