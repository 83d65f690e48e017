package customers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acip/internal/sentinel"
)

func TestSeededStore(t *testing.T) {
	ctx := context.Background()
	store := NewSeededStore()

	t.Run("seeded records are retrievable", func(t *testing.T) {
		rec, err := store.Get(ctx, "CUST-002")
		require.NoError(t, err)
		assert.Equal(t, "JANE", rec.FirstName)
		assert.Equal(t, "CITIZEN", rec.LastName)
		assert.Equal(t, "RA0123456", rec.IDNumber)
		assert.Equal(t, "PASSPORT", rec.DocumentType)
	})

	t.Run("unknown customer returns not found", func(t *testing.T) {
		_, err := store.Get(ctx, "CUST-999")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("list is ordered by customer id", func(t *testing.T) {
		records, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 4)
		assert.Equal(t, "CUST-001", records[0].CustomerID)
		assert.Equal(t, "CUST-004", records[3].CustomerID)
	})
}

func TestStore_Put(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.Put(ctx, Record{CustomerID: "CUST-100", FirstName: "NEW"}))

	rec, err := store.Get(ctx, "CUST-100")
	require.NoError(t, err)
	assert.Equal(t, "NEW", rec.FirstName)

	assert.ErrorIs(t, store.Put(ctx, Record{}), sentinel.ErrInvalidInput)
}
