package file

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
)

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()

	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Get(ctx, "crawling-state")
	require.ErrorIs(t, err, harvest.ErrNotFound)

	require.NoError(t, s.Set(ctx, "crawling-state", []byte(`{"scrapedPageNumber":3}`)))

	got, err := s.Get(ctx, "crawling-state")
	require.NoError(t, err)
	require.JSONEq(t, `{"scrapedPageNumber":3}`, string(got))
}

func TestStore_OverwriteKeepsLatest(t *testing.T) {
	t.Parallel()

	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("one")))
	require.NoError(t, s.Set(ctx, "k", []byte("two")))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "two", string(got))
}

func TestStore_RejectsPathTraversalKeys(t *testing.T) {
	t.Parallel()

	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.Error(t, s.Set(context.Background(), "../escape", []byte("x")))
	_, err = s.Get(context.Background(), "a/b")
	require.Error(t, err)
}
