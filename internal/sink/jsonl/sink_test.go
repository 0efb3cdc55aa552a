package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
)

func TestSink_WritesOneLinePerItem(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "items.jsonl")
	s, err := NewSink(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Write(ctx, harvest.Item{Hit: &harvest.SearchHit{ID: "a"}}, ""))
	require.NoError(t, s.Write(ctx, harvest.Item{Profile: &harvest.Profile{ID: "p"}}, "full-profile"))
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck // test cleanup

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		lines = append(lines, m)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 2)
	require.NotContains(t, lines[0], "_category")
	require.Equal(t, "full-profile", lines[1]["_category"])
}
