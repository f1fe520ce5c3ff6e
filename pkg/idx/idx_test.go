package idx_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reelpitch/reelpitch/pkg/idx"
)

func TestNew(t *testing.T) {
	t.Parallel()

	const n = 100

	ids := make([]string, 0, n)
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		id := idx.New().String()
		require.Len(t, id, 26)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		ids = append(ids, id)
	}

	// Monotonic entropy keeps same-millisecond IDs in creation order.
	require.True(t, sort.StringsAreSorted(ids))
}
