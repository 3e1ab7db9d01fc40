package sqlite

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MemoryDatabaseSurvivesConcurrentUse(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	id := seedSnippet(t, db, seed{name: "shared state", owner: alice, public: true})

	// Parallel queries must all see the migrated schema even when the pool
	// would otherwise hand out fresh connections.
	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 4 {
				if _, err := db.LikeCount(ctx, id); err != nil {
					errs <- err
					return
				}
				if _, err := db.UserExists(ctx, alice); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	exists, err := db.UserExists(ctx, alice)
	require.NoError(t, err)
	assert.True(t, exists)
}
