package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentAccess_UniqueIndexIsLastLineOfDefence inserts locks from
// many goroutines without any in-process serialization. The unique indexes
// alone must let exactly one writer win per sub-node.
func TestConcurrentAccess_UniqueIndexIsLastLineOfDefence(t *testing.T) {
	database := testutil.NewFileTestDB(t)
	ctx := context.Background()

	node := testutil.NewTestNode("Race", testutil.WithSubNode("API", domain.TierBackend))
	require.NoError(t, NewSQLiteNodeRepo(database).Create(ctx, node))
	api := node.SubNodes[0]
	locks := NewSQLiteLockRepo(database)

	const writers = 12
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		losses  int
		unknown []error
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := locks.TryAcquire(ctx, &domain.Lock{
				ID:         fmt.Sprintf("l%d", i),
				NodeID:     node.ID,
				SubNodeID:  api.ID,
				UserID:     fmt.Sprintf("u%d", i),
				UserName:   fmt.Sprintf("User %d", i),
				AcquiredAt: time.Now(),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				unknown = append(unknown, err)
			case ok:
				wins++
			default:
				losses++
			}
		}(i)
	}
	wg.Wait()

	require.Empty(t, unknown)
	assert.Equal(t, 1, wins)
	assert.Equal(t, writers-1, losses)
}

// TestConcurrentAccess_ReadDuringWrite verifies that node listings stay
// consistent while another goroutine keeps adding nodes.
func TestConcurrentAccess_ReadDuringWrite(t *testing.T) {
	database := testutil.NewFileTestDB(t)
	ctx := context.Background()
	nodes := NewSQLiteNodeRepo(database)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 15; i++ {
			n := testutil.NewTestNode(fmt.Sprintf("Node-%d", i), testutil.WithSubNode("API", domain.TierBackend))
			if err := nodes.Create(ctx, n); err != nil {
				t.Errorf("writer: create node %d: %v", i, err)
				return
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func(reader int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				list, err := nodes.List(ctx)
				if err != nil {
					t.Errorf("reader %d: list: %v", reader, err)
					return
				}
				for _, n := range list {
					if n.ID == "" || n.Name == "" {
						t.Errorf("reader %d: half-written node %+v", reader, n)
					}
				}
			}
		}(r)
	}
	wg.Wait()

	count, err := nodes.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 15, count)
}
