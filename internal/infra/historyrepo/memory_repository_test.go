package historyrepo

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/meeting-summarizer/internal/domain/summarizer"
)

func TestMemoryRepositoryRecentNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 12; i++ {
		rec, err := repo.Append(ctx, summarizer.Record{Prompt: fmt.Sprintf("prompt %d", i), Summary: "- ok", CreatedAt: at})
		require.NoError(t, err)
		require.NotEmpty(t, rec.ID)
	}

	recent, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 10)
	require.Equal(t, "prompt 11", recent[0].Prompt)
	require.Equal(t, "prompt 2", recent[9].Prompt)

	again, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, recent, again)
}

func TestMemoryRepositoryEmpty(t *testing.T) {
	recent, err := NewMemoryRepository().Recent(context.Background(), 10)
	require.NoError(t, err)
	require.NotNil(t, recent)
	require.Empty(t, recent)
}

func TestMemoryRepositoryConcurrentAppend(t *testing.T) {
	repo := NewMemoryRepository()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.Append(context.Background(), summarizer.Record{Prompt: "p", Summary: "s"})
		}()
	}
	wg.Wait()

	recent, err := repo.Recent(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, recent, 20)

	ids := make(map[string]struct{}, len(recent))
	for _, rec := range recent {
		ids[rec.ID] = struct{}{}
	}
	require.Len(t, ids, 20)
}
