package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repolens/internal/types"
)

func record(id, user string, at time.Time) types.HistoryRecord {
	return types.HistoryRecord{ID: id, UserID: user, Kind: types.KindExplain, Title: id, CreatedAt: at}
}

func TestMemoryStore_ListNewestFirstPerUser(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Save(ctx, record("a", "u1", base)))
	require.NoError(t, s.Save(ctx, record("b", "u1", base.Add(time.Hour))))
	require.NoError(t, s.Save(ctx, record("c", "u2", base.Add(2*time.Hour))))

	got, err := s.List(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)

	limited, err := s.List(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := s.List(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemoryStore_GetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	rec := record("a", "u1", time.Now())
	rec.Kind = types.KindRepository
	rec.Analysis = &types.AnalysisResult{RepositoryName: "octo/demo"}
	require.NoError(t, s.Save(ctx, rec))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, "octo/demo", got.Analysis.RepositoryName)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "a"), ErrNotFound)
}

func TestMemoryStore_ValidatesRecords(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	assert.Error(t, s.Save(ctx, types.HistoryRecord{UserID: "u", Kind: types.KindExplain}))
	assert.Error(t, s.Save(ctx, types.HistoryRecord{ID: "x", Kind: types.KindExplain}))
	assert.Error(t, s.Save(ctx, types.HistoryRecord{ID: "x", UserID: "u", Kind: "other"}))
}

func TestNewPostgresStore_RequiresDB(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}
