package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reportcore/internal/record"
)

func TestWriteReadDataset_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rows := []record.Record{
		{"type": "X", "amt": 10, "ratio": 0.5, "ok": true},
		{"type": "Y", "amt": int64(1) << 60, "note": "<b>&</b>", "missing": nil},
		{"type": "Z", "tags": []any{"a", 1}},
	}
	require.NoError(t, s.WriteDataset(ctx, "sales", rows))

	got, err := s.ReadDataset(ctx, "sales")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, record.Record{"type": "X", "amt": int64(10), "ratio": 0.5, "ok": true}, got[0])
	assert.Equal(t, int64(1)<<60, got[1]["amt"], "large integers keep precision")
	assert.Equal(t, "<b>&</b>", got[1]["note"])
	assert.Contains(t, got[1], "missing")
	assert.Nil(t, got[1]["missing"])
	assert.Equal(t, []any{"a", int64(1)}, got[2]["tags"])
}

func TestWriteDataset_ReplacesAndKeepsOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteDataset(ctx, "d", []record.Record{{"i": 1}, {"i": 2}, {"i": 3}}))
	require.NoError(t, s.WriteDataset(ctx, "d", []record.Record{{"i": 9}, {"i": 8}}))

	got, err := s.ReadDataset(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, []record.Record{{"i": int64(9)}, {"i": int64(8)}}, got)
}

func TestWriteDataset_EmptyID(t *testing.T) {
	s := createTestStore(t)
	assert.Error(t, s.WriteDataset(context.Background(), "", nil))
}

func TestReadDataset_NotFoundAndEmpty(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.ReadDataset(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.WriteDataset(ctx, "empty", nil))
	got, err := s.ReadDataset(ctx, "empty")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListDeleteAndPrune(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := base
	s.now = func() time.Time { return now }

	require.NoError(t, s.WriteDataset(ctx, "old", []record.Record{{"a": 1}}))
	now = base.Add(500 * time.Millisecond)
	require.NoError(t, s.WriteDataset(ctx, "b-new", []record.Record{{"a": 1}, {"a": 2}}))
	now = base.Add(time.Hour)
	require.NoError(t, s.WriteDataset(ctx, "a-newest", nil))

	infos, err := s.ListDatasets(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, "a-newest", infos[0].ID)
	assert.Equal(t, DatasetInfo{ID: "b-new", RowCount: 2, ImportedAt: base.Add(500 * time.Millisecond)}, infos[1])

	n, err := s.Prune(ctx, base.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = s.ReadDataset(ctx, "b-new")
	assert.ErrorIs(t, err, ErrNotFound)

	var orphans int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM dataset_rows").Scan(&orphans))
	assert.Equal(t, 0, orphans, "rows cascade with their data set")

	require.NoError(t, s.DeleteDataset(ctx, "a-newest"))
	assert.ErrorIs(t, s.DeleteDataset(ctx, "a-newest"), ErrNotFound)
}

func TestUnmarshalRow_RejectsNonObjects(t *testing.T) {
	for _, data := range []string{"[1,2]", "null", "{bad"} {
		_, err := unmarshalRow(data)
		assert.Error(t, err, data)
	}
}
