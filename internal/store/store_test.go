package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord() *DeploymentRecord {
	return &DeploymentRecord{
		Name:         "chain-test",
		RunID:        "3f1d2c44-7a08-4c6e-9a34-0f0f5f2d9b11",
		TopologyHash: "deadbeef",
		Resources: []Resource{
			{Kind: KindNetwork, Name: "upstream"},
			{Kind: KindNetwork, Name: "downstream"},
			{Kind: KindNode, Name: "decap"},
		},
	}
}

func TestGet_Missing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "never-saved")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSaveAndGet_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleRecord()))

	got, err := s.Get(ctx, "chain-test")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", got.TopologyHash)
	assert.Equal(t, "3f1d2c44-7a08-4c6e-9a34-0f0f5f2d9b11", got.RunID)
	assert.Len(t, got.Resources, 3)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSave_UpsertReplacesResources(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := sampleRecord()
	require.NoError(t, s.Save(ctx, rec))

	rec.TopologyHash = "cafef00d"
	rec.Resources = []Resource{{Kind: KindNode, Name: "decap"}}
	require.NoError(t, s.Save(ctx, rec))

	got, err := s.Get(ctx, "chain-test")
	require.NoError(t, err)
	assert.Equal(t, "cafef00d", got.TopologyHash)
	assert.Equal(t, []Resource{{Kind: KindNode, Name: "decap"}}, got.Resources,
		"stale resources from the earlier save must be gone")
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleRecord()))
	require.NoError(t, s.Delete(ctx, "chain-test"))

	_, err := s.Get(ctx, "chain-test")
	assert.True(t, errors.Is(err, ErrNotFound))

	// Deleting again is a no-op.
	require.NoError(t, s.Delete(ctx, "chain-test"))
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sampleRecord()))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "chain-test")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", got.TopologyHash)
}
