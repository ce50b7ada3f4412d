package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleReconcilesAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LECTIO_DATA_DIR", dir)
	ctx := context.Background()

	instance, err := New(ctx, "")
	require.NoError(t, err)

	src, err := instance.Sources.AddSource(ctx, "Mechanics", []byte("pdf bytes"))
	require.NoError(t, err)
	require.NoError(t, instance.Close())

	// A second instance over the same data dir picks the catalog and
	// active pointer back up
	reopened, err := New(ctx, "")
	require.NoError(t, err)
	defer reopened.Close()

	list := reopened.Sources.List()
	require.Len(t, list, 1)
	assert.Equal(t, src.ID, list[0].ID)

	active := reopened.Sources.Active()
	require.NotNil(t, active)
	assert.Equal(t, src.ID, active.ID)
}

func TestNewRejectsBadConfigPath(t *testing.T) {
	_, err := New(context.Background(), "/nonexistent/lectio.toml")
	assert.Error(t, err)
}
