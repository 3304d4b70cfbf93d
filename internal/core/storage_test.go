package core_test

import (
	"carecore/internal/blob"
	"carecore/internal/config"
	"carecore/internal/core"
	"carecore/internal/docstore"
	"carecore/internal/state/statetest"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenUsesConfiguredDrivers(t *testing.T) {
	cfg := config.Default()
	cfg.Docstore = docstore.Config{Driver: docstore.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "care.db")}
	cfg.Blob = blob.Config{Driver: blob.DriverFilesystem, FSRoot: t.TempDir()}

	svc, backends, err := core.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backends.Close() })

	assert.Equal(t, docstore.DriverSQLite, svc.Docs().Driver())
	assert.Equal(t, blob.DriverFilesystem, svc.Blobs().Driver())

	r := statetest.Recipient("", "Ada", "Lovelace")
	created, err := svc.CreateRecipient(context.Background(), r)
	require.NoError(t, err)

	loaded, err := svc.Load(context.Background(), statetest.Caregiver)
	require.NoError(t, err)
	require.Len(t, loaded.Recipients, 1)
	assert.Equal(t, created.ID, loaded.Recipients[0].ID)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Docstore.Driver = "mongo"

	_, _, err := core.Open(context.Background(), cfg)
	require.Error(t, err)
}

func TestBackendsCloseWithoutDocs(t *testing.T) {
	assert.NoError(t, core.Backends{}.Close())
}
