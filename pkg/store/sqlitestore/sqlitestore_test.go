package sqlitestore

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexusgeometry/internal/models"
	"nexusgeometry/pkg/store"
)

func TestRowsAreCommittedOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geometry.db")
	s, err := Create(path)
	require.NoError(t, err)

	require.NoError(t, s.CreateGroup("/entry"))
	require.NoError(t, s.CreateDataset("/entry/detector_number", models.IntArray([]int64{1, 2}), store.DatasetOptions{}))
	require.NoError(t, s.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&count))
	assert.Equal(t, 3, count)

	var parent string
	require.NoError(t, db.QueryRow(`SELECT parent FROM nodes WHERE path = ?`, "/entry/detector_number").Scan(&parent))
	assert.Equal(t, "/entry", parent)
}

func TestChildrenKeepInsertionOrder(t *testing.T) {
	s, err := Create(filepath.Join(t.TempDir(), "order.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	for _, name := range []string{"z", "a", "m"} {
		require.NoError(t, s.CreateGroup("/"+name))
	}
	names, err := s.Children("/")
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, names)

	_, err = s.Children("/missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
