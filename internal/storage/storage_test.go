package storage_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/prefixbot/datastore"
	"github.com/keshon/prefixbot/internal/storage"
)

func newStorage(t *testing.T) (*storage.Storage, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.json")
	cfg := datastore.DefaultConfig(path)
	cfg.AutoSaveInterval = 0
	ds, err := datastore.NewWithConfig(cfg)
	require.NoError(t, err)
	return storage.New(ds), path
}

func TestPrefix(t *testing.T) {
	s, _ := newStorage(t)
	defer s.Close()

	p, err := s.GetPrefix("g1")
	require.NoError(t, err)
	assert.Empty(t, p)

	require.NoError(t, s.SetPrefix("g1", "?"))
	p, err = s.GetPrefix("g1")
	require.NoError(t, err)
	assert.Equal(t, "?", p)

	p, err = s.GetPrefix("g2")
	require.NoError(t, err)
	assert.Empty(t, p)
}

func TestGroups(t *testing.T) {
	s, _ := newStorage(t)
	defer s.Close()

	require.NoError(t, s.DisableGroup("g", "fun"))
	require.NoError(t, s.DisableGroup("g", "fun"))
	require.NoError(t, s.DisableGroup("g", "utility"))

	groups, err := s.GetDisabledGroups("g")
	require.NoError(t, err)
	assert.Equal(t, []string{"fun", "utility"}, groups)

	disabled, err := s.IsGroupDisabled("g", "fun")
	require.NoError(t, err)
	assert.True(t, disabled)

	require.NoError(t, s.EnableGroup("g", "fun"))
	disabled, err = s.IsGroupDisabled("g", "fun")
	require.NoError(t, err)
	assert.False(t, disabled)
}

func TestCommandHistory(t *testing.T) {
	s, _ := newStorage(t)
	defer s.Close()

	for i := range 60 {
		require.NoError(t, s.AppendCommandHistory("g", storage.CommandHistory{
			Command:  "ping",
			UserID:   string(rune('a' + i%26)),
			Datetime: time.Unix(int64(i), 0),
		}))
	}

	all, err := s.FetchCommandHistory("g", 0)
	require.NoError(t, err)
	assert.Len(t, all, 50)
	assert.Equal(t, int64(59), all[len(all)-1].Datetime.Unix())

	last, err := s.FetchCommandHistory("g", 3)
	require.NoError(t, err)
	require.Len(t, last, 3)
	assert.Equal(t, int64(57), last[0].Datetime.Unix())
}

func TestPersistsAcrossReopen(t *testing.T) {
	s, path := newStorage(t)
	require.NoError(t, s.SetPrefix("g", ">>"))
	require.NoError(t, s.DisableGroup("g", "fun"))
	require.NoError(t, s.Close())

	ds, err := datastore.New(path)
	require.NoError(t, err)
	reopened := storage.New(ds)
	defer reopened.Close()

	p, err := reopened.GetPrefix("g")
	require.NoError(t, err)
	assert.Equal(t, ">>", p)
	groups, err := reopened.GetDisabledGroups("g")
	require.NoError(t, err)
	assert.Equal(t, []string{"fun"}, groups)
}
