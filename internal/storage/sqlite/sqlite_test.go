package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teammap/teammap/internal/config"
	"github.com/teammap/teammap/pkg/core"
)

var at = time.Date(2024, 12, 21, 18, 0, 0, 0, time.UTC)

func TestNew(t *testing.T) {
	b, err := New(config.SQLiteConfig{}, nil)
	require.NoError(t, err)
	require.NotNil(t, b.Backend)
	require.NoError(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestClose_DumpsAndNextRunRestores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	cfg := config.SQLiteConfig{Path: path}

	first, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, first.Init())
	require.NoError(t, first.StartSession(&core.Session{ViewerTZ: "Europe/London", StartedAt: at}))
	require.NoError(t, first.RecordSelection(&core.SelectionRecord{Time: at, Source: core.SourceCommit, AFrac: 0.5, BFrac: 0.625}))
	require.NoError(t, first.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, path, first.ExportedFilePath())

	second, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, second.Init())
	defer second.Close()

	last, err := second.LastSelection()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 0.5, last.AFrac)
	assert.Equal(t, 0.625, last.BFrac)

	s := &core.Session{StartedAt: at.Add(time.Hour)}
	require.NoError(t, second.StartSession(s))
	assert.Equal(t, uint(2), s.ID)
}

func TestDumpLoop_WritesPeriodically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	b, err := New(config.SQLiteConfig{Path: path, DumpInterval: 20 * time.Millisecond}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestInit_CorruptDumpIsIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	require.NoError(t, os.WriteFile(path, []byte("not a database"), 0644))

	b, err := New(config.SQLiteConfig{Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())

	last, err := b.LastSelection()
	require.NoError(t, err)
	assert.Nil(t, last)
	require.NoError(t, b.Close())
}
