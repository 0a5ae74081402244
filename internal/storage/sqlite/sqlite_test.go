package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OCAP2/awareness/internal/config"
	"github.com/OCAP2/awareness/internal/database"
	"github.com/OCAP2/awareness/internal/model"
	"github.com/OCAP2/awareness/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T, cfg config.SQLiteConfig) *Backend {
	t.Helper()
	b := New(cfg, zerolog.Nop())
	require.NoError(t, b.Init())
	t.Cleanup(func() { b.Close() })
	return b
}

func startSession(t *testing.T, b *Backend) *core.Session {
	t.Helper()
	s := core.NewSession("sqlite", "ambush.yaml", 0.8)
	require.NoError(t, b.StartSession(&s))
	return &s
}

func TestNew(t *testing.T) {
	b := New(config.SQLiteConfig{Path: "/tmp/x.db", DumpInterval: time.Minute}, zerolog.Nop())
	require.NotNil(t, b)
	assert.Equal(t, "/tmp/x.db", b.manager.SqliteFilePath)
	assert.Nil(t, b.Backend)
}

func TestCloseWithoutInit(t *testing.T) {
	assert.NoError(t, New(config.SQLiteConfig{}, zerolog.Nop()).Close())
}

func TestMemoryOnlySession(t *testing.T) {
	b := newTestBackend(t, config.SQLiteConfig{})
	startSession(t, b)

	require.NoError(t, b.RecordSelection(&core.SelectionTrace{Time: 500, Frame: 31, Agent: 1, Primary: 3, Active: []core.EntityID{3}}))
	require.NoError(t, b.RecordSelection(&core.SelectionTrace{Time: 2000, Frame: 125, Agent: 1, Primary: 3, Active: []core.EntityID{3}}))
	require.NoError(t, b.RecordEviction(&core.EvictionTrace{Time: 900, Owner: "bot_1", Incoming: 4, Evicted: 3}))
	require.NoError(t, b.EndSession())

	assert.Empty(t, b.GetExportedFilePath())
	meta := b.GetExportMetadata()
	assert.Equal(t, "sqlite", meta.SessionName)
	assert.Equal(t, "ambush.yaml", meta.Scenario)
	assert.Equal(t, 2, meta.Selections)
	assert.Equal(t, 1, meta.Evictions)
	assert.Equal(t, 0, meta.Hurts)
	assert.Equal(t, 2.0, meta.Duration)
}

func TestEndSession_DumpsToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	b := newTestBackend(t, config.SQLiteConfig{Path: path})
	startSession(t, b)

	require.NoError(t, b.RecordHurt(&core.HurtTrace{Time: 10, Agent: 2, Inflictor: 5, TotalDamage: 40}))
	require.NoError(t, b.EndSession())
	assert.Equal(t, path, b.GetExportedFilePath())

	dumped, err := database.GetSqliteDB(path)
	require.NoError(t, err)
	sqlDB, err := dumped.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	var hurts []model.Hurt
	require.NoError(t, dumped.Find(&hurts).Error)
	require.Len(t, hurts, 1)
	assert.Equal(t, uint16(5), hurts[0].Inflictor)
}

func TestDumpLoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "periodic.db")
	newTestBackend(t, config.SQLiteConfig{Path: path, DumpInterval: 10 * time.Millisecond})

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGetExportMetadata_NoSession(t *testing.T) {
	b := newTestBackend(t, config.SQLiteConfig{})
	assert.Equal(t, 0, b.GetExportMetadata().Selections)
}
