package migrations

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct {
	infos []string
	warns []string
}

func (l *testLogger) Info(msg string, _ ...any)  { l.infos = append(l.infos, msg) }
func (l *testLogger) Warn(msg string, _ ...any)  { l.warns = append(l.warns, msg) }
func (l *testLogger) Error(msg string, _ ...any) {}

type fakeMigrator struct {
	upErr      error
	stepsErr   error
	steps      []int
	version    uint
	dirty      bool
	versionErr error
	closed     bool
}

func (m *fakeMigrator) Up() error { return m.upErr }

func (m *fakeMigrator) Steps(n int) error {
	m.steps = append(m.steps, n)
	return m.stepsErr
}

func (m *fakeMigrator) Version() (uint, bool, error) { return m.version, m.dirty, m.versionErr }

func (m *fakeMigrator) Close() (error, error) {
	m.closed = true
	return nil, nil
}

type blockingMigrator struct {
	fakeMigrator
	closeCh     chan struct{}
	closeOnce   sync.Once
	closeCalled atomic.Bool
}

func (m *blockingMigrator) Up() error {
	<-m.closeCh
	return nil
}

func (m *blockingMigrator) Close() (error, error) {
	m.closeOnce.Do(func() {
		m.closeCalled.Store(true)
		close(m.closeCh)
	})
	return nil, nil
}

// stubFactories swaps the driver and migrator constructors for the duration of a test
// and records the source URL handed to the migrator.
func stubFactories(t *testing.T, m migrator, initErr error) *string {
	t.Helper()

	origDriverFactory := driverFactory
	origMigratorFactory := migratorFactory
	t.Cleanup(func() {
		driverFactory = origDriverFactory
		migratorFactory = origMigratorFactory
	})

	var sourceURL string
	driverFactory = func(_ *sql.DB, cfg Config) (database.Driver, error) {
		assert.Equal(t, "schema_migrations", cfg.MigrationsTable)
		return nil, nil
	}
	migratorFactory = func(u string, _ database.Driver) (migrator, error) {
		sourceURL = u
		if initErr != nil {
			return nil, initErr
		}
		return m, nil
	}
	return &sourceURL
}

func TestUp_NilDB(t *testing.T) {
	assert.Error(t, Up(context.Background(), nil, Config{}))
}

func TestUp_ContextAlreadyCancelled(t *testing.T) {
	fake := &fakeMigrator{}
	sourceURL := stubFactories(t, fake, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Up(ctx, &sql.DB{}, Config{Dir: t.TempDir()})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, *sourceURL, "no migrator should be created for a cancelled context")
}

func TestUp_DeadlineClosesMigrator(t *testing.T) {
	block := &blockingMigrator{closeCh: make(chan struct{})}
	stubFactories(t, block, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := Up(ctx, &sql.DB{}, Config{Dir: t.TempDir()})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, block.closeCalled.Load())
}

func TestUp_NoChangeIsSuccess(t *testing.T) {
	stubFactories(t, &fakeMigrator{upErr: migrate.ErrNoChange}, nil)
	logger := &testLogger{}

	require.NoError(t, Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir(), Logger: logger}))
	assert.Contains(t, logger.infos, "No migrations to apply")
}

func TestUp_SuccessLogsAndCloses(t *testing.T) {
	fake := &fakeMigrator{}
	stubFactories(t, fake, nil)
	logger := &testLogger{}

	require.NoError(t, Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir(), Logger: logger}))
	assert.Contains(t, logger.infos, "Migrations applied successfully")
	assert.True(t, fake.closed)
}

func TestUp_WrapsErrors(t *testing.T) {
	stubFactories(t, nil, errors.New("boom"))
	err := Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()})
	assert.ErrorContains(t, err, "migrations: init")

	stubFactories(t, &fakeMigrator{upErr: errors.New("syntax error at or near")}, nil)
	err = Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()})
	assert.ErrorContains(t, err, "migrations: up")
}

func TestUp_SourceURLEscapesPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "my migrations dir")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	sourceURL := stubFactories(t, &fakeMigrator{upErr: migrate.ErrNoChange}, nil)
	require.NoError(t, Up(context.Background(), &sql.DB{}, Config{Dir: dir}))

	parsed, err := url.Parse(*sourceURL)
	require.NoError(t, err)

	abs, _ := filepath.Abs(dir)
	assert.Equal(t, "file", parsed.Scheme)
	assert.Equal(t, filepath.ToSlash(abs), parsed.Path)
}

func TestDown_RollsBackSteps(t *testing.T) {
	fake := &fakeMigrator{}
	stubFactories(t, fake, nil)

	require.NoError(t, Down(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()}, 1))
	assert.Equal(t, []int{-1}, fake.steps)
}

func TestDown_RejectsNonPositiveSteps(t *testing.T) {
	fake := &fakeMigrator{}
	stubFactories(t, fake, nil)

	assert.Error(t, Down(context.Background(), &sql.DB{}, Config{}, 0))
	assert.Empty(t, fake.steps)
}

func TestVersion(t *testing.T) {
	stubFactories(t, &fakeMigrator{version: 1}, nil)

	version, dirty, err := Version(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestVersion_EmptyDatabase(t *testing.T) {
	stubFactories(t, &fakeMigrator{versionErr: migrate.ErrNilVersion}, nil)

	version, _, err := Version(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Zero(t, version)
}
