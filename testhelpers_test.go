package rolesync_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	rolesync "github.com/goliatone/go-rolesync"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// newTestDB opens an in-memory sqlite database with the schema installed.
// A single connection keeps the per-connection foreign_keys pragma sticky
// and serializes writers the way a row lock would.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	require.NoError(t, rolesync.InstallSchema(context.Background(), db))

	return db
}

type testPipeline struct {
	db   *bun.DB
	repo rolesync.RepositoryManager
	sync *rolesync.Synchronizer
	sink *capturingSink
}

func newTestPipeline(t *testing.T, opts ...rolesync.SynchronizerOption) *testPipeline {
	t.Helper()

	db := newTestDB(t)
	repo := rolesync.NewRepositoryManager(db)
	repo.MustValidate()

	sink := &capturingSink{}
	opts = append([]rolesync.SynchronizerOption{
		rolesync.WithSynchronizerActivitySink(sink),
	}, opts...)

	sync := rolesync.NewSynchronizer(repo, opts...)
	sync.Install()

	return &testPipeline{
		db:   db,
		repo: repo,
		sync: sync,
		sink: sink,
	}
}

type capturingSink struct {
	mu     sync.Mutex
	events []rolesync.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, evt rolesync.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) byType(eventType rolesync.ActivityEventType) []rolesync.ActivityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	var matched []rolesync.ActivityEvent
	for _, evt := range c.events {
		if evt.EventType == eventType {
			matched = append(matched, evt)
		}
	}
	return matched
}
