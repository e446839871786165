package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("BEE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("BEE_TEST_DATABASE_URL not set")
	}
	p, err := OpenPostgres(context.Background(), dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestPostgres_UpdateAndNotify(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	root := "test/" + time.Now().Format("150405.000000000")

	changes := make(chan Change, 4)
	unsub, err := p.Subscribe(root, func(c Change) { changes <- c })
	require.NoError(t, err)
	defer unsub()

	// give the listener a moment to LISTEN
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, p.Update(ctx, []Write{
		{Path: root + "/a", Value: []byte(`{"n":1}`)},
		{Path: root + "/b", Value: []byte(`{"n":2}`)},
	}))

	got, err := p.List(ctx, root)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	select {
	case c := <-changes:
		assert.Equal(t, root+"/a", c.Path)
	case <-time.After(3 * time.Second):
		t.Fatal("no notification")
	}

	require.NoError(t, p.Set(ctx, root+"/a", nil))
	_, err = p.Get(ctx, root+"/a")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPostgres_ResyncReplaysWatchedPaths(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	root := "test/" + time.Now().Format("150405.000000000")

	changes := make(chan Change, 4)
	unsub, err := p.Subscribe(root+"/slot", func(c Change) {
		if c.Resync && !c.Deleted {
			changes <- c
		}
	})
	require.NoError(t, err)
	defer unsub()

	// written behind the listener's back, as during a reconnect gap
	require.NoError(t, p.db.WithContext(ctx).Create(&document{Path: root + "/slot", Value: []byte(`{"n":1}`), UpdatedAt: time.Now()}).Error)

	p.resync(ctx)
	select {
	case c := <-changes:
		assert.Equal(t, root+"/slot", c.Path)
		assert.JSONEq(t, `{"n":1}`, string(c.Value))
	case <-time.After(3 * time.Second):
		t.Fatal("no resync change")
	}
}
