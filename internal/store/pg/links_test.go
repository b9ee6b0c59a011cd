package pg

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupArchive needs a disposable database in JIBOT_TEST_POSTGRES_DSN.
func setupArchive(t *testing.T) *LinkArchive {
	dsn := os.Getenv("JIBOT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("JIBOT_TEST_POSTGRES_DSN not set")
	}
	db, err := OpenDB(context.Background(), dsn)
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		db.Exec("DELETE FROM links WHERE channel_id LIKE 'test-%'")
		db.Close()
	})
	return NewLinkArchive(db)
}

func TestLinkArchive_SaveIsIdempotent(t *testing.T) {
	archive := setupArchive(t)
	ctx := context.Background()

	l := Link{
		URL:       "https://example.com/a",
		AuthorID:  "D1",
		ChannelID: "test-chan",
		MessageID: "m-1",
		PostedAt:  time.Now().UTC(),
	}
	inserted, err := archive.Save(ctx, l)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = archive.Save(ctx, l)
	require.NoError(t, err)
	assert.False(t, inserted, "same url in same message should not insert twice")
}

func TestLinkArchive_RecentAndSearch(t *testing.T) {
	archive := setupArchive(t)
	ctx := context.Background()

	for i, u := range []string{"https://go.dev/blog", "https://example.org/tea"} {
		_, err := archive.Save(ctx, Link{
			URL:       u,
			AuthorID:  "D1",
			ChannelID: "test-recent",
			MessageID: "m-r" + string(rune('0'+i)),
			PostedAt:  time.Now().UTC().Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	recent, err := archive.Recent(ctx, "test-recent", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "https://example.org/tea", recent[0].URL)

	found, err := archive.Search(ctx, "go.dev", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, found)
}
