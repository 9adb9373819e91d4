package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"scribe/internal/auth"
	"scribe/internal/cache"
	"scribe/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	auth.BcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

func sqliteConfig(t *testing.T, env string) *config.Config {
	mr := miniredis.RunT(t)
	return &config.Config{
		Env:         env,
		StoreDriver: config.StoreSQLite,
		SQLitePath:  filepath.Join(t.TempDir(), "blog.db"),
		RedisURL:    mr.Addr(),
	}
}

func TestInitRuntime_SeedsEmptyDevelopmentStore(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t, "development")
	t.Cleanup(func() { _ = cache.Close() })

	store, rdb, err := InitRuntime(ctx, cfg, Options{SeedDemo: true})
	require.NoError(t, err)
	require.NotNil(t, rdb)

	total, err := store.Posts.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20), total)
	require.NoError(t, store.Close(ctx))

	// A second start finds data and leaves it alone.
	store, _, err = InitRuntime(ctx, cfg, Options{SeedDemo: true})
	require.NoError(t, err)
	defer store.Close(ctx)

	total, err = store.Posts.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20), total)
}

func TestInitRuntime_NoSeedOutsideDevelopment(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t, "staging")
	t.Cleanup(func() { _ = cache.Close() })

	store, _, err := InitRuntime(ctx, cfg, Options{SeedDemo: true})
	require.NoError(t, err)
	defer store.Close(ctx)

	total, err := store.Posts.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestConnectStore_UnknownDriver(t *testing.T) {
	_, err := ConnectStore(context.Background(), &config.Config{StoreDriver: "dynamo"})
	assert.Error(t, err)
}
