package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store TokenStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, TokenKey)
	require.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, store.Set(ctx, TokenKey, "first"))
	require.NoError(t, store.Set(ctx, TokenKey, "second"))

	got, err := store.Get(ctx, TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	require.NoError(t, store.Delete(ctx, TokenKey))
	_, err = store.Get(ctx, TokenKey)
	require.ErrorIs(t, err, ErrTokenNotFound)

	// Deleting twice is fine
	require.NoError(t, store.Delete(ctx, TokenKey))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "auth.json")
	exerciseStore(t, NewFileStore(path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "empty store should remove its file")
}

func TestFileStore_PermissionsAndDurability(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	ctx := context.Background()

	require.NoError(t, NewFileStore(path).Set(ctx, TokenKey, "tok"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// A fresh store over the same file sees the token, as after a restart
	got, err := NewFileStore(path).Get(ctx, TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "tok", got)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	store := NewFileStore(path)
	ctx := context.Background()

	_, err := store.Get(ctx, TokenKey)
	require.Error(t, err)

	require.NoError(t, store.Set(ctx, TokenKey, "fresh"))
	got, err := store.Get(ctx, TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "fresh", got)
}

func TestRedisStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	addr := os.Getenv("CRMDESK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Redis not available for testing")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing at %s: %v", addr, err)
	}

	prefix := "crmdesk-test:" + t.Name() + ":"
	store := NewRedisStoreWithPrefix(client, prefix)
	exerciseStore(t, store)

	require.NoError(t, store.Set(context.Background(), TokenKey, "shared"))
	raw, err := client.Get(context.Background(), prefix+TokenKey).Result()
	require.NoError(t, err)
	assert.Equal(t, "shared", raw)
	require.NoError(t, store.Delete(context.Background(), TokenKey))
}
