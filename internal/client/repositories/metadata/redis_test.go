package metadata

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedis connects to REDIS_URL; the tests are skipped when it is unset.
func setupRedis(t *testing.T) *RedisRepository {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := NewRedisClient(ctx, url)
	require.NoError(t, err)

	r := NewRedisRepository(client, "test-"+uuid.NewString())
	t.Cleanup(func() {
		_ = r.Clear(ctx)
		_ = client.Close()
	})
	return r
}

func TestRedis_SetGetDelete(t *testing.T) {
	r := setupRedis(t)
	ctx := context.Background()

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, r.Set(ctx, "k", []byte("v")))
	v, err = r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, r.Delete(ctx, "k"))
	require.NoError(t, r.Delete(ctx, "k"))
	v, err = r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRedis_SetManyListClear(t *testing.T) {
	r := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, r.SetMany(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}))

	m, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, m)

	require.NoError(t, r.Clear(ctx))
	m, err = r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestRedis_KeysArePrefixed(t *testing.T) {
	r := NewRedisRepository(nil, "kiosk-1")
	assert.Equal(t, "finkeeper:kiosk-1:session", r.key("session"))
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not-a-url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis url")
}
