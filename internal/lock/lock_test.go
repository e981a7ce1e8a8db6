package lock

import (
	"context"
	"testing"
	"time"

	"evo-store/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) config.RedisConfig {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	return config.RedisConfig{Enabled: true, Addr: endpoint, LockTTL: time.Second}
}

func TestRedisLocker_MutualExclusion(t *testing.T) {
	cfg := setupRedis(t)
	ctx := context.Background()

	client, err := NewClient(ctx, cfg)
	require.NoError(t, err)
	defer client.Close()

	locker := NewRedisLocker(client, cfg.LockTTL, zerolog.Nop())

	release, err := locker.Acquire(ctx, "order:EVO-1")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "order:EVO-1")
	assert.ErrorIs(t, err, ErrNotAcquired)

	other, err := locker.Acquire(ctx, "order:EVO-2")
	require.NoError(t, err)
	other()

	release()

	again, err := locker.Acquire(ctx, "order:EVO-1")
	require.NoError(t, err)
	again()
}

func TestRedisLocker_ExpiredLockNotReleasedByOldHolder(t *testing.T) {
	cfg := setupRedis(t)
	ctx := context.Background()

	client, err := NewClient(ctx, cfg)
	require.NoError(t, err)
	defer client.Close()

	locker := NewRedisLocker(client, 200*time.Millisecond, zerolog.Nop())

	staleRelease, err := locker.Acquire(ctx, "order:EVO-3")
	require.NoError(t, err)

	time.Sleep(400 * time.Millisecond)

	_, err = locker.Acquire(ctx, "order:EVO-3")
	require.NoError(t, err)

	staleRelease()

	_, err = locker.Acquire(ctx, "order:EVO-3")
	assert.ErrorIs(t, err, ErrNotAcquired)
}

func TestNewClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewClient(ctx, config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestNopLocker(t *testing.T) {
	release, err := NopLocker{}.Acquire(context.Background(), "anything")
	require.NoError(t, err)
	assert.NotPanics(t, release)
}
