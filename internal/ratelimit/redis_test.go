package ratelimit

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestNewRedisLimiter_BadURL(t *testing.T) {
	_, err := NewRedisLimiter("://not-a-url", "", 1, time.Second)
	require.Error(t, err)
}

func TestAllow_DisabledOrEmptyKey_AlwaysAllows(t *testing.T) {
	// Клиент никуда не подключается: до Redis дело не доходит.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = rdb.Close() })

	l := newWithClient(rdb, "", 0, time.Minute)
	ok, err := l.Allow(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	require.True(t, ok)

	l = newWithClient(rdb, "", 5, time.Minute)
	ok, err = l.Allow(context.Background(), "")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAllow_RedisDown_ReturnsErrorAndAllows(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	l := newWithClient(rdb, "test:", 1, time.Minute)
	ok, err := l.Allow(context.Background(), "1.2.3.4")
	require.Error(t, err)
	require.True(t, ok)
}

// startRedis поднимает redis:7-alpine через testcontainers-go.
// Если переменная окружения GO_TEST_INTEGRATION не установлена — тест пропускается.
func startRedis(t *testing.T) string {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestIntegration_Allow_FixedWindow(t *testing.T) {
	url := startRedis(t)

	l, err := NewRedisLimiter(url, "login:", 3, 500*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.True(t, ok, "attempt %d", i+1)
	}

	ok, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, ok)

	// Другой ключ считается отдельно.
	ok, err = l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	require.True(t, ok)

	// После окна счётчик сбрасывается.
	require.Eventually(t, func() bool {
		ok, err := l.Allow(ctx, "10.0.0.1")
		return err == nil && ok
	}, 3*time.Second, 100*time.Millisecond)
}
