//go:build integration

package redis_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	redisrepo "github.com/skillupng/lms-server/internal/repository/redis"
)

var addr string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		panic(err)
	}
	addr = fmt.Sprintf("%s:%s", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestBlacklist_Integration(t *testing.T) {
	ctx := context.Background()

	client, err := redisrepo.NewClient(ctx, addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	bl := redisrepo.NewBlacklist(client)

	t.Run("add_and_contains", func(t *testing.T) {
		require.NoError(t, bl.Add(ctx, "revoked-token", time.Minute))

		found, err := bl.Contains(ctx, "revoked-token")
		require.NoError(t, err)
		require.True(t, found)

		found, err = bl.Contains(ctx, "other-token")
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("entry_expires_with_ttl", func(t *testing.T) {
		require.NoError(t, bl.Add(ctx, "short-lived", 500*time.Millisecond))

		found, err := bl.Contains(ctx, "short-lived")
		require.NoError(t, err)
		require.True(t, found)

		require.Eventually(t, func() bool {
			found, err := bl.Contains(ctx, "short-lived")
			return err == nil && !found
		}, 3*time.Second, 100*time.Millisecond)
	})

	t.Run("keys_are_prefixed", func(t *testing.T) {
		require.NoError(t, bl.Add(ctx, "prefixed", time.Minute))

		val, err := client.Get(ctx, "bl_prefixed").Result()
		require.NoError(t, err)
		require.Equal(t, "1", val)
	})

	t.Run("unreachable_store_reports_error", func(t *testing.T) {
		_, err := redisrepo.NewClient(ctx, "127.0.0.1:1", "", 0)
		require.Error(t, err)
	})
}
