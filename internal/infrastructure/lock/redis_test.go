package lock_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/stock-ledger/internal/infrastructure/lock"
)

// newRedisClient levanta redis:7-alpine. Solo con LEDGER_IT=1 (requiere Docker).
func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	if os.Getenv("LEDGER_IT") != "1" {
		t.Skip("LEDGER_IT=1 para pruebas de integración con Redis")
	}
	ctx := context.Background()
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	addr, err := ctr.PortEndpoint(ctx, "6379/tcp", "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLocker_ExclusionEntreInstancias(t *testing.T) {
	client := newRedisClient(t)
	a := lock.NewRedisLockerWithClient(client, "test:", time.Minute)
	b := lock.NewRedisLockerWithClient(client, "test:", time.Minute)
	ctx := context.Background()

	unlock, err := a.Lock(ctx, "L/X")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	_, err = b.Lock(waitCtx, "L/X")
	cancel()
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := b.Lock(ctx, "L/Y")
	require.NoError(t, err)
	other()

	unlock()
	unlock2, err := b.Lock(ctx, "L/X")
	require.NoError(t, err)
	unlock2()
}

func TestRedisLocker_RenuevaMientrasSeUsa(t *testing.T) {
	client := newRedisClient(t)
	a := lock.NewRedisLockerWithClient(client, "test:", 300*time.Millisecond)
	b := lock.NewRedisLockerWithClient(client, "test:", 300*time.Millisecond)
	ctx := context.Background()

	unlock, err := a.Lock(ctx, "L/X")
	require.NoError(t, err)

	// el trabajo dura tres veces el TTL
	waitCtx, cancel := context.WithTimeout(ctx, 900*time.Millisecond)
	_, err = b.Lock(waitCtx, "L/X")
	cancel()
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // idempotente
	n, err := client.Exists(ctx, "test:L/X").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestRedisLocker_TTLLiberaCandadoHuerfano(t *testing.T) {
	client := newRedisClient(t)
	l := lock.NewRedisLockerWithClient(client, "test:", time.Minute)
	ctx := context.Background()

	// candado de un proceso que murió sin liberar ni renovar
	require.NoError(t, client.Set(ctx, "test:L/X", "otro-proceso", 200*time.Millisecond).Err())

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	unlock, err := l.Lock(waitCtx, "L/X")
	require.NoError(t, err)
	unlock()
}

func TestRedisLocker_UnlockNoBorraCandadoAjeno(t *testing.T) {
	client := newRedisClient(t)
	l := lock.NewRedisLockerWithClient(client, "test:", 300*time.Millisecond)
	ctx := context.Background()

	staleUnlock, err := l.Lock(ctx, "L/X")
	require.NoError(t, err)

	// otro proceso tomó la clave (p. ej. tras una pausa larga que dejó expirar el TTL)
	require.NoError(t, client.Set(ctx, "test:L/X", "otro-proceso", time.Minute).Err())
	time.Sleep(250 * time.Millisecond) // al menos una renovación: no debe tocar la clave ajena

	staleUnlock()
	val, err := client.Get(ctx, "test:L/X").Result()
	require.NoError(t, err)
	assert.Equal(t, "otro-proceso", val)
	ttl, err := client.PTTL(ctx, "test:L/X").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 30*time.Second)
}
