package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/pkg/config"
)

var _ ledger.KeyLocker = (*RedisLocker)(nil)

// releaseScript borra la clave solo si sigue siendo nuestra (token).
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// renewScript extiende el TTL (ms) solo si la clave sigue siendo nuestra.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// RedisLocker candado por serie compartido entre instancias: SET NX PX con token propio.
// Mientras el candado está tomado se renueva cada ttl/3; el TTL solo libera candados
// huérfanos de procesos que murieron a mitad de una propagación.
type RedisLocker struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	retry     time.Duration
}

// NewRedisLocker conecta a Redis y verifica la conexión.
func NewRedisLocker(cfg config.RedisConfig, ttl time.Duration) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("conectar a Redis: %w", err)
	}
	return NewRedisLockerWithClient(client, "", ttl), nil
}

// NewRedisLockerWithClient usa un cliente existente (tests o cliente compartido).
func NewRedisLockerWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisLocker {
	if keyPrefix == "" {
		keyPrefix = "ledger:lock:"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLocker{client: client, keyPrefix: keyPrefix, ttl: ttl, retry: 50 * time.Millisecond}
}

// Lock reintenta SET NX hasta obtener el candado o hasta que ctx termine.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	k := l.keyPrefix + key
	token := uuid.New().String()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("tomar candado %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go l.renew(k, token, done, stopped)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-stopped
			// contexto propio: el del llamador puede estar cancelado al liberar
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = releaseScript.Run(ctx, l.client, []string{k}, token).Err()
		})
	}, nil
}

// renew extiende el TTL hasta que se cierre done. Si la clave ya no es nuestra deja de renovar.
func (l *RedisLocker) renew(k, token string, done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	every := max(l.ttl/3, time.Millisecond)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), every)
		n, err := renewScript.Run(ctx, l.client, []string{k}, token, l.ttl.Milliseconds()).Int()
		cancel()
		if err == nil && n == 0 {
			return
		}
	}
}

// Close cierra el cliente de Redis.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
