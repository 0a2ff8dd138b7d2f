package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired indica que o lock continuou ocupado até o fim do contexto.
var ErrNotAcquired = errors.New("lock: não adquirido")

// Unlock libera um lock adquirido.
type Unlock func(ctx context.Context) error

// Locker serializa uma seção crítica entre instâncias.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (Unlock, error)
}

// Local não coordena nada além do processo atual.
type Local struct{}

// Lock devolve imediatamente.
func (Local) Lock(ctx context.Context, key string, ttl time.Duration) (Unlock, error) {
	return func(context.Context) error { return nil }, nil
}

// só remove a chave se o token ainda for o nosso
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0
`)

// Redis implementa Locker com SET NX PX e token por dono.
type Redis struct {
	client *redis.Client
	prefix string
	poll   time.Duration
}

// NewRedis cria um Locker sobre o cliente informado.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "acervo:lock:", poll: 100 * time.Millisecond}
}

// Lock tenta adquirir a chave até conseguir ou o contexto terminar.
func (l *Redis) Lock(ctx context.Context, key string, ttl time.Duration) (Unlock, error) {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	fullKey := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s", ErrNotAcquired, key)
			}
			return nil, fmt.Errorf("lock: redis: %w", err)
		}
		if ok {
			return func(ctx context.Context) error {
				return releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrNotAcquired, key)
		case <-ticker.C:
		}
	}
}
