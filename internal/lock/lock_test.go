package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLocker(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mini.Close)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := NewRedis(client)
	locker.poll = 10 * time.Millisecond
	return locker, mini
}

func TestRedisLockIsExclusive(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "sentinel", time.Minute)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(waitCtx, "sentinel", time.Minute); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("esperava ErrNotAcquired, veio %v", err)
	}

	if err := unlock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	again, err := locker.Lock(ctx, "sentinel", time.Minute)
	if err != nil {
		t.Fatalf("lock após liberação: %v", err)
	}
	_ = again(ctx)
}

func TestRedisUnlockKeepsForeignLock(t *testing.T) {
	locker, mini := newTestLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "sentinel", time.Second)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	// o lock expira e outra instância assume
	mini.FastForward(2 * time.Second)
	other, err := locker.Lock(ctx, "sentinel", time.Minute)
	if err != nil {
		t.Fatalf("segundo dono: %v", err)
	}

	if err := unlock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if !mini.Exists("acervo:lock:sentinel") {
		t.Fatalf("unlock antigo removeu o lock do novo dono")
	}
	_ = other(ctx)
	if mini.Exists("acervo:lock:sentinel") {
		t.Fatalf("lock deveria ter sido removido")
	}
}

func TestLocalLock(t *testing.T) {
	unlock, err := Local{}.Lock(context.Background(), "x", time.Second)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := unlock(context.Background()); err != nil {
		t.Fatalf("unlock: %v", err)
	}
}
