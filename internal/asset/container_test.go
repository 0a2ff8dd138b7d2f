package asset

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gestaozabele/acervo/internal/config"
	"github.com/gestaozabele/acervo/internal/lock"
)

func TestContainerSharedResolveSurvivesCanceledCaller(t *testing.T) {
	var lookups int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	c := &container{
		variant: config.VariantProductMedia,
		key:     "product:x",
		locker:  lock.Local{},
		log:     zerolog.Nop(),
		timeout: 5 * time.Second,
		lookup: func(ctx context.Context) (string, error) {
			atomic.AddInt32(&lookups, 1)
			select {
			case started <- struct{}{}:
			default:
			}
			select {
			case <-release:
				return "gid://shopify/Product/1", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		},
		create: func(ctx context.Context) (string, error) {
			return "", errors.New("sentinela não deveria ser criado")
		},
	}

	listCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.get(listCtx)
		firstErr <- err
	}()
	<-started

	type result struct {
		id  string
		err error
	}
	second := make(chan result, 1)
	go func() {
		id, err := c.get(context.WithoutCancel(listCtx))
		second <- result{id, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("chamador cancelado deveria receber context.Canceled, veio %v", err)
	}

	close(release)
	got := <-second
	if got.err != nil || got.id != "gid://shopify/Product/1" {
		t.Fatalf("chamador desligado do cliente falhou: %q, %v", got.id, got.err)
	}
	if n := atomic.LoadInt32(&lookups); n != 1 {
		t.Fatalf("consultas = %d, esperado 1", n)
	}
	if c.cached() != "gid://shopify/Product/1" {
		t.Fatalf("id deveria ficar em cache")
	}
}

func TestSearchTermQuotesValue(t *testing.T) {
	cases := map[string]string{
		"acervo":          `tag:"acervo"`,
		"loja's acervo":   `tag:"loja's acervo"`,
		`diz "oi"`:        `tag:"diz \"oi\""`,
		`barra\invertida`: `tag:"barra\\invertida"`,
	}
	for value, want := range cases {
		if got := searchTerm("tag", value); got != want {
			t.Errorf("searchTerm(%q) = %s, esperado %s", value, got, want)
		}
	}
}

func TestSentinelLookupQuotesTag(t *testing.T) {
	remote := newFakeRemote()
	remote.on("products", sentinelFound)
	store, err := New(remote, Options{Variant: config.VariantProductMedia, SentinelTag: "loja's acervo", Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := store.(ContainerEnsurer).EnsureContainer(context.Background()); err != nil {
		t.Fatalf("EnsureContainer: %v", err)
	}
	if q := remote.vars["products"]["query"]; q != `tag:"loja's acervo"` {
		t.Fatalf("query = %v", q)
	}
}
