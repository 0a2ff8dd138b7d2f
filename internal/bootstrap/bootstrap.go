package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gestaozabele/acervo/internal/asset"
	"github.com/gestaozabele/acervo/internal/config"
	"github.com/gestaozabele/acervo/internal/lock"
	"github.com/gestaozabele/acervo/internal/shopify"
)

// Runtime agrupa as dependências montadas a partir da configuração.
// StoreErr guarda o erro de credenciais: ele não impede a subida do processo.
type Runtime struct {
	Store    asset.Store
	StoreErr error
	Redis    *redis.Client
}

// Build monta cliente Shopify, lock e Store da variante configurada.
func Build(cfg *config.Config, logger zerolog.Logger) (*Runtime, error) {
	rt := &Runtime{}

	var locker lock.Locker = lock.Local{}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis parse: %w", err)
		}
		rt.Redis = redis.NewClient(opts)
		locker = lock.NewRedis(rt.Redis)
	}

	client, err := shopify.New(shopify.Config{
		ShopDomain:        cfg.Shopify.ShopDomain,
		AccessToken:       cfg.Shopify.AccessToken,
		APIVersion:        cfg.Shopify.APIVersion,
		Timeout:           cfg.Shopify.HTTPTimeout,
		RequestsPerSecond: cfg.Shopify.RateLimit.RequestsPerSecond,
		Burst:             cfg.Shopify.RateLimit.Burst,
		Logger:            logger.With().Str("component", "shopify").Logger(),
	})
	if err != nil {
		var cfgErr *shopify.ConfigurationError
		if !errors.As(err, &cfgErr) {
			return nil, err
		}
		rt.StoreErr = err
		return rt, nil
	}

	store, err := asset.New(client, asset.Options{
		Variant:        cfg.Assets.Variant,
		MaxUploadBytes: cfg.Assets.MaxUploadBytes,
		InlineMaxBytes: cfg.Assets.InlineMaxBytes,
		SentinelTag:    cfg.Assets.SentinelTag,
		MetaobjectType: cfg.Assets.MetaobjectType,
		Locker:         locker,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}
	rt.Store = store
	return rt, nil
}

// EnsureContainer prepara o recurso sentinela quando a variante usa um.
func (rt *Runtime) EnsureContainer(ctx context.Context, timeout time.Duration) error {
	if rt.StoreErr != nil {
		return rt.StoreErr
	}
	ensurer, ok := rt.Store.(asset.ContainerEnsurer)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return ensurer.EnsureContainer(ctx)
}

// Close libera conexões abertas por Build.
func (rt *Runtime) Close() {
	if rt.Redis != nil {
		_ = rt.Redis.Close()
	}
}
