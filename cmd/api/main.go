package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/acervo/internal/bootstrap"
	"github.com/gestaozabele/acervo/internal/config"
	internalhttp "github.com/gestaozabele/acervo/internal/http"
	"github.com/gestaozabele/acervo/internal/notify"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api encerrada com erro")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)

	rt, err := bootstrap.Build(cfg, log.Logger)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer rt.Close()

	ctx := context.Background()

	if rt.StoreErr != nil {
		log.Warn().Err(rt.StoreErr).Msg("credenciais da Shopify ausentes; as rotas de imagens responderão 500")
	} else if err := rt.EnsureContainer(ctx, 30*time.Second); err != nil {
		log.Error().Err(err).Str("variant", cfg.Assets.Variant).Msg("não foi possível preparar o contêiner; nova tentativa na próxima requisição")
	}

	alerts := notify.NewAlerter(notify.NewSlackNotifier(cfg.SlackWebhookURL), cfg.Shopify.ShopDomain, cfg.Assets.Variant, log.Logger)
	handler := internalhttp.NewRouter(cfg, internalhttp.StaticStore(rt.Store, rt.StoreErr), rt.Redis, alerts)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("variant", cfg.Assets.Variant).Str("shop", cfg.Shopify.ShopDomain).
			Msgf("API ouvindo em :%d, imagens armazenadas na Shopify", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("encerrando...")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
