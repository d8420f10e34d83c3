package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	browseHnd "catalog-browser/internal/browse/handler"
	"catalog-browser/internal/cart"
	"catalog-browser/internal/catalog"
	"catalog-browser/internal/config"
	"catalog-browser/internal/report"
	serverhttp "catalog-browser/server/http"
)

func main() {
	cfg := config.Load()
	logger := config.SetupLogger(cfg, os.Stdout)
	rep := report.Log(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feed := catalog.NewFeed(cfg.CatalogSource, cfg.CatalogHeaderRow, cfg.FetchTimeout)
	loader := catalog.NewLoader(feed, logger, rep)
	// без каталога тоже стартуем: ошибка видна в /health, повтор через /api/catalog/reload
	if _, err := loader.Load(ctx); err != nil {
		logger.Error().Err(err).Str("source", feed.Source()).Msg("initial catalog load")
	}

	slot, err := cart.OpenSlot(ctx, cfg.CartStore, cfg.CartDir, cfg.CartSlot, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Str("store", cfg.CartStore).Msg("cart slot")
	}
	if c, ok := slot.(io.Closer); ok {
		defer c.Close()
	}
	ledger := cart.Open(ctx, slot, rep)

	api := browseHnd.New(cfg, logger, loader, ledger, os.DirFS(cfg.AssetsDir))
	r := serverhttp.NewRouter(cfg, logger, loader, api)

	srv := &http.Server{Addr: cfg.Addr(), Handler: r, ReadHeaderTimeout: 10 * time.Second}
	logger.Info().
		Str("addr", cfg.Addr()).
		Int("items", loader.Current().Len()).
		Int("cart_positions", ledger.Len()).
		Msg("server starting")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	logger.Info().Msg("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("bye")
}
