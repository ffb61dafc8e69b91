package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alexlabrioche/modular-strategies/internal/catalog"
	"github.com/alexlabrioche/modular-strategies/internal/config"
	"github.com/alexlabrioche/modular-strategies/internal/httpapi"
	"github.com/alexlabrioche/modular-strategies/internal/hub"
	"github.com/alexlabrioche/modular-strategies/internal/lobby"
	"github.com/alexlabrioche/modular-strategies/internal/logging"
	"github.com/alexlabrioche/modular-strategies/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		logger.Error("catalog unavailable", zap.Error(err))
		return err
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("store unavailable", zap.String("store", cfg.Store), zap.Error(err))
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the hub outlives the signal so draining requests can still use it
	h := hub.NewHub(context.Background(), lobby.Options{
		Settings: cfg.Settings(),
		Catalog:  cat,
		Store:    st,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:         h,
			Catalog:     cat,
			Logger:      logger,
			CORSOrigins: cfg.CORSOrigins,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("store", cfg.Store),
			zap.Int("catalog_size", cat.Size()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		// drain HTTP first so in-flight requests still reach a live hub
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		select {
		case h.Inbox() <- hub.ShutdownHub{}:
		case <-h.Done():
		}
		<-h.Done()
		return err
	})

	return g.Wait()
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}
