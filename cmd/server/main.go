package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/youruser/cardsmith/internal/ai"
	"github.com/youruser/cardsmith/internal/api"
	"github.com/youruser/cardsmith/internal/assets"
	"github.com/youruser/cardsmith/internal/auth"
	"github.com/youruser/cardsmith/internal/config"
	"github.com/youruser/cardsmith/internal/export"
	imagepkg "github.com/youruser/cardsmith/internal/image"
	"github.com/youruser/cardsmith/internal/logger"
	"github.com/youruser/cardsmith/internal/storage"
	"github.com/youruser/cardsmith/internal/symbols"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "cardsmith:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}
	log, closer := logger.New(cfg.Log)
	defer closer.Close()
	slog.SetDefault(log)
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(storage.DefaultConfig(cfg.Database.Path))
	if err != nil {
		return err
	}
	defer store.Close()

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return err
	}
	assetSvc := assets.NewService(store, blobs, log.With("component", "assets"))
	assetSvc.MaxBytes = int64(cfg.Assets.MaxUploadMB) << 20

	loader := imagepkg.NewLoader(cfg.Server.DataDir)
	loader.Mount(assets.URLPrefix, assetSvc.Open)
	assetSvc.OnDelete = loader.Forget

	reg := symbols.NewRegistry()
	if dir := cfg.Symbols.IconDir; dir != "" {
		if err := loadSymbolIcons(ctx, reg, loader, dir, cfg.Symbols.Watch, log); err != nil {
			log.Warn("symbol icons unavailable, using drawn fallbacks", "dir", dir, "error", err)
		}
	}

	fonts, err := imagepkg.NewFonts()
	if err != nil {
		return err
	}
	raster := imagepkg.NewRasterizer(loader, fonts, log.With("component", "render"))

	jobTTL, err := cfg.JobTTL()
	if err != nil {
		return err
	}
	tokenTTL, err := cfg.TokenTTL()
	if err != nil {
		return err
	}
	aiSvc, err := ai.New(cfg.AI)
	if err != nil {
		return err
	}
	if !aiSvc.Enabled() {
		log.Info("ai content generation disabled")
	}

	srv := api.NewServer(api.Options{
		Store:       store,
		Auth:        auth.NewService(store, []byte(cfg.Auth.JWTSecret), tokenTTL),
		Assets:      assetSvc,
		AI:          aiSvc,
		Rasterizer:  raster,
		Fonts:       fonts,
		Symbols:     reg,
		Jobs:        export.NewJobs(jobTTL),
		Logger:      log,
		PublicURL:   cfg.Server.PublicURL,
		Supersample: cfg.Export.Supersample,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", httpSrv.Addr, "public_url", cfg.Server.PublicURL)
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	return srv.Close(shutdownCtx)
}

func newBlobStore(ctx context.Context, cfg *config.Config) (assets.BlobStore, error) {
	if cfg.Assets.Backend == "s3" {
		return assets.NewS3Store(ctx, cfg.Assets.S3)
	}
	return assets.NewFSStore(cfg.Assets.Dir)
}

// loadSymbolIcons binds icon files to symbols and serves them through the
// loader from their own directory, optionally reloading on change. A reload
// evicts the loader's decoded copies of the affected icons.
func loadSymbolIcons(ctx context.Context, reg *symbols.Registry, loader *imagepkg.Loader, dir string, watch bool, log *slog.Logger) error {
	if _, err := os.Stat(dir); err != nil {
		return err
	}
	dir = filepath.Clean(dir)
	loader.Mount(dir+string(filepath.Separator), imagepkg.DirFetcher(dir))
	n, err := reg.LoadIcons(dir)
	if err != nil {
		return err
	}
	log.Info("symbol icons loaded", "dir", dir, "count", n)
	if watch {
		reg.OnReload = func(icons []string) {
			for _, ref := range icons {
				loader.Forget(ref)
			}
		}
		return reg.Watch(ctx, dir, log.With("component", "symbols"))
	}
	return nil
}
