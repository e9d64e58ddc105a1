package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docdeck/internal/api"
	"github.com/dgallion1/docdeck/internal/config"
	"github.com/dgallion1/docdeck/internal/docstore"
	"github.com/dgallion1/docdeck/internal/manifest"
	"github.com/dgallion1/docdeck/internal/parser"
	"github.com/dgallion1/docdeck/internal/pipeline"
	"github.com/dgallion1/docdeck/internal/render"
	"github.com/dgallion1/docdeck/internal/sse"
	"github.com/dgallion1/docdeck/internal/watch"
)

func run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	site, err := manifest.Load(cmd.String("manifest"))
	if err != nil {
		return err
	}
	if cfg.DocsDir == "" {
		cfg.DocsDir = site.Dir()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	order := make([]string, 0, len(site.Sections))
	for _, s := range site.Sections {
		order = append(order, s.ID)
	}
	store := docstore.New(order)
	stats := pipeline.NewRenderStats(time.Hour)
	broker := sse.NewBroker(0)
	defer broker.Close()
	renderer := render.New(render.WithHighlightStyle(cfg.HighlightStyle))

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, site, parser.Config{
		Markdown:             renderer,
		PDFFallbackPdftotext: cfg.PDFFallbackPdftotext,
	}, store, stats, log)
	orch.SetListener(func(ev pipeline.Event) {
		broker.Publish(sse.Event{Type: string(ev.Type), Data: ev})
	})
	orch.Start(ctx)
	defer orch.Stop()

	if err := orch.RebuildAll(false); err != nil {
		log.Warn("initial build not fully queued", "error", err)
	}

	watcher, err := watch.New(cfg.DocsDir, cfg.DocsGlob, site, orch, cfg.WatchDebounce, log)
	if err != nil {
		return err
	}

	// Initialize HTTP server.
	srv := api.NewServer(orch, store, renderer, stats, broker, log, cfg)
	httpServer := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     srv,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Watcher failures leave the site serving its last build.
		if err := watcher.Run(gCtx); err != nil {
			log.Error("watcher stopped", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("starting docdeck", "port", cfg.Port, "docs_dir", cfg.DocsDir, "sections", len(site.Sections))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Graceful shutdown.
	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			log.Info("shutting down...", "signal", sig.String())
		case <-gCtx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown", "error", err)
		}
		return nil
	})

	return g.Wait()
}

func main() {
	cmd := &cli.Command{
		Name:   "docdeck",
		Usage:  "Serve a design-review site with anchored documents and live navigation state",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "manifest",
				Aliases: []string{"m"},
				Usage:   "Path to the site manifest",
				Value:   "site/site.yaml",
				Sources: cli.EnvVars("DOCDECK_MANIFEST"),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("docdeck exited", "error", err)
		os.Exit(1)
	}
}
