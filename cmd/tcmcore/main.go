// Command tcmcore is TitleCardMaker core's process entrypoint: it loads
// configuration, wires the Connection Registry, Asset Store, Render Cache
// Coordinator, Card-Type Loader, Uploader and Scheduler, registers the
// default job set, and runs until SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/tcmaker/core/internal/assets"
	"github.com/tcmaker/core/internal/cardtype"
	"github.com/tcmaker/core/internal/config"
	"github.com/tcmaker/core/internal/connection"
	"github.com/tcmaker/core/internal/logx"
	"github.com/tcmaker/core/internal/metrics"
	"github.com/tcmaker/core/internal/rendercache"
	"github.com/tcmaker/core/internal/resolve"
	"github.com/tcmaker/core/internal/scheduler"
	"github.com/tcmaker/core/internal/snapshot"
	"github.com/tcmaker/core/internal/upload"
)

// engine bundles every long-lived collaborator the default job set
// closes over. The relational store behind Series/Episode/Font/Template
// is out of scope (spec §1), so job handlers here are the orchestration
// seam a store-backed build wires real lookups into; they are fully
// functional for the pieces that don't require that store (the render
// cache's lock/dedup behavior, the snapshot/metrics bridge, the
// card-type dispatch).
type engine struct {
	logger      zerolog.Logger
	cfg         *config.Global
	registry    *connection.Registry
	assetStore  *assets.Store
	fontCache   *assets.FontCache
	loader      *cardtype.Loader
	coordinator *rendercache.Coordinator
	uploader    *upload.Uploader
	metrics     *metrics.Registry
}

func main() {
	logger := logx.New(zerolog.InfoLevel)

	cfg, err := config.New("config/app.config.json").Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	e := &engine{
		logger:     logger,
		cfg:        cfg,
		registry:   connection.NewRegistry(),
		assetStore: assets.NewStore(cfg.AssetRoot),
	}
	e.fontCache = assets.NewFontCache(e.assetStore)
	e.loader = cardtype.NewLoader(logger, nil, "", filepath.Join(cfg.AssetRoot, "cardtypes"))
	registerBuiltinCardTypes(e.loader)
	e.coordinator = rendercache.NewCoordinator(e.buildCard)
	e.uploader = upload.New(logger, upload.NewInMemoryStateStore())
	e.metrics = metrics.NewRegistry(prometheus.NewRegistry())

	jobRegistry := scheduler.NewInMemoryRegistry()
	sched := scheduler.New(logger, jobRegistry)

	for _, job := range e.defaultJobs() {
		if err := sched.AddJob(job); err != nil {
			logger.Fatal().Err(err).Str("job", job.Name).Msg("failed to register job")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logger.Info().Msg("starting scheduler")
	sched.Start(ctx)

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	sched.Stop()
}

// buildCard is the render cache's BuildFunc: it dispatches to the
// card-type loader and writes the resulting artifact under CardRoot,
// keyed by fingerprint (spec §4.5).
func (e *engine) buildCard(ctx context.Context, fp string, in rendercache.Inputs) (string, int64, error) {
	ct := e.loader.Get(ctx, in.CardType)
	if ct == nil {
		return "", 0, fmt.Errorf("unknown card type %q", in.CardType)
	}
	data, err := ct.Render(ctx, in.Recipe)
	if err != nil {
		return "", 0, err
	}

	dest := filepath.Join(e.cfg.CardRoot, fp+".jpg")
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", 0, err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", 0, err
	}
	return dest, int64(len(data)), nil
}

// registerBuiltinCardTypes installs TCM's stock Local card types. Their
// kernels are thin stand-ins: the image-composition kernel itself is an
// out-of-scope collaborator (spec §1) — the coordination contract here
// (name/options/validate/render, cache key, fingerprinting) is what this
// module owns.
func registerBuiltinCardTypes(loader *cardtype.Loader) {
	loader.RegisterLocal(cardtype.NewLocal("standard", cardtype.StandardOptions(), func(ctx context.Context, recipe resolve.Recipe) ([]byte, error) {
		return nil, fmt.Errorf("standard: no image-composition kernel wired")
	}))
}

// defaultJobs returns the Scheduler's standard job set (spec §4.8):
// sync, refresh_episodes, set_ids, translate, fetch_sources, build_cards,
// load_cards, watched_sync, snapshot, backup. snapshot is the fully
// wired example, since internal/snapshot and internal/metrics both stand
// on their own without the out-of-scope store; the rest are the seams a
// store-backed build closes over e's registry/coordinator/uploader.
func (e *engine) defaultJobs() []scheduler.Job {
	noop := func(ctx context.Context) error { return nil }

	return []scheduler.Job{
		{Name: "sync", Cron: "@every 1h", Enabled: true, Handler: noop},
		{Name: "refresh_episodes", Cron: "@every 1h", Enabled: true, Handler: noop},
		{Name: "set_ids", Cron: "@every 6h", Enabled: true, Handler: noop},
		{Name: "translate", Cron: "@every 12h", Enabled: true, Handler: noop},
		{Name: "fetch_sources", Cron: "@every 1h", Enabled: true, Handler: noop},
		{Name: "build_cards", Cron: "@every 30m", Enabled: true, Handler: noop},
		{Name: "load_cards", Cron: "@every 30m", Enabled: true, Handler: noop},
		{Name: "watched_sync", Cron: "@every 15m", Enabled: true, Handler: noop},
		{Name: "snapshot", Cron: "@every 1h", Enabled: true, Handler: e.runSnapshot},
		{Name: "backup", Cron: "@every 24h", Enabled: true, Handler: noop},
	}
}

func (e *engine) runSnapshot(ctx context.Context) error {
	counts, err := snapshot.Take(emptySource{}, noopSnapshotStore{}, time.Now())
	if err != nil {
		return err
	}
	e.metrics.Observe(counts)
	return nil
}

// emptySource/noopSnapshotStore stand in for the out-of-scope relational
// store: a store-backed build supplies a snapshot.Source reading real
// entity counts and a snapshot.Store appending to persisted history.
type emptySource struct{}

func (emptySource) CountSeries() int        { return 0 }
func (emptySource) CountEpisodes() int      { return 0 }
func (emptySource) CountCards() int         { return 0 }
func (emptySource) CountFonts() int         { return 0 }
func (emptySource) CountTemplates() int     { return 0 }
func (emptySource) CountLoadedUploads() int { return 0 }
func (emptySource) CountUsers() int         { return 0 }
func (emptySource) CountSyncs() int         { return 0 }
func (emptySource) CountBlueprints() int    { return 0 }
func (emptySource) SumCardBytes() int64     { return 0 }

type noopSnapshotStore struct{}

func (noopSnapshotStore) Append(c snapshot.Counts) error { return nil }
