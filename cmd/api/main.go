package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atlasforge.io/internal/apply"
	"atlasforge.io/internal/auth"
	"atlasforge.io/internal/config"
	"atlasforge.io/internal/content"
	"atlasforge.io/internal/entity"
	"atlasforge.io/internal/httpapi"
	"atlasforge.io/internal/kv"
	"atlasforge.io/internal/obs"
	"atlasforge.io/internal/rbac"
	"atlasforge.io/internal/store"
	"atlasforge.io/internal/store/memstore"
	"atlasforge.io/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)
	log := obs.Logger()

	cfg := config.Load()

	// Record store: Postgres when a DSN is configured, in-memory otherwise.
	var (
		recordStore store.Store
		ready       httpapi.ReadyProbe
	)
	if cfg.PGDSN != "" {
		pgStore, err := pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("open database")
		}
		defer pgStore.Close()
		recordStore = pgStore
		ready = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		log.Warn().Msg("no DSN configured, using in-memory store")
		recordStore = memstore.New()
	}

	kvStore, err := kv.Open(cfg.KVPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.KVPath).Msg("open local state")
	}

	users := entity.NewUserRepository(recordStore)
	sessions, err := auth.NewSessionService(users, kvStore, cfg.AuthSecret,
		auth.WithSessionTTL(cfg.SessionTTL))
	if err != nil {
		log.Fatal().Err(err).Msg("init session service")
	}

	permDefaults := rbac.DefaultPermissions()
	if cfg.PermissionsPath != "" {
		table, err := config.LoadPermissions(cfg.PermissionsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("load permission defaults")
		}
		permDefaults, err = rbac.FromConfig(table)
		if err != nil {
			log.Fatal().Err(err).Msg("parse permission defaults")
		}
	}
	perms := rbac.NewService(permDefaults)

	pipeline := apply.NewPipeline(
		recordStore,
		apply.NewAnalyzer(cfg.AnalyzerURL, obs.Ops()),
		cfg.ResumeBucket,
		obs.Ops(),
		apply.WithResetDelay(cfg.SuccessReset),
	)

	api := httpapi.New(httpapi.Deps{
		Sessions: sessions,
		Perms:    perms,
		Jobs:     entity.NewJobRepository(recordStore),
		Events:   entity.NewEventRepository(recordStore),
		Users:    users,
		Content:  content.NewService(kvStore),
		Pipeline: pipeline,
		Ready:    ready,
		Version:  version,
		Log:      log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info().Str("addr", srv.Addr).Str("version", version).Msg("starting atlasforge-api")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info().Msg("stopped")
}
