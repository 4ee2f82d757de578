// Command migrate applies SQL migrations and seed files, and can print a
// bcrypt hash for provisioning admin passwords.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"atlasforge.io/internal/auth"
	"atlasforge.io/internal/config"
	"atlasforge.io/internal/migrate"
	"atlasforge.io/internal/obs"
)

func main() {
	var (
		seed = flag.Bool("seed", false, "apply seed files after migrations")
		hash = flag.String("hash", "", "print the bcrypt hash of the given password and exit")
	)
	flag.Parse()
	log := obs.Logger()

	if *hash != "" {
		h, err := auth.HashPassword(*hash)
		if err != nil {
			log.Fatal().Err(err).Msg("hash password")
		}
		fmt.Println(h)
		return
	}

	cfg := config.Load()
	if cfg.PGDSN == "" {
		log.Fatal().Msg("ATLASFORGE_PG_DSN is required")
	}

	db, err := sql.Open("pgx", cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	mgr := migrate.NewManager(db, cfg.MigrationsDir, cfg.SeedsDir)
	if err := mgr.Up(ctx); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
	applied, err := mgr.Status(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("status")
	}
	log.Info().Int("applied", len(applied)).Msg("migrations up to date")

	if *seed {
		if err := mgr.Seed(ctx); err != nil {
			log.Fatal().Err(err).Msg("seed")
		}
		log.Info().Msg("seeds applied")
	}
}
