package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"repolens/internal/artifact"
	"repolens/internal/config"
	"repolens/internal/history"
)

type stores struct {
	history   history.Store
	artifacts artifact.Store
	db        *sql.DB
}

func (s *stores) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.DatabaseURL != "" {
		return initPostgresStores(ctx, cfg)
	}
	artifacts, err := chooseArtifactStore(cfg, artifact.NewMemoryStore(), "in-memory")
	if err != nil {
		return nil, err
	}
	log.Printf("history store: in-memory")
	return &stores{history: history.NewMemoryStore(), artifacts: artifacts}, nil
}

func initPostgresStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	db, err := history.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	hist, err := history.NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history store: %w", err)
	}
	artifacts, err := chooseArtifactStore(cfg, artifact.NewPostgresStore(db), "postgres")
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Printf("history store: postgres")
	return &stores{history: hist, artifacts: artifacts, db: db}, nil
}

func chooseArtifactStore(cfg *config.Config, fallback artifact.Store, fallbackLabel string) (artifact.Store, error) {
	origin := fallback
	if cfg.Artifact.Enabled {
		s3Store, err := artifact.NewS3Store(artifact.S3Config{
			Endpoint:  cfg.Artifact.Endpoint,
			Region:    cfg.Artifact.Region,
			AccessKey: cfg.Artifact.AccessKey,
			SecretKey: cfg.Artifact.SecretKey,
			Bucket:    cfg.Artifact.Bucket,
			UseSSL:    cfg.Artifact.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize artifact s3 store: %w", err)
		}
		log.Printf("artifact store: s3 bucket=%s endpoint=%s", cfg.Artifact.Bucket, cfg.Artifact.Endpoint)
		origin = s3Store
	} else {
		log.Printf("artifact store: %s", fallbackLabel)
	}
	return artifact.NewCachedStore(origin, artifact.DefaultCacheConfig()), nil
}
