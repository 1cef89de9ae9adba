package cmd

import (
	"context"
	"fmt"

	"upgrade-tracker/core/config"
	"upgrade-tracker/core/database"
	"upgrade-tracker/core/logger"
	"upgrade-tracker/core/storage"
	"upgrade-tracker/feature/catalog"
	"upgrade-tracker/feature/catalog/repository"
	"upgrade-tracker/feature/scraper"

	"go.uber.org/zap"
)

// buildService performs the wiring shared by every command: config,
// logger, database, optional snapshot archive, scrapers, and finally
// the catalog service.
func buildService(ctx context.Context) (*catalog.Service, *config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := repository.Migrate(db); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	var archiver catalog.Archiver
	if cfg.Catalog.ArchiveSnapshots {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		archive, err := catalog.NewSnapshotArchive(ctx, client, cfg.Storage.Bucket, l)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to prepare snapshot archive: %w", err)
		}
		archiver = archive
	}

	storefront := scraper.NewStorefront(cfg.Storefront, l)
	community := scraper.NewCommunity(cfg.Community, l)

	sources := catalog.Sources{
		Ships:                storefront.Ships,
		OfficialStandalones:  storefront.Standalones,
		OfficialUpgrades:     storefront.Upgrades,
		CommunityStandalones: community.Standalones,
		CommunityUpgrades:    community.Upgrades,
	}

	svc, err := catalog.NewService(ctx, repository.NewGorm(db), sources, catalog.Config{
		Freshness:    cfg.Catalog.Freshness(),
		LogRetention: cfg.Catalog.LogRetention,
	}, archiver, l)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build catalog service: %w", err)
	}

	return svc, cfg, l, nil
}
