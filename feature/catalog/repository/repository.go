package repository

import (
	"context"
	"time"

	"upgrade-tracker/feature/catalog/models"
)

// Repository is the persistence contract the catalog pipeline runs
// against. Lookups are by natural key; surrogate ids are an
// implementation detail the caller never invents.
type Repository interface {
	// Transact runs fn against a repository view whose writes commit as
	// a single unit. Returning an error rolls everything back.
	Transact(ctx context.Context, fn func(tx Repository) error) error

	// ListRecords returns all persisted rows belonging to a category.
	ListRecords(ctx context.Context, cat models.Category) ([]models.Record, error)
	// FindByKey looks up the persisted row sharing rec's natural key.
	FindByKey(ctx context.Context, rec models.Record) (models.Record, bool, error)
	Insert(ctx context.Context, rec models.Record) error
	Update(ctx context.Context, rec models.Record) error
	// DeleteStale removes rows of cat whose loaddate is before cutoff.
	DeleteStale(ctx context.Context, cat models.Category, cutoff time.Time) (int64, error)

	// EnsureStore returns the store row for (owner, url), creating it on
	// first sight.
	EnsureStore(ctx context.Context, owner, url string) (models.Store, error)

	Ships(ctx context.Context) ([]models.Ship, error)
	Manufacturers(ctx context.Context) ([]models.Manufacturer, error)
	Standalones(ctx context.Context, includeUnconfirmed bool) ([]models.Standalone, error)
	Upgrades(ctx context.Context, includeUnconfirmed bool) ([]models.Upgrade, error)

	// AppendUpdateLog records a successful refresh of cat and trims the
	// category's log rows to the retention limit.
	AppendUpdateLog(ctx context.Context, cat models.Category, at time.Time, retain int) error
	// LastUpdate returns the most recent update-log timestamp for cat.
	LastUpdate(ctx context.Context, cat models.Category) (time.Time, bool, error)
}
