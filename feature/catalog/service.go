package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"upgrade-tracker/feature/catalog/models"
	"upgrade-tracker/feature/catalog/pathfind"
	"upgrade-tracker/feature/catalog/reconcile"
	"upgrade-tracker/feature/catalog/repository"
	"upgrade-tracker/feature/catalog/resolve"
	"upgrade-tracker/feature/catalog/sourcecache"

	"go.uber.org/zap"
)

// Sources are the per-category fetch collaborators. Each returns plain
// parsed records; all scraping lives behind these functions.
type Sources struct {
	Ships                sourcecache.FetchFunc[[]models.RawShip]
	OfficialStandalones  sourcecache.FetchFunc[[]models.RawOffer]
	OfficialUpgrades     sourcecache.FetchFunc[[]models.RawOffer]
	CommunityStandalones sourcecache.FetchFunc[[]models.RawOffer]
	CommunityUpgrades    sourcecache.FetchFunc[[]models.RawOffer]
}

// Archiver stores the raw payload of a successful fetch, for debugging
// and replay. Archive failures are warnings, never refresh failures.
type Archiver interface {
	Archive(ctx context.Context, cat models.Category, payload any) error
}

// Config tunes the pipeline.
type Config struct {
	// Freshness per category; missing categories get DefaultFreshness.
	Freshness map[models.Category]models.Freshness
	// LogRetention caps update-log rows per category.
	LogRetention int
}

// DefaultFreshness mirrors how fast each source actually moves: the
// ship matrix changes rarely, official prices daily, community posts
// hourly. Staleness horizons are twice the TTL so one failed refresh
// cycle does not wipe a category.
func DefaultFreshness(cat models.Category) models.Freshness {
	switch cat {
	case models.CategoryShips, models.CategoryManufacturers:
		return models.Freshness{TTL: 7 * 24 * time.Hour, StaleAfter: 14 * 24 * time.Hour}
	case models.CategoryOfficialStandalones, models.CategoryOfficialUpgrades:
		return models.Freshness{TTL: 24 * time.Hour, StaleAfter: 48 * time.Hour}
	default:
		return models.Freshness{TTL: time.Hour, StaleAfter: 2 * time.Hour}
	}
}

// RefreshResult is one category's outcome in a batch run.
type RefreshResult struct {
	Category models.Category `json:"category"`
	Changed  int             `json:"changed"`
	Err      error           `json:"-"`
}

// Service is the broker between the scraping collaborators, the
// persisted catalog, and the query engines. One Service owns all six
// category caches and the analyzer snapshot.
type Service struct {
	repo       repository.Repository
	reconciler *reconcile.Reconciler
	analyzer   *pathfind.Analyzer
	scorer     resolve.Scorer
	resolver   atomic.Pointer[resolve.Resolver]
	archiver   Archiver
	logger     *zap.Logger
	freshness  map[models.Category]models.Freshness

	shipCache  *sourcecache.Cache[[]models.RawShip]
	offerCache map[models.Category]*sourcecache.Cache[[]models.RawOffer]

	// catMu serializes each category's update against concurrent
	// refreshes of the same category; distinct categories proceed in
	// parallel.
	catMu map[models.Category]*sync.Mutex

	// applied tracks the fetch timestamp each category last reconciled.
	// The ship matrix serves two categories from one fetch; whichever
	// refreshes second consumes the cached payload instead of skipping.
	appliedMu sync.Mutex
	applied   map[models.Category]time.Time
}

// NewService wires the pipeline. Caches are seeded from the update log
// so a freshly restarted process does not immediately re-scrape a
// catalog persisted minutes ago.
func NewService(ctx context.Context, repo repository.Repository, sources Sources, cfg Config, archiver Archiver, logger *zap.Logger) (*Service, error) {
	freshness := make(map[models.Category]models.Freshness, len(models.Categories))
	for _, cat := range models.Categories {
		if f, ok := cfg.Freshness[cat]; ok && f.TTL > 0 {
			freshness[cat] = f
		} else {
			freshness[cat] = DefaultFreshness(cat)
		}
	}

	s := &Service{
		repo: repo,
		reconciler: reconcile.New(repo, logger, reconcile.Options{
			LogRetention: cfg.LogRetention,
		}),
		analyzer:   pathfind.NewAnalyzer(logger),
		scorer:     resolve.TokenSetScorer{},
		archiver:   archiver,
		logger:     logger,
		freshness:  freshness,
		offerCache: map[models.Category]*sourcecache.Cache[[]models.RawOffer]{},
		catMu:      map[models.Category]*sync.Mutex{},
		applied:    map[models.Category]time.Time{},
	}

	s.shipCache = sourcecache.New(sources.Ships, freshness[models.CategoryShips].TTL)
	offerSources := map[models.Category]sourcecache.FetchFunc[[]models.RawOffer]{
		models.CategoryOfficialStandalones:  sources.OfficialStandalones,
		models.CategoryOfficialUpgrades:     sources.OfficialUpgrades,
		models.CategoryCommunityStandalones: sources.CommunityStandalones,
		models.CategoryCommunityUpgrades:    sources.CommunityUpgrades,
	}
	for cat, fetch := range offerSources {
		s.offerCache[cat] = sourcecache.New(fetch, freshness[cat].TTL)
	}
	for _, cat := range models.Categories {
		s.catMu[cat] = &sync.Mutex{}
		if at, ok, err := repo.LastUpdate(ctx, cat); err == nil && ok {
			s.applied[cat] = at
			s.offerSeed(cat, at)
		}
	}
	// The shared ship cache is only as fresh as the older of its two
	// categories; seeding with the newer one would starve the other.
	shipsAt, shipsOK := s.applied[models.CategoryShips]
	makersAt, makersOK := s.applied[models.CategoryManufacturers]
	if shipsOK && makersOK {
		at := shipsAt
		if makersAt.Before(at) {
			at = makersAt
		}
		s.shipCache.Seed(at)
	}

	if err := s.rebuildResolver(ctx); err != nil {
		return nil, err
	}
	if err := s.analyzer.Rebuild(ctx, repo); err != nil {
		return nil, err
	}
	return s, nil
}

type seeder interface {
	Seed(at time.Time)
	ExpiresIn() (time.Duration, bool)
}

func (s *Service) cacheFor(cat models.Category) seeder {
	switch cat {
	case models.CategoryShips, models.CategoryManufacturers:
		return s.shipCache
	default:
		return s.offerCache[cat]
	}
}

// Refresh updates one category, fetch-gated by its TTL, and returns the
// number of rows inserted or changed. An upstream failure keeps the
// prior snapshot and surfaces a StaleDataRetainedError.
func (s *Service) Refresh(ctx context.Context, cat models.Category, force bool) (int, error) {
	mu, ok := s.catMu[cat]
	if !ok {
		return 0, fmt.Errorf("unknown category %q", cat)
	}
	mu.Lock()
	defer mu.Unlock()

	switch cat {
	case models.CategoryShips, models.CategoryManufacturers:
		return s.refreshFromShips(ctx, cat, force)
	default:
		return s.refreshOffers(ctx, cat, force)
	}
}

func (s *Service) refreshFromShips(ctx context.Context, cat models.Category, force bool) (int, error) {
	raw, refreshed, err := s.shipCache.Get(ctx, force)
	if err != nil {
		return 0, &StaleDataRetainedError{Category: cat, Err: err}
	}
	last := s.shipCache.LastRefreshed()
	if !refreshed {
		// The matrix may have been fetched by the sibling category;
		// reconcile the cached payload if this category has not
		// consumed it yet.
		if !s.shipCache.HasPayload() || !last.After(s.lastApplied(cat)) {
			s.logValid(cat)
			return 0, nil
		}
	} else {
		s.archive(ctx, cat, raw)
	}

	var records []models.Record
	if cat == models.CategoryManufacturers {
		records = manufacturerRecords(raw)
	} else {
		records, err = s.shipRecords(ctx, raw)
		if err != nil {
			return 0, err
		}
	}

	changed, err := s.reconciler.UpdateCategory(ctx, cat, records, s.freshness[cat].StaleAfter)
	if err != nil {
		return 0, err
	}
	s.markApplied(cat, last)
	if err := s.rebuildResolver(ctx); err != nil {
		return changed, err
	}
	if err := s.analyzer.Rebuild(ctx, s.repo); err != nil {
		return changed, err
	}
	return changed, nil
}

func (s *Service) refreshOffers(ctx context.Context, cat models.Category, force bool) (int, error) {
	cache := s.offerCache[cat]
	raw, refreshed, err := cache.Get(ctx, force)
	if err != nil {
		return 0, &StaleDataRetainedError{Category: cat, Err: err}
	}
	if !refreshed {
		s.logValid(cat)
		return 0, nil
	}
	s.archive(ctx, cat, raw)

	records, dropped, err := s.offerRecords(ctx, cat, raw)
	if err != nil {
		return 0, err
	}
	if dropped > 0 {
		s.logger.Info("offers dropped, ship names unresolved",
			zap.String("category", string(cat)), zap.Int("dropped", dropped))
	}

	changed, err := s.reconciler.UpdateCategory(ctx, cat, records, s.freshness[cat].StaleAfter)
	if err != nil {
		return 0, err
	}
	s.markApplied(cat, cache.LastRefreshed())
	if err := s.analyzer.Rebuild(ctx, s.repo); err != nil {
		return changed, err
	}
	return changed, nil
}

// RefreshAll runs every category in dependency order: manufacturers and
// ships first so offers can resolve against a current catalog. One
// category's failure never blocks the others; cancellation is honored
// between categories, never mid-commit.
func (s *Service) RefreshAll(ctx context.Context, force bool) []RefreshResult {
	results := make([]RefreshResult, 0, len(models.Categories))
	for _, cat := range models.Categories {
		if err := ctx.Err(); err != nil {
			results = append(results, RefreshResult{Category: cat, Err: err})
			continue
		}
		changed, err := s.Refresh(ctx, cat, force)
		if err != nil {
			s.logger.Warn("category refresh failed",
				zap.String("category", string(cat)), zap.Error(err))
		}
		results = append(results, RefreshResult{Category: cat, Changed: changed, Err: err})
	}
	return results
}

// Ships returns the reconciled catalog, manufacturers preloaded.
func (s *Service) Ships(ctx context.Context) ([]models.Ship, error) {
	return s.repo.Ships(ctx)
}

// ResolveShipName fuzzy-matches free text to a canonical ship. The
// boolean is false when nothing clears the acceptance threshold.
func (s *Service) ResolveShipName(text string) (resolve.Match, bool) {
	r := s.resolver.Load()
	if r == nil {
		return resolve.Match{}, false
	}
	return r.Resolve(text)
}

// UpgradePath answers the cheapest chain between two owned ships.
func (s *Service) UpgradePath(from, to uint, opts pathfind.QueryOptions) (*pathfind.UpgradePath, error) {
	return s.analyzer.UpgradePath(from, to, opts)
}

// PurchasePath answers the cheapest way to own a ship from nothing.
func (s *Service) PurchasePath(to uint, opts pathfind.QueryOptions) (*pathfind.PurchasePath, error) {
	return s.analyzer.PurchasePath(to, opts)
}

// LoadDate returns the last successful refresh time for a category.
func (s *Service) LoadDate(ctx context.Context, cat models.Category) (time.Time, bool, error) {
	return s.repo.LastUpdate(ctx, cat)
}

func (s *Service) offerSeed(cat models.Category, at time.Time) {
	if c, ok := s.offerCache[cat]; ok {
		c.Seed(at)
	}
}

func (s *Service) lastApplied(cat models.Category) time.Time {
	s.appliedMu.Lock()
	defer s.appliedMu.Unlock()
	return s.applied[cat]
}

func (s *Service) markApplied(cat models.Category, at time.Time) {
	s.appliedMu.Lock()
	defer s.appliedMu.Unlock()
	s.applied[cat] = at
}

func (s *Service) logValid(cat models.Category) {
	if left, ok := s.cacheFor(cat).ExpiresIn(); ok {
		s.logger.Debug("source data still valid",
			zap.String("category", string(cat)), zap.Duration("expires_in", left))
	}
}

func (s *Service) archive(ctx context.Context, cat models.Category, payload any) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.Archive(ctx, cat, payload); err != nil {
		s.logger.Warn("snapshot archive failed",
			zap.String("category", string(cat)), zap.Error(err))
	}
}

func (s *Service) rebuildResolver(ctx context.Context) error {
	ships, err := s.repo.Ships(ctx)
	if err != nil {
		return fmt.Errorf("load ships for resolver: %w", err)
	}
	manufacturers, err := s.repo.Manufacturers(ctx)
	if err != nil {
		return fmt.Errorf("load manufacturers for resolver: %w", err)
	}
	s.resolver.Store(resolve.NewResolver(ships, manufacturers, s.scorer, s.logger))
	return nil
}

func manufacturerRecords(raw []models.RawShip) []models.Record {
	seen := map[string]struct{}{}
	var records []models.Record
	for _, ship := range raw {
		name := strings.TrimSpace(ship.ManufacturerName)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		records = append(records, &models.Manufacturer{
			Name: name,
			Code: strings.TrimSpace(ship.ManufacturerCode),
		})
	}
	return records
}

func (s *Service) shipRecords(ctx context.Context, raw []models.RawShip) ([]models.Record, error) {
	manufacturers, err := s.repo.Manufacturers(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]uint, len(manufacturers))
	for _, m := range manufacturers {
		byName[strings.ToLower(m.Name)] = m.ID
	}

	var records []models.Record
	seen := map[string]struct{}{}
	for _, ship := range raw {
		name := strings.TrimSpace(ship.Name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		manufacturerID, ok := byName[strings.ToLower(ship.ManufacturerName)]
		if !ok {
			s.logger.Warn("ship skipped, manufacturer not in catalog",
				zap.String("ship", name),
				zap.String("manufacturer", ship.ManufacturerName))
			continue
		}
		records = append(records, &models.Ship{Name: name, ManufacturerID: manufacturerID})
	}
	return records, nil
}

// offerRecords converts raw offers to entities. Official names must
// match the catalog exactly (case-insensitive); community names go
// through the fuzzy resolver and carry its needs_review verdict.
// Unresolvable records are dropped and counted, never fatal.
func (s *Service) offerRecords(ctx context.Context, cat models.Category, raw []models.RawOffer) ([]models.Record, int, error) {
	ships, err := s.repo.Ships(ctx)
	if err != nil {
		return nil, 0, err
	}
	exact := make(map[string]uint, len(ships))
	for _, ship := range ships {
		exact[strings.ToLower(ship.Name)] = ship.ID
	}

	source := cat.Source()
	lookup := func(name string) (uint, bool, bool) {
		if source == models.SourceOfficial {
			id, ok := exact[strings.ToLower(strings.TrimSpace(name))]
			return id, false, ok
		}
		match, ok := s.ResolveShipName(name)
		if !ok {
			return 0, false, false
		}
		return match.ShipID, match.NeedsReview, true
	}

	var records []models.Record
	dropped := 0
	for _, offer := range raw {
		store, err := s.repo.EnsureStore(ctx, offer.StoreOwner, offer.StoreURL)
		if err != nil {
			return nil, 0, fmt.Errorf("ensure store %q: %w", offer.StoreOwner, err)
		}

		if cat.Kind() == models.KindUpgrade {
			if !offer.IsUpgrade() {
				dropped++
				continue
			}
			fromID, fromReview, ok := lookup(offer.ShipNameFrom)
			if !ok {
				dropped++
				continue
			}
			toID, toReview, ok := lookup(offer.ShipNameTo)
			if !ok {
				dropped++
				continue
			}
			records = append(records, &models.Upgrade{
				ShipFromID:  fromID,
				ShipToID:    toID,
				PriceUSD:    offer.PriceUSD,
				StoreID:     store.ID,
				Source:      source,
				NeedsReview: fromReview || toReview,
			})
			continue
		}

		if offer.ShipName == "" {
			dropped++
			continue
		}
		shipID, needsReview, ok := lookup(offer.ShipName)
		if !ok {
			dropped++
			continue
		}
		records = append(records, &models.Standalone{
			ShipID:      shipID,
			PriceUSD:    offer.PriceUSD,
			StoreID:     store.ID,
			Source:      source,
			NeedsReview: needsReview,
		})
	}
	return records, dropped, nil
}
