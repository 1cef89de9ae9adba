package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"upgrade-tracker/feature/catalog/models"
	"upgrade-tracker/feature/catalog/pathfind"
	"upgrade-tracker/feature/catalog/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fetchCounter struct {
	ships  int
	offers map[models.Category]int
}

// testSources returns a stub pipeline over a two-ship catalog with one
// official offer per kind and one community standalone in free text.
func testSources(counter *fetchCounter) Sources {
	counter.offers = map[models.Category]int{}
	ships := func(ctx context.Context) ([]models.RawShip, error) {
		counter.ships++
		return []models.RawShip{
			{Name: "Gladius", ManufacturerName: "Aegis Dynamics", ManufacturerCode: "AEGS"},
			{Name: "Freelancer MAX", ManufacturerName: "Musashi Industrial", ManufacturerCode: "MISC"},
		}, nil
	}
	offers := func(cat models.Category, out []models.RawOffer) func(context.Context) ([]models.RawOffer, error) {
		return func(ctx context.Context) ([]models.RawOffer, error) {
			counter.offers[cat]++
			return out, nil
		}
	}
	return Sources{
		Ships: ships,
		OfficialStandalones: offers(models.CategoryOfficialStandalones, []models.RawOffer{
			{ShipName: "Gladius", PriceUSD: 90, StoreOwner: "RSI"},
		}),
		OfficialUpgrades: offers(models.CategoryOfficialUpgrades, []models.RawOffer{
			{ShipNameFrom: "Gladius", ShipNameTo: "Freelancer MAX", PriceUSD: 60, StoreOwner: "RSI"},
		}),
		CommunityStandalones: offers(models.CategoryCommunityStandalones, []models.RawOffer{
			{ShipName: "Free lancer MA X", PriceUSD: 120, StoreOwner: "trader_joe", StoreURL: "https://example.com/shop"},
		}),
		CommunityUpgrades: offers(models.CategoryCommunityUpgrades, nil),
	}
}

func newTestService(t *testing.T) (*Service, *repository.Fake, *fetchCounter) {
	t.Helper()
	repo := repository.NewFake()
	counter := &fetchCounter{}
	svc, err := NewService(context.Background(), repo, testSources(counter), Config{}, nil, zap.NewNop())
	require.NoError(t, err)
	return svc, repo, counter
}

func TestService_RefreshAll(t *testing.T) {
	ctx := context.Background()
	svc, repo, counter := newTestService(t)

	results := svc.RefreshAll(ctx, false)
	require.Len(t, results, len(models.Categories))
	for _, r := range results {
		assert.NoError(t, r.Err, "category %s", r.Category)
	}

	// One ship-matrix fetch serves both the manufacturer and the ship
	// category.
	assert.Equal(t, 1, counter.ships)

	ships, err := repo.Ships(ctx)
	require.NoError(t, err)
	assert.Len(t, ships, 2)

	manufacturers, err := repo.Manufacturers(ctx)
	require.NoError(t, err)
	assert.Len(t, manufacturers, 2)

	t.Run("Official Offers Match Exactly", func(t *testing.T) {
		standalones, err := repo.Standalones(ctx, false)
		require.NoError(t, err)
		require.Len(t, standalones, 1)
		assert.Equal(t, models.SourceOfficial, standalones[0].Source)
		assert.False(t, standalones[0].NeedsReview)
	})

	t.Run("Community Offers Resolve Fuzzily", func(t *testing.T) {
		all, err := repo.Standalones(ctx, true)
		require.NoError(t, err)
		require.Len(t, all, 2)

		var community *models.Standalone
		for i := range all {
			if all[i].Source == models.SourceCommunity {
				community = &all[i]
			}
		}
		require.NotNil(t, community)
		// "Free lancer MA X" resolved below the confident threshold.
		assert.True(t, community.NeedsReview)
	})

	t.Run("Queries Answer After Refresh", func(t *testing.T) {
		match, ok := svc.ResolveShipName("gladius")
		require.True(t, ok)

		path, err := svc.PurchasePath(match.ShipID, pathfind.QueryOptions{})
		require.NoError(t, err)
		require.NotNil(t, path)
		assert.Equal(t, 90.0, path.TotalCost)
	})

	t.Run("Load Dates Recorded", func(t *testing.T) {
		for _, cat := range models.Categories {
			_, ok, err := svc.LoadDate(ctx, cat)
			require.NoError(t, err)
			assert.True(t, ok, "category %s", cat)
		}
	})
}

func TestService_Refresh_TTLGate(t *testing.T) {
	ctx := context.Background()
	svc, _, counter := newTestService(t)

	_, err := svc.Refresh(ctx, models.CategoryManufacturers, false)
	require.NoError(t, err)
	assert.Equal(t, 1, counter.ships)

	// The ships category consumes the cached matrix without a second
	// fetch.
	changed, err := svc.Refresh(ctx, models.CategoryShips, false)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)
	assert.Equal(t, 1, counter.ships)

	// Both categories are now current; nothing left to apply.
	changed, err = svc.Refresh(ctx, models.CategoryShips, false)
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
	assert.Equal(t, 1, counter.ships)

	// Force bypasses the gate.
	_, err = svc.Refresh(ctx, models.CategoryShips, true)
	require.NoError(t, err)
	assert.Equal(t, 2, counter.ships)
}

func TestService_Refresh_StaleRetained(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewFake()
	counter := &fetchCounter{}
	sources := testSources(counter)

	boom := errors.New("upstream down")
	failures := 0
	good := sources.CommunityStandalones
	sources.CommunityStandalones = func(ctx context.Context) ([]models.RawOffer, error) {
		if failures > 0 {
			failures--
			return nil, boom
		}
		return good(ctx)
	}

	svc, err := NewService(ctx, repo, sources, Config{}, nil, zap.NewNop())
	require.NoError(t, err)

	// First pass loads everything.
	for _, r := range svc.RefreshAll(ctx, false) {
		require.NoError(t, r.Err)
	}
	before, err := repo.Standalones(ctx, true)
	require.NoError(t, err)

	// Second pass fails upstream; the persisted rows survive.
	failures = 1
	_, err = svc.Refresh(ctx, models.CategoryCommunityStandalones, true)
	var stale *StaleDataRetainedError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, models.CategoryCommunityStandalones, stale.Category)
	assert.ErrorIs(t, err, boom)

	after, err := repo.Standalones(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after))
}

func TestService_RefreshAll_HonorsCancellation(t *testing.T) {
	svc, _, counter := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := svc.RefreshAll(ctx, false)
	require.Len(t, results, len(models.Categories))
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Equal(t, 0, counter.ships)
}

func TestService_SeededCacheSkipsScrape(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewFake()
	counter := &fetchCounter{}
	sources := testSources(counter)

	// A previous process refreshed the catalog moments ago.
	now := time.Now()
	require.NoError(t, repo.AppendUpdateLog(ctx, models.CategoryManufacturers, now, 100))
	require.NoError(t, repo.AppendUpdateLog(ctx, models.CategoryShips, now, 100))

	svc, err := NewService(ctx, repo, sources, Config{}, nil, zap.NewNop())
	require.NoError(t, err)

	changed, err := svc.Refresh(ctx, models.CategoryShips, false)
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
	assert.Equal(t, 0, counter.ships)
}

func TestDefaultFreshness(t *testing.T) {
	tests := []struct {
		cat models.Category
		ttl time.Duration
	}{
		{models.CategoryShips, 7 * 24 * time.Hour},
		{models.CategoryManufacturers, 7 * 24 * time.Hour},
		{models.CategoryOfficialStandalones, 24 * time.Hour},
		{models.CategoryOfficialUpgrades, 24 * time.Hour},
		{models.CategoryCommunityStandalones, time.Hour},
		{models.CategoryCommunityUpgrades, time.Hour},
	}
	for _, tt := range tests {
		f := DefaultFreshness(tt.cat)
		assert.Equal(t, tt.ttl, f.TTL, "category %s", tt.cat)
		assert.Equal(t, 2*tt.ttl, f.StaleAfter, "category %s", tt.cat)
	}
}
