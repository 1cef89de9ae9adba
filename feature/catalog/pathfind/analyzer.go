package pathfind

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"upgrade-tracker/feature/catalog/models"
	"upgrade-tracker/feature/catalog/repository"

	"go.uber.org/zap"
)

// GraphQueryError marks an invalid query shape, like asking for an
// upgrade path starting at the origin. It is a usage error, raised
// immediately and never retried.
type GraphQueryError struct {
	msg string
}

func (e *GraphQueryError) Error() string { return e.msg }

// inconsistentGraphError is returned when a shortest-path edge cannot
// be resolved back to a concrete offer. It indicates a graph
// construction bug and is never a user-facing "not found".
type inconsistentGraphError struct {
	msg string
}

func (e *inconsistentGraphError) Error() string { return e.msg }

// IsInconsistentGraph reports whether err is the internal-consistency
// failure of edge-to-offer resolution.
func IsInconsistentGraph(err error) bool {
	_, ok := err.(*inconsistentGraphError)
	return ok
}

// UpgradePath is an ordered chain of concrete upgrade offers plus its
// summed cost.
type UpgradePath struct {
	Steps     []models.Upgrade `json:"steps"`
	TotalCost float64          `json:"total_cost"`
}

// PurchasePath is the cheapest way to own a ship starting from nothing:
// one standalone purchase followed by a possibly empty upgrade chain.
type PurchasePath struct {
	Start     models.Standalone `json:"start"`
	Upgrades  UpgradePath       `json:"upgrades"`
	TotalCost float64           `json:"total_cost"`
}

// snapshot is one immutable view of the offer graph. Queries read a
// whole snapshot or none of it; rebuilds publish a fresh one atomically.
type snapshot struct {
	confirmed adjacency
	all       adjacency
	// offer pools for resolving path edges back to concrete rows,
	// sorted by (price, id) so ties resolve deterministically.
	standalones []models.Standalone
	upgrades    []models.Upgrade
	builtAt     time.Time
}

// Analyzer answers cheapest-route queries over the reconciled catalog.
type Analyzer struct {
	snap   atomic.Pointer[snapshot]
	logger *zap.Logger
}

// NewAnalyzer returns an Analyzer with an empty graph; call Rebuild
// after the catalog is loaded.
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	a := &Analyzer{logger: logger}
	a.snap.Store(&snapshot{confirmed: adjacency{}, all: adjacency{}})
	return a
}

// Rebuild constructs a new graph from the repository and publishes it
// atomically. In-flight queries keep reading the previous snapshot
// until the swap completes.
func (a *Analyzer) Rebuild(ctx context.Context, repo repository.Repository) error {
	standalones, err := repo.Standalones(ctx, true)
	if err != nil {
		return fmt.Errorf("load standalones: %w", err)
	}
	upgrades, err := repo.Upgrades(ctx, true)
	if err != nil {
		return fmt.Errorf("load upgrades: %w", err)
	}

	next := &snapshot{
		confirmed:   adjacency{},
		all:         adjacency{},
		standalones: standalones,
		upgrades:    upgrades,
		builtAt:     time.Now(),
	}
	for _, s := range standalones {
		next.all.add(OriginID, s.ShipID, s.PriceUSD)
		if !s.NeedsReview {
			next.confirmed.add(OriginID, s.ShipID, s.PriceUSD)
		}
	}
	for _, u := range upgrades {
		next.all.add(u.ShipFromID, u.ShipToID, u.PriceUSD)
		if !u.NeedsReview {
			next.confirmed.add(u.ShipFromID, u.ShipToID, u.PriceUSD)
		}
	}
	next.confirmed.sortEdges()
	next.all.sortEdges()
	sort.Slice(next.standalones, func(i, j int) bool {
		if next.standalones[i].PriceUSD != next.standalones[j].PriceUSD {
			return next.standalones[i].PriceUSD < next.standalones[j].PriceUSD
		}
		return next.standalones[i].ID < next.standalones[j].ID
	})
	sort.Slice(next.upgrades, func(i, j int) bool {
		if next.upgrades[i].PriceUSD != next.upgrades[j].PriceUSD {
			return next.upgrades[i].PriceUSD < next.upgrades[j].PriceUSD
		}
		return next.upgrades[i].ID < next.upgrades[j].ID
	})

	a.snap.Store(next)
	a.logger.Debug("offer graph rebuilt",
		zap.Int("standalones", len(standalones)),
		zap.Int("upgrades", len(upgrades)))
	return nil
}

// QueryOptions controls which offers participate in a path query.
type QueryOptions struct {
	// IncludeUnconfirmed admits needs_review offers into the graph.
	IncludeUnconfirmed bool
}

// UpgradePath finds the cheapest upgrade chain between two owned-ship
// ids. A nil result with nil error means the target is unreachable.
func (a *Analyzer) UpgradePath(from, to uint, opts QueryOptions) (*UpgradePath, error) {
	if from == OriginID {
		return nil, &GraphQueryError{
			msg: "upgrade path cannot start at the origin; use a purchase path query instead",
		}
	}
	snap := a.snap.Load()
	path, hops, ok := shortestPath(snap.graph(opts), from, to)
	if !ok {
		return nil, nil
	}
	return snap.resolveUpgrades(path, hops, opts)
}

// PurchasePath finds the cheapest way to own a ship starting from
// nothing. A nil result with nil error means no route exists.
func (a *Analyzer) PurchasePath(to uint, opts QueryOptions) (*PurchasePath, error) {
	snap := a.snap.Load()
	path, hops, ok := shortestPath(snap.graph(opts), OriginID, to)
	if !ok || len(path) < 2 {
		return nil, nil
	}

	start, err := snap.resolveStandalone(path[1], hops[0], opts)
	if err != nil {
		return nil, err
	}
	upgrades, err := snap.resolveUpgrades(path[1:], hops[1:], opts)
	if err != nil {
		return nil, err
	}
	return &PurchasePath{
		Start:     start,
		Upgrades:  *upgrades,
		TotalCost: start.PriceUSD + upgrades.TotalCost,
	}, nil
}

func (s *snapshot) graph(opts QueryOptions) adjacency {
	if opts.IncludeUnconfirmed {
		return s.all
	}
	return s.confirmed
}

func (s *snapshot) resolveUpgrades(path []uint, hops []float64, opts QueryOptions) (*UpgradePath, error) {
	result := &UpgradePath{}
	for i := 0; i+1 < len(path); i++ {
		from, to := path[i], path[i+1]
		offer, err := s.resolveUpgrade(from, to, hops[i], opts)
		if err != nil {
			return nil, err
		}
		result.Steps = append(result.Steps, offer)
		result.TotalCost += offer.PriceUSD
	}
	return result, nil
}

// resolveUpgrade maps one path edge back to a concrete offer. The pool
// is pre-sorted by (price, id), so the first match is the deterministic
// winner. Failure here is a graph construction bug, not a "not found".
func (s *snapshot) resolveUpgrade(from, to uint, weight float64, opts QueryOptions) (models.Upgrade, error) {
	for _, u := range s.upgrades {
		if u.NeedsReview && !opts.IncludeUnconfirmed {
			continue
		}
		if u.ShipFromID == from && u.ShipToID == to && u.PriceUSD == weight {
			return u, nil
		}
	}
	return models.Upgrade{}, &inconsistentGraphError{
		msg: fmt.Sprintf("no upgrade offer matches path edge %d->%d at %.2f", from, to, weight),
	}
}

func (s *snapshot) resolveStandalone(shipID uint, weight float64, opts QueryOptions) (models.Standalone, error) {
	for _, offer := range s.standalones {
		if offer.NeedsReview && !opts.IncludeUnconfirmed {
			continue
		}
		if offer.ShipID == shipID && offer.PriceUSD == weight {
			return offer, nil
		}
	}
	return models.Standalone{}, &inconsistentGraphError{
		msg: fmt.Sprintf("no standalone offer matches path edge origin->%d at %.2f", shipID, weight),
	}
}
