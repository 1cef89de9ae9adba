package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"upgrade-tracker/feature/catalog/models"
)

// Fake is an in-memory Repository for tests. It is not transactional in
// the storage sense, but Transact serializes writers so pipeline tests
// observe the same all-or-nothing ordering the gorm implementation
// provides.
type Fake struct {
	mu sync.Mutex

	nextID        uint
	manufacturers map[uint]*models.Manufacturer
	ships         map[uint]*models.Ship
	stores        map[uint]*models.Store
	standalones   map[uint]*models.Standalone
	upgrades      map[uint]*models.Upgrade
	updateLogs    []models.UpdateLog
}

// NewFake returns an empty in-memory repository.
func NewFake() *Fake {
	return &Fake{
		nextID:        1,
		manufacturers: map[uint]*models.Manufacturer{},
		ships:         map[uint]*models.Ship{},
		stores:        map[uint]*models.Store{},
		standalones:   map[uint]*models.Standalone{},
		upgrades:      map[uint]*models.Upgrade{},
	}
}

func (f *Fake) allocID() uint {
	id := f.nextID
	f.nextID++
	return id
}

func (f *Fake) Transact(ctx context.Context, fn func(tx Repository) error) error {
	return fn(f)
}

func (f *Fake) records(cat models.Category) []models.Record {
	var out []models.Record
	switch cat.Kind() {
	case models.KindManufacturer:
		for _, m := range f.manufacturers {
			out = append(out, m)
		}
	case models.KindShip:
		for _, s := range f.ships {
			out = append(out, s)
		}
	case models.KindStandalone:
		for _, s := range f.standalones {
			if s.Source == cat.Source() {
				out = append(out, s)
			}
		}
	case models.KindUpgrade:
		for _, u := range f.upgrades {
			if u.Source == cat.Source() {
				out = append(out, u)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SurrogateID() < out[j].SurrogateID() })
	return out
}

func (f *Fake) ListRecords(ctx context.Context, cat models.Category) ([]models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records(cat), nil
}

func (f *Fake) FindByKey(ctx context.Context, rec models.Record) (models.Record, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cat := categoryOf(rec)
	for _, existing := range f.records(cat) {
		if existing.Key() == rec.Key() {
			return existing, true, nil
		}
	}
	return nil, false, nil
}

func categoryOf(rec models.Record) models.Category {
	switch v := rec.(type) {
	case *models.Manufacturer:
		return models.CategoryManufacturers
	case *models.Ship:
		return models.CategoryShips
	case *models.Standalone:
		if v.Source == models.SourceCommunity {
			return models.CategoryCommunityStandalones
		}
		return models.CategoryOfficialStandalones
	case *models.Upgrade:
		if v.Source == models.SourceCommunity {
			return models.CategoryCommunityUpgrades
		}
		return models.CategoryOfficialUpgrades
	}
	return ""
}

func (f *Fake) Insert(ctx context.Context, rec models.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.allocID()
	switch v := rec.(type) {
	case *models.Manufacturer:
		v.ID = id
		cp := *v
		f.manufacturers[id] = &cp
	case *models.Ship:
		v.ID = id
		cp := *v
		f.ships[id] = &cp
	case *models.Standalone:
		v.ID = id
		cp := *v
		f.standalones[id] = &cp
	case *models.Upgrade:
		v.ID = id
		cp := *v
		f.upgrades[id] = &cp
	}
	return nil
}

func (f *Fake) Update(ctx context.Context, rec models.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := rec.(type) {
	case *models.Manufacturer:
		cp := *v
		f.manufacturers[v.ID] = &cp
	case *models.Ship:
		cp := *v
		f.ships[v.ID] = &cp
	case *models.Standalone:
		cp := *v
		f.standalones[v.ID] = &cp
	case *models.Upgrade:
		cp := *v
		f.upgrades[v.ID] = &cp
	}
	return nil
}

func (f *Fake) DeleteStale(ctx context.Context, cat models.Category, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	switch cat.Kind() {
	case models.KindManufacturer:
		for id, m := range f.manufacturers {
			if m.LoadDate.Before(cutoff) {
				delete(f.manufacturers, id)
				deleted++
			}
		}
	case models.KindShip:
		for id, s := range f.ships {
			if s.LoadDate.Before(cutoff) {
				delete(f.ships, id)
				deleted++
			}
		}
	case models.KindStandalone:
		for id, s := range f.standalones {
			if s.Source == cat.Source() && s.LoadDate.Before(cutoff) {
				delete(f.standalones, id)
				deleted++
			}
		}
	case models.KindUpgrade:
		for id, u := range f.upgrades {
			if u.Source == cat.Source() && u.LoadDate.Before(cutoff) {
				delete(f.upgrades, id)
				deleted++
			}
		}
	}
	return deleted, nil
}

func (f *Fake) EnsureStore(ctx context.Context, owner, url string) (models.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.stores {
		if s.Owner == owner && s.URL == url {
			return *s, nil
		}
	}
	store := &models.Store{ID: f.allocID(), Owner: owner, URL: url}
	f.stores[store.ID] = store
	return *store, nil
}

func (f *Fake) Ships(ctx context.Context) ([]models.Ship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Ship
	for _, s := range f.ships {
		ship := *s
		if m, ok := f.manufacturers[s.ManufacturerID]; ok {
			cp := *m
			ship.Manufacturer = &cp
		}
		out = append(out, ship)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *Fake) Manufacturers(ctx context.Context) ([]models.Manufacturer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Manufacturer
	for _, m := range f.manufacturers {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *Fake) Standalones(ctx context.Context, includeUnconfirmed bool) ([]models.Standalone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Standalone
	for _, s := range f.standalones {
		if !includeUnconfirmed && s.NeedsReview {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fake) Upgrades(ctx context.Context, includeUnconfirmed bool) ([]models.Upgrade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Upgrade
	for _, u := range f.upgrades {
		if !includeUnconfirmed && u.NeedsReview {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fake) AppendUpdateLog(ctx context.Context, cat models.Category, at time.Time, retain int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateLogs = append(f.updateLogs, models.UpdateLog{
		ID:       f.allocID(),
		Category: cat, CreatedAt: at,
	})
	if retain <= 0 {
		return nil
	}
	var kept []models.UpdateLog
	count := 0
	for i := len(f.updateLogs) - 1; i >= 0; i-- {
		row := f.updateLogs[i]
		if row.Category == cat {
			if count >= retain {
				continue
			}
			count++
		}
		kept = append([]models.UpdateLog{row}, kept...)
	}
	f.updateLogs = kept
	return nil
}

// UpdateLogs returns the retained log rows for a category, newest last.
func (f *Fake) UpdateLogs(cat models.Category) []models.UpdateLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.UpdateLog
	for _, row := range f.updateLogs {
		if row.Category == cat {
			out = append(out, row)
		}
	}
	return out
}

func (f *Fake) LastUpdate(ctx context.Context, cat models.Category) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.updateLogs) - 1; i >= 0; i-- {
		if f.updateLogs[i].Category == cat {
			return f.updateLogs[i].CreatedAt, true, nil
		}
	}
	return time.Time{}, false, nil
}
