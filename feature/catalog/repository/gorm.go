package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"upgrade-tracker/feature/catalog/models"

	"gorm.io/gorm"
)

// Gorm is the gorm-backed Repository. It works against any dialect the
// database package can open (mysql in deployment, sqlite for local use).
type Gorm struct {
	db *gorm.DB
}

// NewGorm wraps an open gorm connection.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

// Migrate applies the catalog schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}

func (r *Gorm) Transact(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Gorm{db: tx})
	})
}

func (r *Gorm) ListRecords(ctx context.Context, cat models.Category) ([]models.Record, error) {
	db := r.db.WithContext(ctx)
	switch cat.Kind() {
	case models.KindManufacturer:
		var rows []models.Manufacturer
		if err := db.Find(&rows).Error; err != nil {
			return nil, err
		}
		records := make([]models.Record, len(rows))
		for i := range rows {
			records[i] = &rows[i]
		}
		return records, nil
	case models.KindShip:
		var rows []models.Ship
		if err := db.Find(&rows).Error; err != nil {
			return nil, err
		}
		records := make([]models.Record, len(rows))
		for i := range rows {
			records[i] = &rows[i]
		}
		return records, nil
	case models.KindStandalone:
		var rows []models.Standalone
		if err := db.Where("source = ?", cat.Source()).Find(&rows).Error; err != nil {
			return nil, err
		}
		records := make([]models.Record, len(rows))
		for i := range rows {
			records[i] = &rows[i]
		}
		return records, nil
	case models.KindUpgrade:
		var rows []models.Upgrade
		if err := db.Where("source = ?", cat.Source()).Find(&rows).Error; err != nil {
			return nil, err
		}
		records := make([]models.Record, len(rows))
		for i := range rows {
			records[i] = &rows[i]
		}
		return records, nil
	}
	return nil, fmt.Errorf("unknown category %q", cat)
}

func (r *Gorm) FindByKey(ctx context.Context, rec models.Record) (models.Record, bool, error) {
	db := r.db.WithContext(ctx)
	var err error
	var found models.Record
	switch v := rec.(type) {
	case *models.Manufacturer:
		var row models.Manufacturer
		err = db.Where("name = ?", v.Name).First(&row).Error
		found = &row
	case *models.Ship:
		var row models.Ship
		err = db.Where("name = ?", v.Name).First(&row).Error
		found = &row
	case *models.Standalone:
		var row models.Standalone
		err = db.Where("ship_id = ? AND price_usd = ? AND store_id = ?",
			v.ShipID, v.PriceUSD, v.StoreID).First(&row).Error
		found = &row
	case *models.Upgrade:
		var row models.Upgrade
		err = db.Where("ship_from_id = ? AND ship_to_id = ? AND price_usd = ? AND store_id = ?",
			v.ShipFromID, v.ShipToID, v.PriceUSD, v.StoreID).First(&row).Error
		found = &row
	default:
		return nil, false, fmt.Errorf("unsupported record type %T", rec)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return found, true, nil
}

func (r *Gorm) Insert(ctx context.Context, rec models.Record) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *Gorm) Update(ctx context.Context, rec models.Record) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *Gorm) DeleteStale(ctx context.Context, cat models.Category, cutoff time.Time) (int64, error) {
	db := r.db.WithContext(ctx).Where("load_date < ?", cutoff)
	var res *gorm.DB
	switch cat.Kind() {
	case models.KindManufacturer:
		res = db.Delete(&models.Manufacturer{})
	case models.KindShip:
		res = db.Delete(&models.Ship{})
	case models.KindStandalone:
		res = db.Where("source = ?", cat.Source()).Delete(&models.Standalone{})
	case models.KindUpgrade:
		res = db.Where("source = ?", cat.Source()).Delete(&models.Upgrade{})
	default:
		return 0, fmt.Errorf("unknown category %q", cat)
	}
	return res.RowsAffected, res.Error
}

func (r *Gorm) EnsureStore(ctx context.Context, owner, url string) (models.Store, error) {
	db := r.db.WithContext(ctx)
	var store models.Store
	err := db.Where("owner = ? AND url = ?", owner, url).First(&store).Error
	if err == nil {
		return store, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Store{}, err
	}
	store = models.Store{Owner: owner, URL: url}
	if err := db.Create(&store).Error; err != nil {
		return models.Store{}, err
	}
	return store, nil
}

func (r *Gorm) Ships(ctx context.Context) ([]models.Ship, error) {
	var rows []models.Ship
	err := r.db.WithContext(ctx).Preload("Manufacturer").Order("name").Find(&rows).Error
	return rows, err
}

func (r *Gorm) Manufacturers(ctx context.Context) ([]models.Manufacturer, error) {
	var rows []models.Manufacturer
	err := r.db.WithContext(ctx).Order("name").Find(&rows).Error
	return rows, err
}

func (r *Gorm) Standalones(ctx context.Context, includeUnconfirmed bool) ([]models.Standalone, error) {
	db := r.db.WithContext(ctx)
	if !includeUnconfirmed {
		db = db.Where("needs_review = ?", false)
	}
	var rows []models.Standalone
	err := db.Preload("Ship").Preload("Store").Order("id").Find(&rows).Error
	return rows, err
}

func (r *Gorm) Upgrades(ctx context.Context, includeUnconfirmed bool) ([]models.Upgrade, error) {
	db := r.db.WithContext(ctx)
	if !includeUnconfirmed {
		db = db.Where("needs_review = ?", false)
	}
	var rows []models.Upgrade
	err := db.Preload("ShipFrom").Preload("ShipTo").Preload("Store").Order("id").Find(&rows).Error
	return rows, err
}

func (r *Gorm) AppendUpdateLog(ctx context.Context, cat models.Category, at time.Time, retain int) error {
	db := r.db.WithContext(ctx)
	if err := db.Create(&models.UpdateLog{Category: cat, CreatedAt: at}).Error; err != nil {
		return err
	}
	if retain <= 0 {
		return nil
	}
	// Keep only the newest `retain` rows for this category.
	var keep []uint
	err := db.Model(&models.UpdateLog{}).
		Where("category = ?", cat).
		Order("created_at DESC, id DESC").
		Limit(retain).
		Pluck("id", &keep).Error
	if err != nil {
		return err
	}
	return db.Where("category = ? AND id NOT IN ?", cat, keep).
		Delete(&models.UpdateLog{}).Error
}

func (r *Gorm) LastUpdate(ctx context.Context, cat models.Category) (time.Time, bool, error) {
	var row models.UpdateLog
	err := r.db.WithContext(ctx).
		Where("category = ?", cat).
		Order("created_at DESC, id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return row.CreatedAt, true, nil
}
