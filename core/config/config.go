package config

import (
	"reflect"
	"strings"
	"time"

	"upgrade-tracker/core/database"
	"upgrade-tracker/core/logger"
	"upgrade-tracker/core/server"
	"upgrade-tracker/core/storage"
	"upgrade-tracker/feature/catalog/models"
	"upgrade-tracker/feature/scraper"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Database holds configuration for the database connection.
	Database database.Config `mapstructure:"database"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Storage holds configuration for the snapshot archive backend.
	Storage storage.Config `mapstructure:"storage"`
	// Catalog holds pipeline tuning: freshness windows and retention.
	Catalog CatalogConfig `mapstructure:"catalog"`
	// Storefront configures the official store scraper.
	Storefront scraper.StorefrontConfig `mapstructure:"storefront"`
	// Community configures the trade board scraper.
	Community scraper.CommunityConfig `mapstructure:"community"`
}

// CatalogConfig tunes the ingestion pipeline. Durations use Go syntax
// ("24h", "90m"). Staleness horizons default to twice the TTL when
// left empty.
type CatalogConfig struct {
	// ShipTTL gates re-fetching the ship matrix.
	ShipTTL string `mapstructure:"ship_ttl" default:"168h"`
	// OfficialTTL gates re-fetching official offers.
	OfficialTTL string `mapstructure:"official_ttl" default:"24h"`
	// CommunityTTL gates re-fetching community posts.
	CommunityTTL string `mapstructure:"community_ttl" default:"1h"`
	// ShipStaleAfter evicts ship/manufacturer rows not reaffirmed in time.
	ShipStaleAfter string `mapstructure:"ship_stale_after" default:""`
	// OfficialStaleAfter evicts official offer rows not reaffirmed in time.
	OfficialStaleAfter string `mapstructure:"official_stale_after" default:""`
	// CommunityStaleAfter evicts community offer rows not reaffirmed in time.
	CommunityStaleAfter string `mapstructure:"community_stale_after" default:""`
	// LogRetention caps update-log rows kept per category.
	LogRetention int `mapstructure:"log_retention" default:"100"`
	// ArchiveSnapshots enables archiving raw fetch payloads to storage.
	ArchiveSnapshots bool `mapstructure:"archive_snapshots" default:"false"`
}

// Freshness converts the string durations into per-category windows.
// Invalid or empty values fall back to the pipeline defaults.
func (c CatalogConfig) Freshness() map[models.Category]models.Freshness {
	out := map[models.Category]models.Freshness{}
	set := func(cats []models.Category, ttlStr, staleStr string) {
		ttl, err := time.ParseDuration(ttlStr)
		if err != nil || ttl <= 0 {
			return
		}
		stale, err := time.ParseDuration(staleStr)
		if err != nil || stale <= 0 {
			stale = 2 * ttl
		}
		for _, cat := range cats {
			out[cat] = models.Freshness{TTL: ttl, StaleAfter: stale}
		}
	}
	set([]models.Category{models.CategoryShips, models.CategoryManufacturers},
		c.ShipTTL, c.ShipStaleAfter)
	set([]models.Category{models.CategoryOfficialStandalones, models.CategoryOfficialUpgrades},
		c.OfficialTTL, c.OfficialStaleAfter)
	set([]models.Category{models.CategoryCommunityStandalones, models.CategoryCommunityUpgrades},
		c.CommunityTTL, c.CommunityStaleAfter)
	return out
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	// Load .env if present; missing files are fine in production.
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SERVER_PORT -> server.port)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
