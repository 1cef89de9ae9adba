package models

import (
	"fmt"
	"time"
)

// Category identifies one independently cached and independently evicted
// data domain. Each category has its own TTL and staleness horizon.
type Category string

const (
	CategoryShips                Category = "ships"
	CategoryManufacturers        Category = "manufacturers"
	CategoryOfficialStandalones  Category = "official_standalones"
	CategoryOfficialUpgrades     Category = "official_upgrades"
	CategoryCommunityStandalones Category = "community_standalones"
	CategoryCommunityUpgrades    Category = "community_upgrades"
)

// Kind is the entity type a category's rows are stored as.
type Kind string

const (
	KindManufacturer Kind = "manufacturer"
	KindShip         Kind = "ship"
	KindStandalone   Kind = "standalone"
	KindUpgrade      Kind = "upgrade"
)

// Source tags offer rows with the marketplace they were scraped from,
// so the two standalone (and upgrade) categories can be evicted and
// merged independently even though they share a table.
type Source string

const (
	SourceOfficial  Source = "official"
	SourceCommunity Source = "community"
)

// Categories lists all categories in refresh dependency order:
// manufacturers and ships first, offers after.
var Categories = []Category{
	CategoryManufacturers,
	CategoryShips,
	CategoryOfficialStandalones,
	CategoryOfficialUpgrades,
	CategoryCommunityStandalones,
	CategoryCommunityUpgrades,
}

// Kind returns the entity kind stored for this category.
func (c Category) Kind() Kind {
	switch c {
	case CategoryManufacturers:
		return KindManufacturer
	case CategoryShips:
		return KindShip
	case CategoryOfficialStandalones, CategoryCommunityStandalones:
		return KindStandalone
	default:
		return KindUpgrade
	}
}

// Source returns the marketplace tag for offer categories. Ship and
// manufacturer categories have no source and return the empty string.
func (c Category) Source() Source {
	switch c {
	case CategoryOfficialStandalones, CategoryOfficialUpgrades:
		return SourceOfficial
	case CategoryCommunityStandalones, CategoryCommunityUpgrades:
		return SourceCommunity
	default:
		return ""
	}
}

// ParseCategory converts a user-supplied category name.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Freshness holds the per-category refresh gate and eviction horizon.
type Freshness struct {
	// TTL gates when the category's source data is re-fetched.
	TTL time.Duration
	// StaleAfter is the maximum age of an unconfirmed row before eviction.
	StaleAfter time.Duration
}
