package models

// Raw records are what the scraping collaborators hand the pipeline:
// plain parsed values, free of HTML and markup. Ship and offer names in
// community records are free text and still need resolution against the
// catalog before they become entities.

// RawShip is a scraped ship listing.
type RawShip struct {
	Name             string
	ManufacturerName string
	ManufacturerCode string
}

// RawOffer is a scraped purchase or upgrade offer. Standalone offers
// set ShipName; upgrade offers set ShipNameFrom and ShipNameTo.
type RawOffer struct {
	ShipName     string
	ShipNameFrom string
	ShipNameTo   string
	PriceUSD     float64
	StoreOwner   string
	StoreURL     string
}

// IsUpgrade reports whether the offer describes a ship-to-ship trade.
func (o RawOffer) IsUpgrade() bool {
	return o.ShipNameFrom != "" && o.ShipNameTo != ""
}
