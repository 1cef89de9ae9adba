package scraper

import (
	"strings"

	"upgrade-tracker/feature/catalog/models"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Column qualifiers for sniffing offer tables out of free-form posts.
// A table mentioning a "pack" column is ignored entirely: multi-ship
// bundles cannot be priced per ship.
var (
	qualifiersIgnore   = []string{"pack"}
	qualifiersPrice    = []string{"price", "$", "cost"}
	qualifiersFrom     = []string{"from"}
	qualifiersTo       = []string{"to"}
	qualifiersShipName = []string{"name", "ship", "item", "sale"}
)

// excludeKeywords drops rows advertising things that are not ships.
var excludeKeywords = []string{
	"paint", "skin", "armor", "warbond", "pack", "bundle", "credit",
}

type tableLayout struct {
	valid     bool
	isUpgrade bool
	price     int
	from      int
	to        int
	name      int
}

func sniffLayout(header []string, logger *zap.Logger) tableLayout {
	layout := tableLayout{price: -1, from: -1, to: -1, name: -1}

	joined := strings.ToLower(strings.Join(header, ""))
	for _, q := range qualifiersIgnore {
		if strings.Contains(joined, q) {
			logger.Debug("table ignored by qualifier", zap.Strings("header", header))
			return layout
		}
	}

	matches := func(cell string, qualifiers []string) bool {
		for _, q := range qualifiers {
			if strings.Contains(strings.ToLower(cell), q) {
				return true
			}
		}
		return false
	}
	for i, cell := range header {
		switch {
		case matches(cell, qualifiersPrice):
			layout.price = i
		case matches(cell, qualifiersFrom):
			layout.from = i
		case matches(cell, qualifiersTo):
			layout.to = i
		case matches(cell, qualifiersShipName):
			layout.name = i
		}
	}

	switch {
	case layout.from >= 0 && layout.to >= 0:
		layout.isUpgrade = true
	case layout.name >= 0:
	default:
		logger.Debug("could not map table columns", zap.Strings("header", header))
		return layout
	}
	if layout.price < 0 {
		logger.Debug("table has no price column", zap.Strings("header", header))
		return layout
	}
	layout.valid = true
	return layout
}

// parsePrice digit-filters a free-form price cell ("$45", "45 USD",
// "45,-"). Returns false when nothing numeric remains.
func parsePrice(cell string) (float64, bool) {
	var digits strings.Builder
	for _, r := range cell {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, false
	}
	var value float64
	for _, r := range digits.String() {
		value = value*10 + float64(r-'0')
	}
	return value, true
}

func excluded(name string) bool {
	lower := strings.ToLower(name)
	for _, key := range excludeKeywords {
		if strings.Contains(lower, key) {
			return true
		}
	}
	return false
}

// parseOfferTables extracts offers from every recognizable table in a
// post body. The ship names stay free text; resolving them against the
// catalog is the pipeline's job, not the parser's.
func parseOfferTables(doc *goquery.Document, storeOwner, storeURL string, logger *zap.Logger) []models.RawOffer {
	var offers []models.RawOffer
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		var header []string
		table.Find("thead tr th").Each(func(_ int, th *goquery.Selection) {
			header = append(header, strings.TrimSpace(th.Text()))
		})
		layout := sniffLayout(header, logger)
		if !layout.valid {
			return
		}

		table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("td").Each(func(_ int, td *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(td.Text()))
			})
			offer, ok := offerFromRow(layout, cells, storeOwner, storeURL)
			if !ok {
				return
			}
			offers = append(offers, offer)
		})
	})
	return offers
}

func offerFromRow(layout tableLayout, cells []string, storeOwner, storeURL string) (models.RawOffer, bool) {
	within := func(i int) bool { return i >= 0 && i < len(cells) }
	if !within(layout.price) {
		return models.RawOffer{}, false
	}
	price, ok := parsePrice(cells[layout.price])
	if !ok {
		return models.RawOffer{}, false
	}

	offer := models.RawOffer{
		PriceUSD:   price,
		StoreOwner: storeOwner,
		StoreURL:   storeURL,
	}
	if layout.isUpgrade {
		if !within(layout.from) || !within(layout.to) {
			return models.RawOffer{}, false
		}
		offer.ShipNameFrom = cells[layout.from]
		offer.ShipNameTo = cells[layout.to]
		if offer.ShipNameFrom == "" || offer.ShipNameTo == "" {
			return models.RawOffer{}, false
		}
		if excluded(offer.ShipNameFrom) || excluded(offer.ShipNameTo) {
			return models.RawOffer{}, false
		}
	} else {
		if !within(layout.name) || cells[layout.name] == "" {
			return models.RawOffer{}, false
		}
		offer.ShipName = cells[layout.name]
		if excluded(offer.ShipName) {
			return models.RawOffer{}, false
		}
	}
	return offer, true
}
