package scraper

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"upgrade-tracker/feature/catalog/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// StorefrontConfig points the scraper at the official pledge store.
type StorefrontConfig struct {
	// BaseURL is the storefront root.
	BaseURL string `mapstructure:"base_url" default:"https://robertsspaceindustries.com"`
	// StoreOwner is the owner handle recorded on official offers.
	StoreOwner string `mapstructure:"store_owner" default:"RSI"`
}

// Storefront scrapes the official store: the ship matrix JSON endpoint,
// the paged SKU listing (HTML fragments inside JSON), and the upgrade
// GraphQL endpoint. It produces plain records; no HTML leaves this
// package.
type Storefront struct {
	client *resty.Client
	cfg    StorefrontConfig
	logger *zap.Logger

	mu        sync.Mutex
	shipNames map[int]string // upstream ship id -> name, from the last matrix fetch
}

// NewStorefront creates a storefront scraper.
func NewStorefront(cfg StorefrontConfig, logger *zap.Logger) *Storefront {
	return &Storefront{
		client: resty.New().SetBaseURL(cfg.BaseURL),
		cfg:    cfg,
		logger: logger,
	}
}

type shipMatrixResponse struct {
	Success int `json:"success"`
	Data    []struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Manufacturer struct {
			Name string `json:"name"`
			Code string `json:"code"`
		} `json:"manufacturer"`
	} `json:"data"`
}

// Ships fetches the ship matrix and returns one record per listed ship.
func (s *Storefront) Ships(ctx context.Context) ([]models.RawShip, error) {
	var body shipMatrixResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/ship-matrix/index")
	if err != nil {
		return nil, fmt.Errorf("fetch ship matrix: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("ship matrix endpoint returned %s", resp.Status())
	}

	ships := make([]models.RawShip, 0, len(body.Data))
	names := make(map[int]string, len(body.Data))
	for _, entry := range body.Data {
		if entry.Name == "" {
			continue
		}
		ships = append(ships, models.RawShip{
			Name:             strings.TrimSpace(entry.Name),
			ManufacturerName: strings.TrimSpace(entry.Manufacturer.Name),
			ManufacturerCode: strings.TrimSpace(entry.Manufacturer.Code),
		})
		if id, err := strconv.Atoi(entry.ID); err == nil {
			names[id] = strings.TrimSpace(entry.Name)
		}
	}

	s.mu.Lock()
	s.shipNames = names
	s.mu.Unlock()

	s.logger.Info("ship matrix fetched", zap.Int("ships", len(ships)))
	return ships, nil
}

type skuListResponse struct {
	Success int `json:"success"`
	Data    struct {
		TotalRows int    `json:"totalrows"`
		RowCount  int    `json:"rowcount"`
		HTML      string `json:"html"`
	} `json:"data"`
}

// Standalones pages through the SKU listing and returns one offer per
// ship SKU. Prices are advertised in cents.
func (s *Storefront) Standalones(ctx context.Context) ([]models.RawOffer, error) {
	var offers []models.RawOffer
	fetched := 0
	total := 1
	for page := 1; fetched < total; page++ {
		var body skuListResponse
		resp, err := s.client.R().
			SetContext(ctx).
			SetResult(&body).
			SetFormData(map[string]string{
				"itemType":   "skus",
				"page":       strconv.Itoa(page),
				"sort":       "store",
				"storefront": "pledge",
				"type":       "extras",
			}).
			Post("/api/store/getSKUs")
		if err != nil {
			return nil, fmt.Errorf("fetch sku page %d: %w", page, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("sku endpoint returned %s", resp.Status())
		}
		if body.Data.RowCount == 0 {
			break
		}
		total = body.Data.TotalRows
		fetched += body.Data.RowCount

		pageOffers, err := s.parseSKUPage(body.Data.HTML)
		if err != nil {
			return nil, err
		}
		offers = append(offers, pageOffers...)
	}
	s.logger.Info("sku listing fetched", zap.Int("offers", len(offers)))
	return offers, nil
}

func (s *Storefront) parseSKUPage(html string) ([]models.RawOffer, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse sku html: %w", err)
	}
	var offers []models.RawOffer
	doc.Find(".products-listing .product-item .info").Each(func(_ int, info *goquery.Selection) {
		name := strings.TrimSpace(info.Find(".title").Text())
		cents, ok := info.Find(".price .final-price").Attr("data-value")
		if name == "" || !ok {
			return
		}
		value, err := strconv.Atoi(cents)
		if err != nil {
			return
		}
		offers = append(offers, models.RawOffer{
			ShipName:   name,
			PriceUSD:   float64(value) / 100,
			StoreOwner: s.cfg.StoreOwner,
			StoreURL:   s.cfg.BaseURL,
		})
	})
	return offers, nil
}

const upgradeQuery = `query filterShips($fromId: Int, $toId: Int, $fromFilters: [FilterConstraintValues], $toFilters: [FilterConstraintValues]) {
  to(from: $fromId, filters: $toFilters) {
    ships { id skus { id price upgradePrice } }
  }
}`

type upgradeResponse struct {
	Data struct {
		To struct {
			Ships []struct {
				ID   int `json:"id"`
				SKUs []struct {
					UpgradePrice *int `json:"upgradePrice"`
				} `json:"skus"`
			} `json:"ships"`
		} `json:"to"`
	} `json:"data"`
}

// Upgrades queries the upgrade endpoint for every ship in the matrix
// and returns the cheapest SKU per from/to pair. The matrix is fetched
// first when no prior Ships call populated the id map.
func (s *Storefront) Upgrades(ctx context.Context) ([]models.RawOffer, error) {
	s.mu.Lock()
	names := s.shipNames
	s.mu.Unlock()
	if len(names) == 0 {
		if _, err := s.Ships(ctx); err != nil {
			return nil, err
		}
		s.mu.Lock()
		names = s.shipNames
		s.mu.Unlock()
	}

	var offers []models.RawOffer
	for fromID, fromName := range names {
		var body upgradeResponse
		resp, err := s.client.R().
			SetContext(ctx).
			SetResult(&body).
			SetBody(map[string]any{
				"operationName": "filterShips",
				"variables": map[string]any{
					"fromId":      fromID,
					"fromFilters": []any{},
					"toFilters":   []any{},
				},
				"query": upgradeQuery,
			}).
			Post("/pledge-store/api/upgrade")
		if err != nil {
			return nil, fmt.Errorf("fetch upgrades from %q: %w", fromName, err)
		}
		if resp.IsError() {
			s.logger.Warn("upgrade endpoint rejected ship, skipping",
				zap.String("from", fromName), zap.String("status", resp.Status()))
			continue
		}

		for _, target := range body.Data.To.Ships {
			toName, known := names[target.ID]
			if !known {
				continue
			}
			cheapest := -1
			for _, sku := range target.SKUs {
				if sku.UpgradePrice == nil {
					continue
				}
				if cheapest < 0 || *sku.UpgradePrice < cheapest {
					cheapest = *sku.UpgradePrice
				}
			}
			if cheapest < 0 {
				continue
			}
			offers = append(offers, models.RawOffer{
				ShipNameFrom: fromName,
				ShipNameTo:   toName,
				PriceUSD:     float64(cheapest) / 100,
				StoreOwner:   s.cfg.StoreOwner,
				StoreURL:     s.cfg.BaseURL,
			})
		}
	}
	s.logger.Info("upgrade listing fetched", zap.Int("offers", len(offers)))
	return offers, nil
}
