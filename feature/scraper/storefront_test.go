package scraper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func shipMatrixJSON() map[string]any {
	return map[string]any{
		"success": 1,
		"data": []map[string]any{
			{
				"id":   "1",
				"name": "Gladius",
				"manufacturer": map[string]any{
					"name": "Aegis Dynamics", "code": "AEGS",
				},
			},
			{
				"id":   "2",
				"name": "Freelancer MAX",
				"manufacturer": map[string]any{
					"name": "Musashi Industrial", "code": "MISC",
				},
			},
		},
	}
}

func TestStorefront_Ships(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ship-matrix/index", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(shipMatrixJSON())
	}))
	defer server.Close()

	s := NewStorefront(StorefrontConfig{BaseURL: server.URL, StoreOwner: "RSI"}, zap.NewNop())

	ships, err := s.Ships(context.Background())
	require.NoError(t, err)
	require.Len(t, ships, 2)
	assert.Equal(t, "Gladius", ships[0].Name)
	assert.Equal(t, "Aegis Dynamics", ships[0].ManufacturerName)
	assert.Equal(t, "AEGS", ships[0].ManufacturerCode)
}

func TestStorefront_Standalones(t *testing.T) {
	page := func(total, count int, items string) map[string]any {
		return map[string]any{
			"success": 1,
			"data": map[string]any{
				"totalrows": total,
				"rowcount":  count,
				"html":      items,
			},
		}
	}
	itemHTML := func(name string, cents int) string {
		return `<div class="products-listing"><div class="product-item"><div class="info">` +
			`<h3 class="title">` + name + `</h3>` +
			`<div class="price"><span class="final-price" data-value="` + strconv.Itoa(cents) + `"></span></div>` +
			`</div></div></div>`
	}

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/store/getSKUs", r.URL.Path)
		require.NoError(t, r.ParseForm())
		calls++

		w.Header().Set("Content-Type", "application/json")
		switch r.FormValue("page") {
		case "1":
			json.NewEncoder(w).Encode(page(2, 1, itemHTML("Gladius", 9000)))
		case "2":
			json.NewEncoder(w).Encode(page(2, 1, itemHTML("Freelancer MAX", 15000)))
		default:
			json.NewEncoder(w).Encode(page(2, 0, ""))
		}
	}))
	defer server.Close()

	s := NewStorefront(StorefrontConfig{BaseURL: server.URL, StoreOwner: "RSI"}, zap.NewNop())

	offers, err := s.Standalones(context.Background())
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, 2, calls, "pages through exactly the advertised rows")

	assert.Equal(t, "Gladius", offers[0].ShipName)
	assert.Equal(t, 90.0, offers[0].PriceUSD, "prices arrive in cents")
	assert.Equal(t, "RSI", offers[0].StoreOwner)
	assert.Equal(t, "Freelancer MAX", offers[1].ShipName)
	assert.Equal(t, 150.0, offers[1].PriceUSD)
}

func TestStorefront_Upgrades(t *testing.T) {
	upgradeBody := map[string]any{
		"data": map[string]any{
			"to": map[string]any{
				"ships": []map[string]any{
					{
						"id": 2,
						"skus": []map[string]any{
							{"upgradePrice": 6500},
							{"upgradePrice": 6000},
							{"upgradePrice": nil},
						},
					},
					{
						// Not in the matrix; must be skipped.
						"id":   99,
						"skus": []map[string]any{{"upgradePrice": 1000}},
					},
				},
			},
		},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/ship-matrix/index":
			json.NewEncoder(w).Encode(shipMatrixJSON())
		case "/pledge-store/api/upgrade":
			json.NewEncoder(w).Encode(upgradeBody)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	s := NewStorefront(StorefrontConfig{BaseURL: server.URL, StoreOwner: "RSI"}, zap.NewNop())

	// No prior Ships call: the matrix is fetched on demand.
	offers, err := s.Upgrades(context.Background())
	require.NoError(t, err)
	require.Len(t, offers, 2, "one offer per from-ship in the matrix")

	for _, offer := range offers {
		assert.Equal(t, "Freelancer MAX", offer.ShipNameTo)
		assert.Equal(t, 60.0, offer.PriceUSD, "cheapest SKU wins")
		assert.True(t, offer.IsUpgrade())
	}
}
