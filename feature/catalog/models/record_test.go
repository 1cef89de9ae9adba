package models_test

import (
	"testing"
	"time"

	"upgrade-tracker/feature/catalog/models"

	"github.com/stretchr/testify/assert"
)

func TestRecordKeys(t *testing.T) {
	t.Run("Offer Keys Use Natural Key Only", func(t *testing.T) {
		a := &models.Standalone{ID: 1, ShipID: 10, PriceUSD: 45.5, StoreID: 2}
		b := &models.Standalone{ID: 99, ShipID: 10, PriceUSD: 45.5, StoreID: 2}
		assert.Equal(t, a.Key(), b.Key(), "surrogate ids never participate in identity")

		c := &models.Standalone{ShipID: 10, PriceUSD: 45.5, StoreID: 3}
		assert.NotEqual(t, a.Key(), c.Key())
	})

	t.Run("Upgrade Key Is Directional", func(t *testing.T) {
		ab := &models.Upgrade{ShipFromID: 1, ShipToID: 2, PriceUSD: 10, StoreID: 1}
		ba := &models.Upgrade{ShipFromID: 2, ShipToID: 1, PriceUSD: 10, StoreID: 1}
		assert.NotEqual(t, ab.Key(), ba.Key())
	})

	t.Run("Price Formatting Is Stable", func(t *testing.T) {
		x := &models.Standalone{ShipID: 1, PriceUSD: 45, StoreID: 1}
		y := &models.Standalone{ShipID: 1, PriceUSD: 45.0, StoreID: 1}
		assert.Equal(t, x.Key(), y.Key())
	})
}

func TestMergeInto(t *testing.T) {
	t.Run("Manufacturer Code", func(t *testing.T) {
		existing := &models.Manufacturer{ID: 5, Name: "Aegis Dynamics", Code: "AEG"}
		incoming := &models.Manufacturer{Name: "Aegis Dynamics", Code: "AEGS"}

		assert.True(t, incoming.MergeInto(existing))
		assert.Equal(t, "AEGS", existing.Code)
		assert.Equal(t, uint(5), existing.ID)

		// Merging again changes nothing.
		assert.False(t, incoming.MergeInto(existing))
	})

	t.Run("Empty Incoming Code Preserved", func(t *testing.T) {
		existing := &models.Manufacturer{Name: "Aegis Dynamics", Code: "AEGS"}
		incoming := &models.Manufacturer{Name: "Aegis Dynamics"}

		assert.False(t, incoming.MergeInto(existing))
		assert.Equal(t, "AEGS", existing.Code)
	})

	t.Run("Offer Review Flag", func(t *testing.T) {
		existing := &models.Upgrade{ShipFromID: 1, ShipToID: 2, PriceUSD: 10, NeedsReview: true}
		incoming := &models.Upgrade{ShipFromID: 1, ShipToID: 2, PriceUSD: 10, NeedsReview: false}

		assert.True(t, incoming.MergeInto(existing))
		assert.False(t, existing.NeedsReview)
	})
}

func TestTouch(t *testing.T) {
	now := time.Now()
	ship := &models.Ship{Name: "Gladius"}
	ship.Touch(now)
	assert.Equal(t, now, ship.LoadDate)
}

func TestParseCategory(t *testing.T) {
	for _, cat := range models.Categories {
		got, err := models.ParseCategory(string(cat))
		assert.NoError(t, err)
		assert.Equal(t, cat, got)
	}

	_, err := models.ParseCategory("spaceships")
	assert.Error(t, err)
}
