package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*fiber.App, *Service) {
	t.Helper()
	svc, _, _ := newTestService(t)
	for _, r := range svc.RefreshAll(context.Background(), false) {
		require.NoError(t, r.Err)
	}

	app := fiber.New()
	NewHandler(svc).RegisterRoutes(app)
	return app, svc
}

func decodeBody(t *testing.T, resp io.Reader, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp).Decode(out))
}

func TestHandler_ListShips(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/catalog/ships", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var ships []map[string]any
	decodeBody(t, resp.Body, &ships)
	assert.Len(t, ships, 2)
}

func TestHandler_Resolve(t *testing.T) {
	app, _ := newTestApp(t)

	t.Run("Match", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/catalog/resolve?q=gladius", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body map[string]any
		decodeBody(t, resp.Body, &body)
		assert.Equal(t, "Gladius", body["ship_name"])
		assert.Equal(t, false, body["needs_review"])
	})

	t.Run("No Match", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/catalog/resolve?q=zzzzqq", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("Missing Query", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/catalog/resolve", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandler_Paths(t *testing.T) {
	app, svc := newTestApp(t)

	gladius, ok := svc.ResolveShipName("Gladius")
	require.True(t, ok)
	freelancer, ok := svc.ResolveShipName("Freelancer MAX")
	require.True(t, ok)

	t.Run("Purchase Path", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET",
			"/catalog/path/purchase/"+itoa(freelancer.ShipID), nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body map[string]any
		decodeBody(t, resp.Body, &body)
		// Buy Gladius $90, upgrade to Freelancer MAX $60.
		assert.Equal(t, 150.0, body["total_cost"])
	})

	t.Run("Upgrade Path", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET",
			"/catalog/path/upgrade/"+itoa(gladius.ShipID)+"/"+itoa(freelancer.ShipID), nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body map[string]any
		decodeBody(t, resp.Body, &body)
		assert.Equal(t, 60.0, body["total_cost"])
	})

	t.Run("Origin Start Rejected", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET",
			"/catalog/path/upgrade/0/"+itoa(freelancer.ShipID), nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Unreachable Is 404", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET",
			"/catalog/path/upgrade/"+itoa(freelancer.ShipID)+"/"+itoa(gladius.ShipID), nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestHandler_Refresh(t *testing.T) {
	app, _ := newTestApp(t)

	t.Run("Known Category", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("POST", "/catalog/refresh/ships", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("Unknown Category", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("POST", "/catalog/refresh/bogus", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandler_LoadDate(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/catalog/loaddate/ships", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp.Body, &body)
	assert.Equal(t, "ships", body["category"])
	assert.NotEmpty(t, body["loaddate"])
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
