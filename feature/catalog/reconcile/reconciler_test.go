package reconcile_test

import (
	"context"
	"testing"
	"time"

	"upgrade-tracker/feature/catalog/models"
	"upgrade-tracker/feature/catalog/reconcile"
	"upgrade-tracker/feature/catalog/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func manufacturers(names ...string) []models.Record {
	out := make([]models.Record, 0, len(names))
	for _, n := range names {
		out = append(out, &models.Manufacturer{Name: n, Code: n[:3]})
	}
	return out
}

func TestReconciler_UpdateCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("Insert Then Idempotent", func(t *testing.T) {
		repo := repository.NewFake()
		r := reconcile.New(repo, zap.NewNop(), reconcile.Options{})

		changed, err := r.UpdateCategory(ctx, models.CategoryManufacturers,
			manufacturers("Aegis Dynamics", "Origin Jumpworks"), 14*24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 2, changed)

		// Same candidates again: nothing to insert, nothing to merge.
		changed, err = r.UpdateCategory(ctx, models.CategoryManufacturers,
			manufacturers("Aegis Dynamics", "Origin Jumpworks"), 14*24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 0, changed)

		rows, err := repo.Manufacturers(ctx)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("Merge Keeps Surrogate ID", func(t *testing.T) {
		repo := repository.NewFake()
		r := reconcile.New(repo, zap.NewNop(), reconcile.Options{})

		_, err := r.UpdateCategory(ctx, models.CategoryManufacturers,
			[]models.Record{&models.Manufacturer{Name: "Aegis Dynamics", Code: "AEGS"}}, 0)
		require.NoError(t, err)

		before, err := repo.Manufacturers(ctx)
		require.NoError(t, err)
		require.Len(t, before, 1)

		// Same natural key, changed attribute.
		changed, err := r.UpdateCategory(ctx, models.CategoryManufacturers,
			[]models.Record{&models.Manufacturer{Name: "Aegis Dynamics", Code: "AEGIS"}}, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, changed)

		after, err := repo.Manufacturers(ctx)
		require.NoError(t, err)
		require.Len(t, after, 1)
		assert.Equal(t, before[0].ID, after[0].ID)
		assert.Equal(t, "AEGIS", after[0].Code)
	})

	t.Run("Evicts Stale Rows", func(t *testing.T) {
		repo := repository.NewFake()
		current := time.Now()
		r := reconcile.New(repo, zap.NewNop(), reconcile.Options{
			Now: func() time.Time { return current },
		})

		_, err := r.UpdateCategory(ctx, models.CategoryManufacturers,
			manufacturers("Aegis Dynamics"), 14*24*time.Hour)
		require.NoError(t, err)

		// A fetch far in the future no longer lists Aegis; the old row
		// is past the staleness horizon and goes away.
		current = current.Add(15 * 24 * time.Hour)
		changed, err := r.UpdateCategory(ctx, models.CategoryManufacturers,
			manufacturers("Origin Jumpworks"), 14*24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 1, changed)

		rows, err := repo.Manufacturers(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Origin Jumpworks", rows[0].Name)
	})

	t.Run("Reaffirmed Rows Survive Eviction", func(t *testing.T) {
		repo := repository.NewFake()
		current := time.Now()
		r := reconcile.New(repo, zap.NewNop(), reconcile.Options{
			Now: func() time.Time { return current },
		})

		_, err := r.UpdateCategory(ctx, models.CategoryManufacturers,
			manufacturers("Aegis Dynamics"), 14*24*time.Hour)
		require.NoError(t, err)

		// Re-listed within the horizon: loaddate is reaffirmed.
		current = current.Add(10 * 24 * time.Hour)
		_, err = r.UpdateCategory(ctx, models.CategoryManufacturers,
			manufacturers("Aegis Dynamics"), 14*24*time.Hour)
		require.NoError(t, err)

		current = current.Add(10 * 24 * time.Hour)
		_, err = r.UpdateCategory(ctx, models.CategoryManufacturers,
			manufacturers("Aegis Dynamics"), 14*24*time.Hour)
		require.NoError(t, err)

		rows, err := repo.Manufacturers(ctx)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("Empty Candidates Still Log", func(t *testing.T) {
		repo := repository.NewFake()
		r := reconcile.New(repo, zap.NewNop(), reconcile.Options{})

		changed, err := r.UpdateCategory(ctx, models.CategoryManufacturers, nil, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, changed)
		assert.Len(t, repo.UpdateLogs(models.CategoryManufacturers), 1)
	})

	t.Run("Wrong Kind Is ValidationError", func(t *testing.T) {
		repo := repository.NewFake()
		r := reconcile.New(repo, zap.NewNop(), reconcile.Options{})

		_, err := r.UpdateCategory(ctx, models.CategoryShips,
			manufacturers("Aegis Dynamics"), 0)
		var verr *reconcile.ValidationError
		assert.ErrorAs(t, err, &verr)

		// Nothing was written.
		assert.Empty(t, repo.UpdateLogs(models.CategoryShips))
	})

	t.Run("Log Retention Trims", func(t *testing.T) {
		repo := repository.NewFake()
		r := reconcile.New(repo, zap.NewNop(), reconcile.Options{LogRetention: 3})

		for i := 0; i < 5; i++ {
			_, err := r.UpdateCategory(ctx, models.CategoryManufacturers, nil, 0)
			require.NoError(t, err)
		}
		assert.Len(t, repo.UpdateLogs(models.CategoryManufacturers), 3)
	})
}
