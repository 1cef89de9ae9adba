package catalog

import (
	"fmt"

	"upgrade-tracker/feature/catalog/models"
)

// StaleDataRetainedError reports that a category's upstream fetch
// failed and the previously persisted snapshot was kept. It is a
// warning, not a fatal condition: other categories proceed and queries
// keep serving the last good data.
type StaleDataRetainedError struct {
	Category models.Category
	Err      error
}

func (e *StaleDataRetainedError) Error() string {
	return fmt.Sprintf("refresh of %s failed, retaining stale data: %v", e.Category, e.Err)
}

func (e *StaleDataRetainedError) Unwrap() error { return e.Err }
