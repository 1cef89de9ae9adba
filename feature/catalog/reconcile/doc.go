// Package reconcile merges freshly fetched records into the persisted
// catalog.
//
// # Semantics
//
// Each category update runs in one transaction: rows not reaffirmed
// within the staleness horizon are evicted first, then every candidate
// is matched by natural key and either inserted or merged into the
// existing row. Surviving rows keep their surrogate IDs, so offer
// references stay valid across refreshes. A successful update appends
// to the category's update log and trims it to the retention cap.
//
// Feeding records of the wrong kind is a ValidationError and aborts
// before any write.
package reconcile
