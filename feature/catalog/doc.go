// Package catalog is the broker between the scraping collaborators,
// the persisted catalog, and the query engines.
//
// # Pipeline
//
// Each of the six categories flows through the same stages: a TTL-gated
// fetch (sourcecache), conversion of raw scraper output into records,
// reconciliation against the database (reconcile), and a rebuild of the
// in-memory query engines (resolve, pathfind). The Service serializes
// refreshes per category; distinct categories proceed in parallel.
//
// # Degradation
//
// An upstream failure is never fatal: the previously persisted snapshot
// is kept and the failure surfaces as a StaleDataRetainedError so
// callers can distinguish "nothing changed" from "source unreachable".
//
// # HTTP Surface
//
// The Handler exposes the catalog over Fiber: listing, fuzzy name
// resolution, cheapest-path queries, and refresh triggers.
package catalog
