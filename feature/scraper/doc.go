// Package scraper fetches raw ship and offer data from upstream
// sources.
//
// # Sources
//
//   - Storefront: the official store. Ships come from the ship matrix
//     JSON endpoint, standalone offers from the paged SKU listing, and
//     upgrade offers from the pledge-store GraphQL API.
//   - Community: a trade board. Posts with a store flair are fetched
//     and their HTML tables parsed; column meaning is sniffed from
//     header keywords, so table layouts can vary between sellers.
//
// Scrapers return plain parsed records and know nothing about
// persistence; the catalog service owns conversion and reconciliation.
package scraper
