// Package pathfind answers cheapest-path queries over the offer graph.
//
// Ships are nodes, offers are weighted edges: standalone purchases
// connect a synthetic origin node to their ship, upgrades connect ship
// to ship. Queries run Dijkstra over an immutable snapshot that is
// rebuilt after each reconciliation and swapped in atomically, so
// readers never observe a half-built graph.
package pathfind
