// Package models defines the persisted catalog entities and the
// category taxonomy.
//
// Entities carry natural keys as unique indexes alongside their
// surrogate IDs; the Record interface exposes those keys generically so
// the reconciler can treat every category the same way. LoadDate marks
// the last refresh that reaffirmed a row and drives staleness eviction.
package models
