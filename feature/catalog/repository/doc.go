// Package repository persists the catalog.
//
// The Repository interface abstracts storage so the reconciler and the
// service can be tested without a database. Gorm is the production
// implementation (MySQL or SQLite); Fake is an in-memory implementation
// for tests.
package repository
