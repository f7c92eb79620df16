// Package testdb provides utilities for database tests.
//
// New returns a migrated database private to one test. By default it is a
// SQLite file in t.TempDir(), so tests need no external services. When
// COURSEWORK_TEST_DATABASE_URL is set the same tests run against that
// PostgreSQL database instead; its tables are truncated before each test, so
// such tests must not run in parallel.
//
// The Insert helpers seed rows with explicit ids through plain SQL,
// bypassing the services under test.
package testdb
