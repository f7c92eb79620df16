// Package sqldb provides the database/sql implementations of the store
// interfaces defined in internal/store. The same queries run on PostgreSQL
// (through pgx's stdlib driver) and on SQLite (through the pure-Go modernc
// driver): placeholders are $N, inserts use RETURNING and upserts use
// ON CONFLICT. Only the schema migrations differ per dialect.
package sqldb
