// Package store provides connect.Store implementations: Memory for tests and
// single-process deployments, and Postgres over pgx with goose migrations.
package store
