/*
Package store provides the persistence layer over PostgreSQL.

All queries run against a pgx connection pool. Methods return domain structs
and plain errors; mapping to response codes happens in the handler layer.
*/
package store

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store bundles all database queries behind one dependency.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps the given connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
