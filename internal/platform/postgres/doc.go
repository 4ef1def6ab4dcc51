// Package postgres provides PostgreSQL implementations of the store
// interfaces, built on sqlx over the pgx stdlib driver. It also owns the
// embedded goose migrations that create the schema those stores expect.
package postgres
