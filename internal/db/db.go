package db

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens and pings a Postgres connection.
func Connect(dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		return nil, err
	}
	return conn, nil
}

// Wrap exposes an existing connection through sqlx for the repositories that
// rely on struct scanning.
func Wrap(conn *sql.DB) *sqlx.DB {
	return sqlx.NewDb(conn, "postgres")
}
