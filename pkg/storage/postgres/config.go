package postgres

import "time"

// Config describes the connection pool backing a Store.
type Config struct {
	DSN string

	// Pool bounds. Zero values fall back to 10 connections, 1 idle
	// connection and a five minute connection lifetime.
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration

	// MigrateOnStart applies pending schema migrations in New.
	MigrateOnStart bool
}

func (c Config) withDefaults() Config {
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	if c.MinConns == 0 {
		c.MinConns = 1
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = 5 * time.Minute
	}
	return c
}
