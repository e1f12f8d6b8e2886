// Package postgres provides a PostgreSQL implementation of
// transport.ExecutionStore. It uses pgx/v5 for connection pooling and JSONB
// columns for outputs and errors.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/llmhub/pkg/api"
	"github.com/rhuss/llmhub/pkg/storage"
	"github.com/rhuss/llmhub/pkg/transport"
)

// uniqueViolation is the SQLSTATE of a duplicate primary key.
const uniqueViolation = "23505"

// Store is a PostgreSQL-backed ExecutionStore.
type Store struct {
	pool *pgxpool.Pool
}

var _ transport.ExecutionStore = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg = cfg.withDefaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// SaveExecution inserts a record owned by the subject in ctx.
func (s *Store) SaveExecution(ctx context.Context, exec *storage.Execution) error {
	var errorJSON []byte
	if exec.Error != nil {
		data, err := json.Marshal(exec.Error)
		if err != nil {
			return fmt.Errorf("marshaling error: %w", err)
		}
		errorJSON = data
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO executions (
			id, owner, status, credentials, items,
			outputs, error, created_at, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		exec.ID, storage.OwnerFromContext(ctx), string(exec.Status), exec.Credentials, exec.Items,
		nullJSON(exec.Outputs), nullJSON(errorJSON), exec.CreatedAt, exec.DurationMS,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting execution: %w", err)
	}
	return nil
}

const selectColumns = `id, status, credentials, items, outputs, error, created_at, duration_ms`

// GetExecution retrieves a record by ID, scoped by owner when one is
// present in the context.
func (s *Store) GetExecution(ctx context.Context, id string) (*storage.Execution, error) {
	query := "SELECT " + selectColumns + " FROM executions WHERE id = $1"
	args := []any{id}
	if owner := storage.OwnerFromContext(ctx); owner != "" {
		query += " AND owner = $2"
		args = append(args, owner)
	}

	exec, err := scanExecution(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying execution: %w", err)
	}
	return exec, nil
}

// DeleteExecution removes a record.
func (s *Store) DeleteExecution(ctx context.Context, id string) error {
	query := "DELETE FROM executions WHERE id = $1"
	args := []any{id}
	if owner := storage.OwnerFromContext(ctx); owner != "" {
		query += " AND owner = $2"
		args = append(args, owner)
	}

	result, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListExecutions returns a page of records ordered by insertion, newest
// first unless opts.Order is "asc".
func (s *Store) ListExecutions(ctx context.Context, opts transport.ListOptions) (*transport.ExecutionList, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if owner := storage.OwnerFromContext(ctx); owner != "" {
		where = append(where, "owner = "+arg(owner))
	}
	if opts.Status != "" {
		where = append(where, "status = "+arg(string(opts.Status)))
	}

	order, cmp := "DESC", "<"
	if opts.Order == "asc" {
		order, cmp = "ASC", ">"
	}
	if opts.After != "" {
		// An unknown cursor yields NULL and therefore no rows.
		where = append(where, fmt.Sprintf("seq %s (SELECT seq FROM executions WHERE id = %s)", cmp, arg(opts.After)))
	}

	limit := opts.EffectiveLimit()
	query := "SELECT " + selectColumns + " FROM executions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY seq %s LIMIT %s", order, arg(limit+1))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing executions: %w", err)
	}
	defer rows.Close()

	result := &transport.ExecutionList{Object: "list", Data: []*storage.Execution{}}
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning execution: %w", err)
		}
		result.Data = append(result.Data, exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing executions: %w", err)
	}

	if len(result.Data) > limit {
		result.Data = result.Data[:limit]
		result.HasMore = true
	}
	if len(result.Data) > 0 {
		result.FirstID = result.Data[0].ID
		result.LastID = result.Data[len(result.Data)-1].ID
	}
	return result, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanExecution(row pgx.Row) (*storage.Execution, error) {
	var exec storage.Execution
	var status string
	var outputsJSON, errorJSON []byte

	if err := row.Scan(
		&exec.ID, &status, &exec.Credentials, &exec.Items,
		&outputsJSON, &errorJSON, &exec.CreatedAt, &exec.DurationMS,
	); err != nil {
		return nil, err
	}

	exec.Object = storage.ObjectExecution
	exec.Status = storage.Status(status)
	if len(outputsJSON) > 0 {
		exec.Outputs = json.RawMessage(outputsJSON)
	}
	if len(errorJSON) > 0 {
		var apiErr api.APIError
		if err := json.Unmarshal(errorJSON, &apiErr); err != nil {
			return nil, fmt.Errorf("unmarshaling error: %w", err)
		}
		exec.Error = &apiErr
	}
	return &exec, nil
}

// nullJSON converts an empty byte slice to nil for nullable JSONB columns.
func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
