package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Postgres stores documents in a single JSONB table. Transactions run at
// REPEATABLE READ; write-write contention surfaces as SQLSTATE 40001 and is
// mapped to ErrConflict so callers can retry.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// NewPostgres connects, verifies the connection and applies migrations.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", ErrUnavailable)
	}
	if err := runMigrations(databaseURL); err != nil {
		pool.Close()
		return nil, err
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the underlying pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func runMigrations(databaseURL string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}

// dbtx is satisfied by *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (p *Postgres) Get(ctx context.Context, collection, id string, v any) error {
	return pgGet(ctx, p.pool, collection, id, v)
}

func (p *Postgres) Set(ctx context.Context, collection, id string, v any) error {
	return pgSet(ctx, p.pool, collection, id, v)
}

func (p *Postgres) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return pgUpdate(ctx, p.pool, collection, id, fields)
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	return pgDelete(ctx, p.pool, collection, id)
}

func (p *Postgres) Query(ctx context.Context, collection string, filters []Filter, v any) error {
	sql := `SELECT data FROM documents WHERE collection = $1`
	args := []any{collection}
	for _, f := range filters {
		match, err := json.Marshal(map[string]any{f.Field: f.Value})
		if err != nil {
			return fmt.Errorf("marshal filter: %w", err)
		}
		args = append(args, string(match))
		sql += fmt.Sprintf(" AND data @> $%d::jsonb", len(args))
	}
	sql += ` ORDER BY id`

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return mapPgError(err)
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return mapPgError(err)
		}
		docs = append(docs, raw)
	}
	if err := rows.Err(); err != nil {
		return mapPgError(err)
	}

	arr, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("marshal query result: %w", err)
	}
	return json.Unmarshal(arr, v)
}

// Increment runs as a single UPDATE so concurrent increments serialize on
// the row lock instead of racing read-then-set.
func (p *Postgres) Increment(ctx context.Context, collection, id, field string, delta int64) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE documents
		SET data = jsonb_set(data, ARRAY[$3], to_jsonb(COALESCE((data->>$3)::bigint, 0) + $4)),
		    version = version + 1
		WHERE collection = $1 AND id = $2`,
		collection, id, field, delta)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	err := pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead}, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx})
	})
	return mapPgError(err)
}

// pgTx adapts a pgx transaction to the Tx interface.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Get(ctx context.Context, collection, id string, v any) error {
	return pgGet(ctx, t.tx, collection, id, v)
}

func (t *pgTx) Set(ctx context.Context, collection, id string, v any) error {
	return pgSet(ctx, t.tx, collection, id, v)
}

func (t *pgTx) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return pgUpdate(ctx, t.tx, collection, id, fields)
}

func (t *pgTx) Delete(ctx context.Context, collection, id string) error {
	return pgDelete(ctx, t.tx, collection, id)
}

// --- shared statements ---

func pgGet(ctx context.Context, db dbtx, collection, id string, v any) error {
	var raw []byte
	err := db.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return mapPgError(err)
	}
	return json.Unmarshal(raw, v)
}

func pgSet(ctx context.Context, db dbtx, collection, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, id, err)
	}
	_, err = db.Exec(ctx, `
		INSERT INTO documents (collection, id, data, version)
		VALUES ($1, $2, $3::jsonb, 1)
		ON CONFLICT (collection, id)
		DO UPDATE SET data = EXCLUDED.data, version = documents.version + 1`,
		collection, id, string(raw))
	return mapPgError(err)
}

func pgUpdate(ctx context.Context, db dbtx, collection, id string, fields map[string]any) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}
	tag, err := db.Exec(ctx, `
		UPDATE documents
		SET data = data || $3::jsonb, version = version + 1
		WHERE collection = $1 AND id = $2`,
		collection, id, string(patch))
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func pgDelete(ctx context.Context, db dbtx, collection, id string) error {
	_, err := db.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id)
	return mapPgError(err)
}

// mapPgError folds driver errors into the store taxonomy. Serialization
// failures and deadlocks become ErrConflict; connection-level failures
// become ErrUnavailable.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		}
	}
	if pgconn.SafeToRetry(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
