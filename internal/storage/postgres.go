package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/position"
)

const schema = `
CREATE TABLE IF NOT EXISTS sniped_positions (
	id            BIGSERIAL PRIMARY KEY,
	mint          TEXT NOT NULL,
	name          TEXT NOT NULL,
	symbol        TEXT NOT NULL,
	buy_price     DOUBLE PRECISION NOT NULL,
	sol_spent     DOUBLE PRECISION NOT NULL,
	token_amount  BIGINT NOT NULL,
	buy_signature TEXT NOT NULL,
	opened_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS position_sells (
	id              BIGSERIAL PRIMARY KEY,
	mint            TEXT NOT NULL,
	symbol          TEXT NOT NULL,
	stage           TEXT NOT NULL,
	tokens_sold     BIGINT NOT NULL,
	sold_percentage DOUBLE PRECISION NOT NULL,
	price_ratio     DOUBLE PRECISION NOT NULL,
	signature       TEXT NOT NULL,
	executed_at     TIMESTAMPTZ NOT NULL
);
`

// PostgresJournal implements Journal on a pgx connection pool.
type PostgresJournal struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresJournal connects to the database, verifies the connection
// and creates the journal tables if they do not exist yet.
func NewPostgresJournal(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresJournal, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create journal tables: %w", err)
	}

	return &PostgresJournal{
		pool:   pool,
		logger: logger.Named("journal"),
	}, nil
}

// RecordOpen persists a freshly opened position.
func (j *PostgresJournal) RecordOpen(ctx context.Context, p position.Position) error {
	query := `
		INSERT INTO sniped_positions (
			mint, name, symbol, buy_price, sol_spent,
			token_amount, buy_signature, opened_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := j.pool.Exec(ctx, query,
		p.MintAddress, p.Name, p.Symbol, p.BuyPrice, p.SolSpent,
		int64(p.TokenAmountHeld), p.BuySignature, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// RecordSell persists one executed sell.
func (j *PostgresJournal) RecordSell(ctx context.Context, rec SellRecord) error {
	query := `
		INSERT INTO position_sells (
			mint, symbol, stage, tokens_sold, sold_percentage,
			price_ratio, signature, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := j.pool.Exec(ctx, query,
		rec.Mint, rec.Symbol, rec.Stage, int64(rec.TokensSold), rec.SoldPercentage,
		rec.PriceRatio, rec.Signature, rec.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sell: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (j *PostgresJournal) Close() {
	j.pool.Close()
}

var _ Journal = (*PostgresJournal)(nil)
