package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/pvzzle/hotwallet/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Postgres { return &Postgres{pool: pool} }

func (r *Postgres) EnsureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS transfers (
  hash TEXT PRIMARY KEY,
  chain_id TEXT NOT NULL,
  purpose TEXT NOT NULL,

  from_addr TEXT NOT NULL,
  to_addr   TEXT NOT NULL,

  value_wei NUMERIC(78,0) NOT NULL,
  nonce     BIGINT NOT NULL,
  gas       BIGINT NOT NULL,
  gas_used  BIGINT NOT NULL,
  gas_price_wei NUMERIC(78,0) NOT NULL,

  block_number BIGINT NOT NULL,
  status SMALLINT NOT NULL, -- 1 success, 0 failed

  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS transfers_created_idx ON transfers(created_at DESC);
`
	_, err := r.pool.Exec(ctx, ddl)
	return err
}

func (r *Postgres) InsertTransfer(ctx context.Context, rec storage.TransferRecord) error {
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	q := `
INSERT INTO transfers(
  hash, chain_id, purpose,
  from_addr, to_addr,
  value_wei, nonce, gas, gas_used, gas_price_wei,
  block_number, status
) VALUES (
  $1, $2, $3,
  $4, $5,
  $6::numeric, $7, $8, $9, $10::numeric,
  $11, $12
)
ON CONFLICT(hash) DO NOTHING
`
	_, err := r.pool.Exec(cctx, q,
		rec.Hash, rec.ChainID, rec.Purpose,
		rec.FromAddr, rec.ToAddr,
		rec.ValueWei, int64(rec.Nonce), int64(rec.Gas), int64(rec.GasUsed), rec.GasPriceWei,
		int64(rec.BlockNum), int16(rec.Status),
	)
	return err
}

func (r *Postgres) ListTransfers(ctx context.Context, limit int) ([]storage.TransferRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	q := `
SELECT
  hash, chain_id, purpose,
  from_addr, to_addr,
  value_wei::text, nonce, gas, gas_used, gas_price_wei::text,
  block_number, status, created_at
FROM transfers
ORDER BY created_at DESC
LIMIT $1
`
	rows, err := r.pool.Query(cctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.TransferRecord
	for rows.Next() {
		var (
			rec      storage.TransferRecord
			nonce    int64
			gas      int64
			gasUsed  int64
			blockNum int64
			status   int16
		)

		if err := rows.Scan(
			&rec.Hash, &rec.ChainID, &rec.Purpose,
			&rec.FromAddr, &rec.ToAddr,
			&rec.ValueWei, &nonce, &gas, &gasUsed, &rec.GasPriceWei,
			&blockNum, &status, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}

		rec.Nonce = uint64(nonce)
		rec.Gas = uint64(gas)
		rec.GasUsed = uint64(gasUsed)
		rec.BlockNum = uint64(blockNum)
		rec.Status = uint8(status)

		out = append(out, rec)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return out, nil
}

func (r *Postgres) String() string { return fmt.Sprintf("pgrepo(%p)", r.pool) }
