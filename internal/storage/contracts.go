package storage

import "context"

type Repository interface {
	EnsureSchema(ctx context.Context) error

	InsertTransfer(ctx context.Context, rec TransferRecord) error
	ListTransfers(ctx context.Context, limit int) ([]TransferRecord, error)
}
