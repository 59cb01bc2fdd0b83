package storage

import "time"

type TransferRecord struct {
	Hash    string
	ChainID string
	Purpose string

	FromAddr string
	ToAddr   string

	ValueWei    string // big.Int как строка
	Nonce       uint64
	Gas         uint64
	GasUsed     uint64
	GasPriceWei string

	BlockNum uint64
	Status   uint8 // 1 success, 0 failed

	CreatedAt time.Time
}
