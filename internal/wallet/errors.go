package wallet

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrSelfTransfer   = errors.New("cannot send to backend wallet")
	ErrNotFound       = errors.New("transaction not found")
)

// InsufficientBalanceError несёт актуальный баланс, чтобы отдать его вызывающему.
type InsufficientBalanceError struct {
	Balance *big.Int
	Amount  *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %s wei, need %s wei", e.Balance, e.Amount)
}

// ConfirmationPendingError: broadcast прошёл, подтверждения дождаться не удалось.
// Транзакция может подтвердиться позже — вызывающий перепроверяет по хэшу.
type ConfirmationPendingError struct {
	Hash common.Hash
	Err  error
}

func (e *ConfirmationPendingError) Error() string {
	return fmt.Sprintf("tx %s broadcast, confirmation pending: %v", e.Hash.Hex(), e.Err)
}

func (e *ConfirmationPendingError) Unwrap() error { return e.Err }
