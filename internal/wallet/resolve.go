package wallet

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/pvzzle/hotwallet/internal/pricing"
)

// AmountResolver решает, сколько wei переводить, глядя на живой баланс.
// Эндпоинты-варианты отличаются только выбором резолвера.
type AmountResolver func(balanceWei *big.Int) (*big.Int, error)

func FixedWei(wei *big.Int) AmountResolver {
	return func(_ *big.Int) (*big.Int, error) {
		if wei == nil || wei.Sign() <= 0 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, ErrInvalidAmount)
		}
		return new(big.Int).Set(wei), nil
	}
}

func FixedEth(amountETH string) AmountResolver {
	return func(_ *big.Int) (*big.Int, error) {
		wei, err := ParseEthToWei(amountETH)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return wei, nil
	}
}

func PercentOfBalance(pct int64) AmountResolver {
	return func(balanceWei *big.Int) (*big.Int, error) {
		if pct <= 0 || pct > 100 {
			return nil, fmt.Errorf("%w: percent out of range", ErrInvalidRequest)
		}
		if balanceWei == nil || balanceWei.Sign() <= 0 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, ErrInvalidAmount)
		}
		out := new(big.Int).Mul(balanceWei, big.NewInt(pct))
		return out.Div(out, big.NewInt(100)), nil
	}
}

// USDAmount конвертирует сумму в USD в wei по справочному курсу (floor).
func USDAmount(amountUSD decimal.Decimal, oracle pricing.Oracle) AmountResolver {
	return func(_ *big.Int) (*big.Int, error) {
		rate := oracle.USDPerETH()
		if amountUSD.Sign() <= 0 || rate.Sign() <= 0 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, ErrInvalidAmount)
		}
		eth := amountUSD.Div(rate)
		wei := eth.Mul(decimal.New(1, 18)).Floor().BigInt()
		if wei.Sign() <= 0 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, ErrInvalidAmount)
		}
		return wei, nil
	}
}
