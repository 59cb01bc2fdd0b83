package pricing

import "github.com/shopspring/decimal"

// Oracle отдаёт курс USD за 1 ETH. Контракт: значение справочное,
// для ценообразования/бухгалтерии не годится.
type Oracle interface {
	USDPerETH() decimal.Decimal
}

const DefaultUSDPerETH = 3000

// Fixed — захардкоженный курс из конфига. Живого фида здесь нет намеренно.
type Fixed struct {
	rate decimal.Decimal
}

func NewFixed(rate decimal.Decimal) *Fixed {
	if rate.Sign() <= 0 {
		rate = decimal.NewFromInt(DefaultUSDPerETH)
	}
	return &Fixed{rate: rate}
}

func (f *Fixed) USDPerETH() decimal.Decimal { return f.rate }
