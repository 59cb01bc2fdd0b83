package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFixed(t *testing.T) {
	f := NewFixed(decimal.NewFromInt(2500))
	if f.USDPerETH().String() != "2500" {
		t.Fatalf("expected 2500, got %s", f.USDPerETH())
	}

	// нулевой/отрицательный курс заменяется дефолтом
	f = NewFixed(decimal.Zero)
	if f.USDPerETH().String() != "3000" {
		t.Fatalf("expected default 3000, got %s", f.USDPerETH())
	}
}
