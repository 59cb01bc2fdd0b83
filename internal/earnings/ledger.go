package earnings

import (
	"log"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Ledger — справочный счётчик заработка в USD. Живёт в памяти процесса,
// с ончейн-переводами никак не связан и ими не списывается.
type Ledger struct {
	mu    sync.Mutex
	total decimal.Decimal
}

func NewLedger() *Ledger {
	return &Ledger{total: decimal.Zero}
}

// Credit прибавляет amountUSD к счётчику и возвращает новый итог.
// Непарсящееся или отрицательное значение трактуется как 0.
func (l *Ledger) Credit(amountUSD, source string) decimal.Decimal {
	amt, err := decimal.NewFromString(strings.TrimSpace(amountUSD))
	if err != nil || amt.IsNegative() {
		amt = decimal.Zero
	}

	l.mu.Lock()
	l.total = l.total.Add(amt)
	total := l.total
	l.mu.Unlock()

	log.Printf("[earnings] +%s USD from %q, total=%s", amt.String(), source, total.String())
	return total
}

func (l *Ledger) Total() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}
