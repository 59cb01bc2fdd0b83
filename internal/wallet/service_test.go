package wallet

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/pvzzle/hotwallet/internal/bus"
	"github.com/pvzzle/hotwallet/internal/storage/mem"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type mockChain struct {
	mu sync.Mutex

	balance  *big.Int
	nonce    uint64
	gasPrice *big.Int
	head     uint64

	confirmOnSend bool
	sendErr       error

	balanceCalls int
	sent         []*types.Transaction
	receipts     map[common.Hash]*types.Receipt
}

func newMockChain(balance *big.Int) *mockChain {
	return &mockChain{
		balance:       balance,
		gasPrice:      big.NewInt(1_000_000_000),
		head:          100,
		confirmOnSend: true,
		receipts:      make(map[common.Hash]*types.Receipt),
	}
}

func (m *mockChain) BalanceAt(_ context.Context, _ common.Address, _ *big.Int) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balanceCalls++
	return new(big.Int).Set(m.balance), nil
}

func (m *mockChain) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nonce, nil
}

func (m *mockChain) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	return new(big.Int).Set(m.gasPrice), nil
}

func (m *mockChain) ChainID(_ context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (m *mockChain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendErr != nil {
		return m.sendErr
	}

	m.sent = append(m.sent, tx)
	m.nonce++ // pending nonce учитывает транзакцию в полёте

	if m.confirmOnSend {
		m.receipts[tx.Hash()] = &types.Receipt{
			Status:            types.ReceiptStatusSuccessful,
			BlockNumber:       new(big.Int).SetUint64(m.head),
			GasUsed:           21000,
			EffectiveGasPrice: new(big.Int).Set(m.gasPrice),
		}
	}
	return nil
}

func (m *mockChain) TransactionByHash(_ context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, tx := range m.sent {
		if tx.Hash() == hash {
			_, confirmed := m.receipts[hash]
			return tx, !confirmed, nil
		}
	}
	return nil, false, ethereum.NotFound
}

func (m *mockChain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (m *mockChain) EstimateGas(_ context.Context, _ ethereum.CallMsg) (uint64, error) {
	return 21000, nil
}

func (m *mockChain) BlockNumber(_ context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.head, nil
}

func ethWei(n int64) *big.Int {
	oneEth := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return new(big.Int).Mul(oneEth, big.NewInt(n))
}

func newTestService(t *testing.T, cl *mockChain, notifyCh chan<- bus.Notification) (*Service, *mem.Store) {
	t.Helper()

	signer := newTestSigner(t)
	repo := mem.NewStore()
	svc := NewService(signer, cl, big.NewInt(1), repo, notifyCh, ServiceConfig{Confirmations: 1})
	return svc, repo
}

func TestTransfer_MalformedAddress(t *testing.T) {
	cl := newMockChain(ethWei(2))
	svc, _ := newTestService(t, cl, nil)

	_, err := svc.Transfer(context.Background(), "not-an-address", FixedEth("1"), "withdraw")
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if cl.balanceCalls != 0 {
		t.Fatalf("expected no chain calls, got %d balance calls", cl.balanceCalls)
	}
}

func TestTransfer_EmptyRequest(t *testing.T) {
	cl := newMockChain(ethWei(2))
	svc, _ := newTestService(t, cl, nil)

	_, err := svc.Transfer(context.Background(), "", FixedEth("1"), "withdraw")
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}

	_, err = svc.Transfer(context.Background(), "0x"+repeatHex(40), nil, "withdraw")
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for nil resolver, got %v", err)
	}
}

func TestTransfer_SelfTransfer(t *testing.T) {
	cl := newMockChain(ethWei(2))
	svc, _ := newTestService(t, cl, nil)

	_, err := svc.Transfer(context.Background(), svc.Address().Hex(), FixedEth("1"), "withdraw")
	if !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("expected ErrSelfTransfer, got %v", err)
	}
	// проверка self-transfer идёт до запроса баланса
	if cl.balanceCalls != 0 {
		t.Fatalf("expected no balance query, got %d", cl.balanceCalls)
	}
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	halfEth := new(big.Int).Div(ethWei(1), big.NewInt(2))
	cl := newMockChain(halfEth)
	svc, _ := newTestService(t, cl, nil)

	_, err := svc.Transfer(context.Background(), "0x"+repeatHex(40), FixedEth("1.0"), "withdraw")

	var insufficient *InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}
	if insufficient.Balance.Cmp(halfEth) != 0 {
		t.Fatalf("expected balance %s in error, got %s", halfEth, insufficient.Balance)
	}
	if len(cl.sent) != 0 {
		t.Fatalf("expected no broadcast, got %d", len(cl.sent))
	}
}

func TestTransfer_OK(t *testing.T) {
	cl := newMockChain(ethWei(2))
	notifyCh := make(chan bus.Notification, 1)
	svc, repo := newTestService(t, cl, notifyCh)

	to := "0x" + repeatHex(40)
	rec, err := svc.Transfer(context.Background(), to, FixedEth("1"), "withdraw")
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if len(cl.sent) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(cl.sent))
	}
	sent := cl.sent[0]
	if sent.Gas() != TransferGasLimit {
		t.Fatalf("expected gas %d, got %d", TransferGasLimit, sent.Gas())
	}
	if sent.Value().Cmp(ethWei(1)) != 0 {
		t.Fatalf("expected value 1 ETH, got %s", sent.Value())
	}
	if sent.Nonce() != 0 {
		t.Fatalf("expected nonce 0, got %d", sent.Nonce())
	}

	if rec.Hash != sent.Hash() {
		t.Fatalf("expected hash %s, got %s", sent.Hash().Hex(), rec.Hash.Hex())
	}
	if rec.From != svc.Address() {
		t.Fatalf("expected from %s, got %s", svc.Address().Hex(), rec.From.Hex())
	}
	if rec.BlockNumber != 100 || rec.GasUsed != 21000 {
		t.Fatalf("unexpected receipt fields: %+v", rec)
	}

	items, err := repo.ListTransfers(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListTransfers: %v", err)
	}
	if len(items) != 1 || items[0].Hash != sent.Hash().Hex() {
		t.Fatalf("expected recorded transfer, got %+v", items)
	}
	if items[0].Purpose != "withdraw" {
		t.Fatalf("expected purpose withdraw, got %q", items[0].Purpose)
	}

	select {
	case n := <-notifyCh:
		if n.Text == "" {
			t.Fatal("expected non-empty notification text")
		}
	default:
		t.Fatal("expected notification")
	}
}

func TestTransfer_SerializedNonces(t *testing.T) {
	cl := newMockChain(ethWei(10))
	svc, _ := newTestService(t, cl, nil)
	to := "0x" + repeatHex(40)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Transfer(context.Background(), to, FixedEth("1"), "withdraw"); err != nil {
				t.Errorf("Transfer: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(cl.sent) != 2 {
		t.Fatalf("expected 2 broadcasts, got %d", len(cl.sent))
	}
	if cl.sent[0].Nonce() == cl.sent[1].Nonce() {
		t.Fatalf("nonce collision: both txs got nonce %d", cl.sent[0].Nonce())
	}
}

func TestTransfer_ConfirmationPending(t *testing.T) {
	cl := newMockChain(ethWei(2))
	cl.confirmOnSend = false
	svc, _ := newTestService(t, cl, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := svc.Transfer(ctx, "0x"+repeatHex(40), FixedEth("1"), "withdraw")

	var pending *ConfirmationPendingError
	if !errors.As(err, &pending) {
		t.Fatalf("expected ConfirmationPendingError, got %v", err)
	}
	if len(cl.sent) != 1 || pending.Hash != cl.sent[0].Hash() {
		t.Fatalf("expected pending hash of broadcast tx")
	}
}

func TestEstimateTransfer(t *testing.T) {
	cl := newMockChain(ethWei(2))
	svc, _ := newTestService(t, cl, nil)

	est, err := svc.EstimateTransfer(context.Background(), "0x"+repeatHex(40), "0.1")
	if err != nil {
		t.Fatalf("EstimateTransfer: %v", err)
	}

	if est.GasLimit != 21000 {
		t.Fatalf("expected gasLimit 21000, got %d", est.GasLimit)
	}

	gasCost := new(big.Int).Mul(est.GasPriceWei, big.NewInt(21000))
	tenth := new(big.Int).Div(ethWei(1), big.NewInt(10))
	want := new(big.Int).Add(gasCost, tenth)
	if est.TotalCostWei.Cmp(want) != 0 {
		t.Fatalf("expected total %s, got %s", want, est.TotalCostWei)
	}

	if len(cl.sent) != 0 {
		t.Fatalf("estimate must not broadcast")
	}
}

func TestTransactionStatus_NotFound(t *testing.T) {
	cl := newMockChain(ethWei(2))
	svc, _ := newTestService(t, cl, nil)

	_, _, _, err := svc.TransactionStatus(context.Background(), "0x"+repeatHex(64))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, _, _, err = svc.TransactionStatus(context.Background(), "0x123")
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func repeatHex(n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = 'b'
	}
	return string(out)
}
