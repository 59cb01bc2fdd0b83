package wallet

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"strings"
	"sync"

	"github.com/pvzzle/hotwallet/internal/bus"
	"github.com/pvzzle/hotwallet/internal/chain"
	"github.com/pvzzle/hotwallet/internal/storage"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TransferGasLimit — стоимость простого value transfer. Получатели должны
// быть обычными аккаунтами: estimateGas на этом пути не делается.
const TransferGasLimit = uint64(21000)

type ServiceConfig struct {
	Confirmations uint64
}

type Service struct {
	signer  *Signer
	client  chain.Client
	chainID *big.Int

	repo     storage.Repository
	notifyCh chan<- bus.Notification

	cfg ServiceConfig

	// сериализует read nonce -> sign -> broadcast; ожидание
	// подтверждения идёт уже вне замка
	submitMu sync.Mutex
}

func NewService(
	signer *Signer,
	client chain.Client,
	chainID *big.Int,
	repo storage.Repository,
	notifyCh chan<- bus.Notification,
	cfg ServiceConfig,
) *Service {

	if cfg.Confirmations == 0 {
		cfg.Confirmations = 1
	}

	return &Service{
		signer:   signer,
		client:   client,
		chainID:  chainID,
		repo:     repo,
		notifyCh: notifyCh,
		cfg:      cfg,
	}
}

func (s *Service) Address() common.Address { return s.signer.Address() }

func (s *Service) ChainID() *big.Int { return s.chainID }

type TransferReceipt struct {
	Hash              common.Hash
	From              common.Address
	To                common.Address
	AmountWei         *big.Int
	BlockNumber       uint64
	GasUsed           uint64
	EffectiveGasPrice *big.Int
	Confirmations     uint64
}

// Transfer — единственная реализация перевода. Все эндпоинты-варианты
// подставляют свой resolve и свой purpose.
func (s *Service) Transfer(ctx context.Context, toAddress string, resolve AmountResolver, purpose string) (*TransferReceipt, error) {
	if strings.TrimSpace(toAddress) == "" || resolve == nil {
		return nil, fmt.Errorf("%w: toAddress and amount are required", ErrInvalidRequest)
	}
	if !IsEthAddress(toAddress) {
		return nil, fmt.Errorf("%w: malformed toAddress", ErrInvalidRequest)
	}

	to := common.HexToAddress(toAddress)
	from := s.signer.Address()
	if to == from {
		return nil, ErrSelfTransfer
	}

	balance, err := s.client.BalanceAt(ctx, from, nil)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}

	amount, err := resolve(balance)
	if err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, ErrInvalidAmount)
	}

	if balance.Cmp(amount) < 0 {
		return nil, &InsufficientBalanceError{Balance: balance, Amount: amount}
	}

	signed, err := s.submit(ctx, to, amount)
	if err != nil {
		return nil, err
	}

	log.Printf("[wallet] broadcast %s: %s ETH -> %s (%s)", signed.Hash().Hex(), WeiToEthString(amount), to.Hex(), purpose)

	receipt, err := chain.WaitConfirmed(ctx, s.client, signed.Hash(), s.cfg.Confirmations)
	if err != nil {
		// возможно, она уже в блоке — одна перепроверка по хэшу
		rcpt, rerr := s.client.TransactionReceipt(ctx, signed.Hash())
		if rerr != nil || rcpt == nil {
			return nil, &ConfirmationPendingError{Hash: signed.Hash(), Err: err}
		}
		receipt = rcpt
	}

	out := &TransferReceipt{
		Hash:              signed.Hash(),
		From:              from,
		To:                to,
		AmountWei:         amount,
		BlockNumber:       receipt.BlockNumber.Uint64(),
		GasUsed:           receipt.GasUsed,
		EffectiveGasPrice: receipt.EffectiveGasPrice,
		Confirmations:     s.cfg.Confirmations,
	}

	s.record(ctx, signed, receipt, purpose)
	s.notify(out)

	return out, nil
}

// submit держит submitMu: из-за pending nonce два параллельных перевода без
// сериализации гонялись бы за одним номером.
func (s *Service) submit(ctx context.Context, to common.Address, amount *big.Int) (*types.Transaction, error) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	from := s.signer.Address()

	nonce, err := s.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}

	unsigned := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    amount,
		Gas:      TransferGasLimit,
		GasPrice: gasPrice,
	})

	signed, err := s.signer.SignTx(unsigned, s.chainID)
	if err != nil {
		return nil, err
	}

	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("broadcast: %w", err)
	}

	return signed, nil
}

func (s *Service) record(ctx context.Context, tx *types.Transaction, receipt *types.Receipt, purpose string) {
	if s.repo == nil {
		return
	}

	gasPrice := "0"
	if receipt.EffectiveGasPrice != nil {
		gasPrice = receipt.EffectiveGasPrice.String()
	}

	rec := storage.TransferRecord{
		Hash:        tx.Hash().Hex(),
		ChainID:     s.chainID.String(),
		Purpose:     purpose,
		FromAddr:    s.signer.Address().Hex(),
		ToAddr:      tx.To().Hex(),
		ValueWei:    tx.Value().String(),
		Nonce:       tx.Nonce(),
		Gas:         tx.Gas(),
		GasUsed:     receipt.GasUsed,
		GasPriceWei: gasPrice,
		BlockNum:    receipt.BlockNumber.Uint64(),
		Status:      uint8(receipt.Status),
	}

	if err := s.repo.InsertTransfer(ctx, rec); err != nil {
		log.Printf("[wallet] db insert transfer error: %v", err)
		// не возвращаем — перевод уже состоялся
	}
}

func (s *Service) notify(rec *TransferReceipt) {
	if s.notifyCh == nil {
		return
	}

	n := bus.Notification{Text: FormatTransferNotification(rec)}
	select {
	case s.notifyCh <- n:
	default:
		log.Printf("[wallet] notify buffer full, dropping %s", rec.Hash.Hex())
	}
}

func FormatTransferNotification(rec *TransferReceipt) string {
	return fmt.Sprintf(
		"💸 Transfer confirmed\n\nHash: %s\nFrom: %s\nTo: %s\nValue: %s ETH\nBlock: #%d\nGasUsed: %d",
		rec.Hash.Hex(),
		rec.From.Hex(),
		rec.To.Hex(),
		WeiToEthString(rec.AmountWei),
		rec.BlockNumber,
		rec.GasUsed,
	)
}

type BalanceInfo struct {
	Address     common.Address
	BalanceWei  *big.Int
	Nonce       uint64
	GasPriceWei *big.Int
}

func (s *Service) Balance(ctx context.Context) (*BalanceInfo, error) {
	addr := s.signer.Address()

	balance, err := s.client.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}

	nonce, err := s.client.PendingNonceAt(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}

	return &BalanceInfo{
		Address:     addr,
		BalanceWei:  balance,
		Nonce:       nonce,
		GasPriceWei: gasPrice,
	}, nil
}

// TransactionStatus — чистое чтение: транзакция + receipt (nil, пока pending).
func (s *Service) TransactionStatus(ctx context.Context, hashStr string) (*types.Transaction, bool, *types.Receipt, error) {
	if !IsTxHash(hashStr) {
		return nil, false, nil, fmt.Errorf("%w: malformed tx hash", ErrInvalidRequest)
	}

	h := common.HexToHash(hashStr)

	tx, isPending, err := s.client.TransactionByHash(ctx, h)
	if err != nil {
		if err == ethereum.NotFound {
			return nil, false, nil, ErrNotFound
		}
		return nil, false, nil, fmt.Errorf("tx by hash: %w", err)
	}

	if isPending {
		return tx, true, nil, nil
	}

	receipt, err := s.client.TransactionReceipt(ctx, h)
	if err != nil && err != ethereum.NotFound {
		return nil, false, nil, fmt.Errorf("receipt: %w", err)
	}

	return tx, false, receipt, nil
}

type Estimate struct {
	GasLimit     uint64
	GasPriceWei  *big.Int
	TotalCostWei *big.Int // value + gasLimit*gasPrice
}

// EstimateTransfer — справочная оценка, ничего не подписывает и не отправляет.
func (s *Service) EstimateTransfer(ctx context.Context, toAddress, amountETH string) (*Estimate, error) {
	if !IsEthAddress(toAddress) {
		return nil, fmt.Errorf("%w: malformed toAddress", ErrInvalidRequest)
	}

	amount, err := ParseEthToWei(amountETH)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	to := common.HexToAddress(toAddress)

	gasLimit, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  s.signer.Address(),
		To:    &to,
		Value: amount,
	})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}

	total := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasLimit))
	total.Add(total, amount)

	return &Estimate{
		GasLimit:     gasLimit,
		GasPriceWei:  gasPrice,
		TotalCostWei: total,
	}, nil
}
