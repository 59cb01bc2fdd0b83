package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/pvzzle/hotwallet/internal/bus"
	"github.com/pvzzle/hotwallet/internal/earnings"
	"github.com/pvzzle/hotwallet/internal/httpapi"
	"github.com/pvzzle/hotwallet/internal/notify"
	"github.com/pvzzle/hotwallet/internal/pricing"
	"github.com/pvzzle/hotwallet/internal/storage"
	"github.com/pvzzle/hotwallet/internal/storage/mem"
	"github.com/pvzzle/hotwallet/internal/storage/pg"
	"github.com/pvzzle/hotwallet/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	tgbot "github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	// без рабочего ключа сервис не стартует
	signer, err := wallet.NewSigner(cfg.PrivateKey)
	if err != nil {
		return fmt.Errorf("signer init: %w", err)
	}

	var treasury *common.Address
	if cfg.TreasuryAddress != "" {
		if !wallet.IsEthAddress(cfg.TreasuryAddress) {
			return fmt.Errorf("malformed TREASURY_ADDRESS: %q", cfg.TreasuryAddress)
		}
		a := common.HexToAddress(cfg.TreasuryAddress)
		treasury = &a
	}

	ethCl, err := ethclient.DialContext(ctx, cfg.EthRPCURL)
	if err != nil {
		return fmt.Errorf("dial eth rpc: %w", err)
	}
	defer ethCl.Close()

	chainID, err := ethCl.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}

	var repo storage.Repository
	if cfg.PostgresURL != "" {
		pgPool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("pgxpool new: %w", err)
		}
		defer pgPool.Close()

		pgRepo := pg.New(pgPool)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		repo = pgRepo
	} else {
		repo = mem.NewStore()
	}

	rateUSD, err := decimal.NewFromString(cfg.EthUSDRate)
	if err != nil {
		return fmt.Errorf("parse ETH_USD_RATE: %w", err)
	}
	oracle := pricing.NewFixed(rateUSD)

	ledger := earnings.NewLedger()

	notifyCh := make(chan bus.Notification, cfg.NotifyBuffer)

	walletSvc := wallet.NewService(signer, ethCl, chainID, repo, notifyCh, wallet.ServiceConfig{
		Confirmations: cfg.Confirmations,
	})

	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		b, err := tgbot.New(cfg.TelegramToken, tgbot.WithNotAsyncHandlers())
		if err != nil {
			return fmt.Errorf("telegram bot init: %w", err)
		}
		tgSvc := notify.NewTelegram(b, cfg.TelegramChatID, notifyCh)
		go tgSvc.StartNotifyLoop(ctx)
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.SubmitRPS), cfg.SubmitBurst)

	srv := httpapi.NewServer(walletSvc, signer, ledger, oracle, repo, treasury, limiter)

	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	log.Printf("started. addr=%s wallet=%s chain_id=%s", cfg.HTTPAddr, signer.Address().Hex(), chainID.String())

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutCtx); err != nil {
			log.Printf("[http] shutdown error: %v", err)
		}
		return ctx.Err()

	case err := <-errCh:
		return err
	}
}
