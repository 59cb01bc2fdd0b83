package httpapi

import (
	"net/http"
	"time"

	"github.com/pvzzle/hotwallet/internal/earnings"
	"github.com/pvzzle/hotwallet/internal/pricing"
	"github.com/pvzzle/hotwallet/internal/storage"
	"github.com/pvzzle/hotwallet/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type Server struct {
	wallet *wallet.Service
	signer *wallet.Signer
	ledger *earnings.Ledger
	oracle pricing.Oracle
	repo   storage.Repository

	treasury *common.Address // nil, если не сконфигурирован

	limiter   *rate.Limiter
	startedAt time.Time
}

func NewServer(
	walletSvc *wallet.Service,
	signer *wallet.Signer,
	ledger *earnings.Ledger,
	oracle pricing.Oracle,
	repo storage.Repository,
	treasury *common.Address,
	limiter *rate.Limiter,
) *Server {
	return &Server{
		wallet:    walletSvc,
		signer:    signer,
		ledger:    ledger,
		oracle:    oracle,
		repo:      repo,
		treasury:  treasury,
		limiter:   limiter,
		startedAt: time.Now().UTC(),
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.getHealth)
	r.GET("/status", s.getStatus)
	r.GET("/balance", s.getBalance)
	r.GET("/earnings", s.getEarnings)
	r.GET("/history", s.getHistory)
	r.GET("/transaction/:hash", s.getTransaction)

	r.POST("/sign-message", s.postSignMessage)
	r.POST("/estimate-gas", s.postEstimateGas)
	r.POST("/credit-earnings", s.postCreditEarnings)

	// всё, что отправляет транзакции, идёт через лимитер
	submit := r.Group("", submitLimit(s.limiter))
	submit.POST("/withdraw", s.postWithdraw)
	submit.POST("/convert-earnings-to-eth", s.postConvertEarnings)
	submit.POST("/fund-from-earnings", s.postFundFromEarnings)
	submit.POST("/withdraw-profits-to-treasury", s.postWithdrawProfits)
	submit.POST("/claim-mev-profits", s.postClaimMEVProfits)

	return r
}

func submitLimit(l *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l != nil && !l.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many transfer requests"})
			return
		}
		c.Next()
	}
}
