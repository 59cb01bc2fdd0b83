package httpapi

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/pvzzle/hotwallet/internal/wallet"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// amountString принимает в JSON и строку, и число: клиенты шлют amountETH
// как "1.0", а amountUSD как 50.
type amountString string

func (a *amountString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = amountString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = amountString(n.String())
	return nil
}

type withdrawBody struct {
	ToAddress string       `json:"toAddress" binding:"required"`
	AmountETH amountString `json:"amountETH" binding:"required"`
}

func (s *Server) postWithdraw(c *gin.Context) {
	var body withdrawBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "toAddress and amountETH are required"})
		return
	}

	rec, err := s.wallet.Transfer(c.Request.Context(), body.ToAddress, wallet.FixedEth(string(body.AmountETH)), "withdraw")
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, transferResponse(rec))
}

func (s *Server) postConvertEarnings(c *gin.Context) {
	s.treasuryTransfer(c, wallet.USDAmount(s.ledger.Total(), s.oracle), "convert-earnings")
}

func (s *Server) postFundFromEarnings(c *gin.Context) {
	s.treasuryTransfer(c, wallet.FixedEth("0.01"), "fund-from-earnings")
}

func (s *Server) postWithdrawProfits(c *gin.Context) {
	s.treasuryTransfer(c, wallet.PercentOfBalance(90), "treasury-profits")
}

func (s *Server) postClaimMEVProfits(c *gin.Context) {
	s.treasuryTransfer(c, wallet.PercentOfBalance(50), "mev-claim")
}

// treasuryTransfer — тонкий адаптер над Transfer: фиксированный адрес
// казны, стратегия выбирается маршрутом.
func (s *Server) treasuryTransfer(c *gin.Context, resolve wallet.AmountResolver, purpose string) {
	if s.treasury == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "treasury address is not configured"})
		return
	}

	rec, err := s.wallet.Transfer(c.Request.Context(), s.treasury.Hex(), resolve, purpose)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, transferResponse(rec))
}

func transferResponse(rec *wallet.TransferReceipt) gin.H {
	gasPrice := "0"
	if rec.EffectiveGasPrice != nil {
		gasPrice = rec.EffectiveGasPrice.String()
	}

	return gin.H{
		"success":           true,
		"txHash":            rec.Hash.Hex(),
		"from":              rec.From.Hex(),
		"to":                rec.To.Hex(),
		"amount":            wallet.WeiToEthString(rec.AmountWei),
		"blockNumber":       rec.BlockNumber,
		"gasUsed":           rec.GasUsed,
		"effectiveGasPrice": gasPrice,
	}
}

type signMessageBody struct {
	Message string `json:"message" binding:"required"`
}

func (s *Server) postSignMessage(c *gin.Context) {
	var body signMessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	sig, err := s.signer.SignMessage(body.Message)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   body.Message,
		"signature": sig,
		"signer":    s.signer.Address().Hex(),
	})
}

func (s *Server) getTransaction(c *gin.Context) {
	tx, isPending, receipt, err := s.wallet.TransactionStatus(c.Request.Context(), c.Param("hash"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction": txJSON(tx, isPending, s.wallet.ChainID()),
		"receipt":     receiptJSON(receipt),
	})
}

func txJSON(tx *types.Transaction, isPending bool, chainID *big.Int) gin.H {
	if tx == nil {
		return nil
	}

	toStr := "contract-creation"
	if to := tx.To(); to != nil {
		toStr = to.Hex()
	}

	from := ""
	if sender, err := types.Sender(types.LatestSignerForChainID(chainID), tx); err == nil {
		from = sender.Hex()
	}

	gasPrice := "0"
	if gp := tx.GasPrice(); gp != nil {
		gasPrice = gp.String()
	}

	return gin.H{
		"hash":     tx.Hash().Hex(),
		"from":     from,
		"to":       toStr,
		"value":    wallet.WeiToEthString(tx.Value()),
		"nonce":    tx.Nonce(),
		"gas":      tx.Gas(),
		"gasPrice": gasPrice,
		"pending":  isPending,
		"chainId":  chainID.String(),
	}
}

func receiptJSON(receipt *types.Receipt) gin.H {
	if receipt == nil {
		return nil
	}

	gasPrice := "0"
	if receipt.EffectiveGasPrice != nil {
		gasPrice = receipt.EffectiveGasPrice.String()
	}

	return gin.H{
		"status":            receipt.Status,
		"blockNumber":       receipt.BlockNumber.Uint64(),
		"gasUsed":           receipt.GasUsed,
		"effectiveGasPrice": gasPrice,
	}
}

func (s *Server) getBalance(c *gin.Context) {
	info, err := s.wallet.Balance(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":  info.Address.Hex(),
		"balance":  wallet.WeiToEthString(info.BalanceWei),
		"nonce":    info.Nonce,
		"gasPrice": info.GasPriceWei.String(),
	})
}

type estimateGasBody struct {
	ToAddress string       `json:"toAddress" binding:"required"`
	AmountETH amountString `json:"amountETH" binding:"required"`
}

func (s *Server) postEstimateGas(c *gin.Context) {
	var body estimateGasBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "toAddress and amountETH are required"})
		return
	}

	est, err := s.wallet.EstimateTransfer(c.Request.Context(), body.ToAddress, string(body.AmountETH))
	if err != nil {
		s.writeError(c, err)
		return
	}

	totalETH := decimal.NewFromBigInt(est.TotalCostWei, -18)

	c.JSON(http.StatusOK, gin.H{
		"gasLimit":     est.GasLimit,
		"gasPrice":     est.GasPriceWei.String(),
		"totalCost":    wallet.WeiToEthString(est.TotalCostWei),
		"totalCostUSD": totalETH.Mul(s.oracle.USDPerETH()).StringFixed(2),
	})
}

type creditEarningsBody struct {
	AmountUSD amountString `json:"amountUSD" binding:"required"`
	Source    string       `json:"source"`
}

func (s *Server) postCreditEarnings(c *gin.Context) {
	var body creditEarningsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amountUSD is required"})
		return
	}

	total := s.ledger.Credit(string(body.AmountUSD), body.Source)

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"newBalance": total.String(),
	})
}

func (s *Server) getEarnings(c *gin.Context) {
	info, err := s.wallet.Balance(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	balanceETH := decimal.NewFromBigInt(info.BalanceWei, -18)

	c.JSON(http.StatusOK, gin.H{
		"earningsUSD":       s.ledger.Total().String(),
		"backendBalanceETH": wallet.WeiToEthString(info.BalanceWei),
		"backendBalanceUSD": balanceETH.Mul(s.oracle.USDPerETH()).StringFixed(2),
	})
}

func (s *Server) getHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	transfers, err := s.repo.ListTransfers(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(transfers))
	for _, t := range transfers {
		out = append(out, gin.H{
			"txHash":      t.Hash,
			"purpose":     t.Purpose,
			"from":        t.FromAddr,
			"to":          t.ToAddr,
			"valueWei":    t.ValueWei,
			"blockNumber": t.BlockNum,
			"status":      t.Status,
			"createdAt":   t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{"transfers": out})
}

func (s *Server) getStatus(c *gin.Context) {
	treasury := ""
	if s.treasury != nil {
		treasury = s.treasury.Hex()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"address":       s.signer.Address().Hex(),
		"chainId":       s.wallet.ChainID().String(),
		"treasury":      treasury,
		"uptimeSeconds": int64(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) writeError(c *gin.Context, err error) {
	var insufficient *wallet.InsufficientBalanceError
	var pending *wallet.ConfirmationPendingError

	switch {
	case errors.As(err, &insufficient):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Insufficient backend balance",
			"balance": wallet.WeiToEthString(insufficient.Balance),
		})
	case errors.Is(err, wallet.ErrSelfTransfer):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot send to backend wallet"})
	case errors.Is(err, wallet.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, wallet.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
	case errors.As(err, &pending):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  "transaction broadcast, confirmation pending",
			"txHash": pending.Hash.Hex(),
		})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
