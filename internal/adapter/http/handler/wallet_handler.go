package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles the caller's own wallet endpoints.
type WalletHandler struct {
	ledger ports.LedgerService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledger ports.LedgerService) *WalletHandler {
	return &WalletHandler{ledger: ledger}
}

// GetMyWallet handles GET /api/v1/wallets/me.
func (h *WalletHandler) GetMyWallet(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	eligible, wallet, err := h.ledger.GetMyWallet(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.MyWalletResponse{
		Eligible: eligible,
		Wallet:   wallet,
	})
}

// Redeem handles POST /api/v1/wallets/me/redeem.
func (h *WalletHandler) Redeem(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.ledger.Redeem(c.Request.Context(), ports.RedeemRequest{
		Caller:  caller,
		Amount:  string(req.Amount),
		Options: req.Options(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, result.Wallet.ID.String())
	response.OK(c, toLedgerResponse(result))
}

func toLedgerResponse(r *ports.LedgerResult) dto.LedgerResponse {
	return dto.LedgerResponse{
		Wallet:      r.Wallet,
		Transaction: r.Transaction,
		Replayed:    r.Replayed,
	}
}
