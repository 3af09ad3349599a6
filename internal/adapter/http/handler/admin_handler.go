package handler

import (
	"errors"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminHandler handles administrator wallet endpoints. Routes are expected
// behind middleware.RequireAdmin.
type AdminHandler struct {
	ledger ports.LedgerService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(ledger ports.LedgerService) *AdminHandler {
	return &AdminHandler{ledger: ledger}
}

// Grant handles POST /api/v1/wallets/grant.
func (h *AdminHandler) Grant(c *gin.Context) {
	var req dto.GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.ledger.Grant(c.Request.Context(), ports.GrantRequest{
		Target:   req.Target(),
		Amount:   string(req.Amount),
		TenantID: req.TenantID,
		Role:     req.Role,
		Options:  req.Options(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, result.Wallet.ID.String())
	response.OK(c, toLedgerResponse(result))
}

// Lookup handles GET /api/v1/wallets/admin/lookup. A missing wallet is
// reported as {"wallet": null}, not as an error.
func (h *AdminHandler) Lookup(c *gin.Context) {
	var q dto.LookupQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&q)

	wallet, err := h.ledger.LookupWallet(c.Request.Context(), q.Owner(), q.TenantID)
	if errors.Is(err, apperror.ErrWalletNotFound()) {
		response.OK(c, dto.LookupResponse{})
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, wallet.ID.String())
	response.OK(c, dto.LookupResponse{Wallet: wallet})
}
