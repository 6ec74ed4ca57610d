package server

import (
	"context"

	"github.com/Digital-Creators-Team/slot-machine-registry/auth"
	"github.com/Digital-Creators-Team/slot-machine-registry/errors"
	"github.com/Digital-Creators-Team/slot-machine-registry/ledger"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// WalletHandler exposes the caller's ledger account plus the development
// faucet and token endpoints.
type WalletHandler struct {
	app    *App
	logger zerolog.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(app *App) *WalletHandler {
	return &WalletHandler{
		app:    app,
		logger: app.logger.With().Str("handler", "wallet").Logger(),
	}
}

// BalanceResponse is the caller's ledger balance view
type BalanceResponse struct {
	Wallet  ledger.Address `json:"wallet"`
	Balance uint64         `json:"balance"`
}

// Balance godoc
// @Summary      Get the caller's balance
// @Description  Returns the caller's ledger balance in smallest units
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  BaseResponse{data=BalanceResponse}
// @Security     BearerAuth
// @Router       /wallet/balance [get]
func (h *WalletHandler) Balance(c *gin.Context) {
	wallet, err := extractWallet(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}
	OK(c, BalanceResponse{
		Wallet:  wallet,
		Balance: h.app.asset.BalanceOf(c.Request.Context(), wallet),
	})
}

// minter is the optional mint capability of the configured ledger. The
// in-memory ledger has it; a chain-backed ledger would not.
type minter interface {
	Mint(ctx context.Context, account ledger.Address, amount uint64) error
}

// FaucetRequest credits a development wallet
type FaucetRequest struct {
	Wallet string `json:"wallet" binding:"required"`
	Amount uint64 `json:"amount"`
}

// Faucet godoc
// @Summary      Credit a development wallet
// @Description  Mints tokens to the given wallet. Development only; fails when the ledger cannot mint.
// @Tags         dev
// @Accept       json
// @Produce      json
// @Param        request  body  FaucetRequest  true  "Faucet request"
// @Success      200  {object}  BaseResponse{data=BalanceResponse}
// @Failure      400  {object}  ErrorResponse
// @Router       /dev/faucet [post]
func (h *WalletHandler) Faucet(c *gin.Context) {
	var req FaucetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "invalid request payload"))
		return
	}

	m, ok := h.app.asset.(minter)
	if !ok {
		BadRequest(c, errors.New(errors.ErrLedgerError, "configured ledger cannot mint"))
		return
	}

	amount := req.Amount
	if amount == 0 {
		amount = h.app.config.Registry.FaucetAmount
	}
	if amount == 0 {
		amount = 100 * ledger.UnitsPerToken
	}

	ctx := c.Request.Context()
	wallet := ledger.Address(req.Wallet)
	if err := m.Mint(ctx, wallet, amount); err != nil {
		HandleAppError(c, err)
		return
	}

	h.logger.Info().Str("wallet", req.Wallet).Uint64("amount", amount).Msg("Faucet credit")
	OK(c, BalanceResponse{Wallet: wallet, Balance: h.app.asset.BalanceOf(ctx, wallet)})
}

// TokenRequest asks for a development JWT
type TokenRequest struct {
	Wallet   string `json:"wallet" binding:"required"`
	Username string `json:"username"`
}

// TokenResponse carries an issued JWT
type TokenResponse struct {
	Token string `json:"token"`
}

// IssueToken godoc
// @Summary      Issue a development JWT
// @Description  Signs a token binding the given wallet address. Development only.
// @Tags         dev
// @Accept       json
// @Produce      json
// @Param        request  body  TokenRequest  true  "Token request"
// @Success      200  {object}  BaseResponse{data=TokenResponse}
// @Failure      400  {object}  ErrorResponse
// @Router       /dev/token [post]
func (h *WalletHandler) IssueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "invalid request payload"))
		return
	}

	token, err := auth.GenerateToken(h.app.config.JWT.Secret, req.Wallet, req.Username, h.app.config.JWT.Expiration)
	if err != nil {
		InternalError(c, errors.Wrap(err, errors.ErrInternalServerError, "token signing failed"))
		return
	}

	OK(c, TokenResponse{Token: token})
}
