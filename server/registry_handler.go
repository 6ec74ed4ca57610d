package server

import (
	"github.com/Digital-Creators-Team/slot-machine-registry/auth"
	"github.com/Digital-Creators-Team/slot-machine-registry/errors"
	"github.com/Digital-Creators-Team/slot-machine-registry/game"
	"github.com/Digital-Creators-Team/slot-machine-registry/ledger"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// RegistryHandler handles HTTP requests against the registry itself:
// deployment info, aggregate stats, machine creation and the owner-only
// treasury operations.
//
// Flow: HTTP Request -> registryRoutes -> RegistryHandler -> game.Registry
type RegistryHandler struct {
	app    *App
	logger zerolog.Logger
}

// NewRegistryHandler creates a new registry handler
func NewRegistryHandler(app *App) *RegistryHandler {
	return &RegistryHandler{
		app:    app,
		logger: app.logger.With().Str("handler", "registry").Logger(),
	}
}

// extractWallet extracts the caller's ledger address from the JWT context
func extractWallet(c *gin.Context) (ledger.Address, error) {
	wallet, ok := auth.GetWalletAddress(c)
	if !ok {
		return ledger.ZeroAddress, errors.New(errors.ErrUnauthorized, "wallet address not found in context")
	}
	return ledger.Address(wallet), nil
}

// RegistryInfoResponse describes the registry deployment
// @Description Registry deployment info
type RegistryInfoResponse struct {
	Address            ledger.Address `json:"address"`
	Owner              ledger.Address `json:"owner"`
	HouseWallet        ledger.Address `json:"house_wallet"`
	MaxJackpotShareBPS uint64         `json:"max_jackpot_share_bps"`
	MaxHouseEdgeBPS    uint64         `json:"max_house_edge_bps"`
	JackpotPool        uint64         `json:"jackpot_pool"`
}

// Info godoc
// @Summary      Get registry info
// @Description  Returns the registry addresses, ceilings and current jackpot pool
// @Tags         registry
// @Produce      json
// @Success      200  {object}  BaseResponse{data=RegistryInfoResponse}
// @Security     BearerAuth
// @Router       /registry [get]
func (h *RegistryHandler) Info(c *gin.Context) {
	r := h.app.registry
	OK(c, RegistryInfoResponse{
		Address:            r.Address(),
		Owner:              r.Owner(),
		HouseWallet:        r.HouseWallet(),
		MaxJackpotShareBPS: r.MaxJackpotShareBPS(),
		MaxHouseEdgeBPS:    r.MaxHouseEdgeBPS(),
		JackpotPool:        r.JackpotPool(),
	})
}

// Stats godoc
// @Summary      Get aggregate platform statistics
// @Description  Returns total volume, spin count, jackpot wins and machine count
// @Tags         registry
// @Produce      json
// @Success      200  {object}  BaseResponse{data=game.Stats}
// @Security     BearerAuth
// @Router       /registry/stats [get]
func (h *RegistryHandler) Stats(c *gin.Context) {
	OK(c, h.app.registry.GetStats())
}

// ListMachines godoc
// @Summary      List deployed machines
// @Description  Returns the summaries of all registered machines in creation order
// @Tags         registry
// @Produce      json
// @Success      200  {object}  BaseResponse{data=[]game.Summary}
// @Security     BearerAuth
// @Router       /registry/machines [get]
func (h *RegistryHandler) ListMachines(c *gin.Context) {
	summaries := lo.Map(h.app.registry.Machines(), func(m *game.Machine, _ int) game.Summary {
		return m.Summary()
	})
	OK(c, summaries)
}

// CreateMachineRequest is the machine deployment payload
// @Description Machine deployment request
type CreateMachineRequest struct {
	// Owner wallet of the new machine (required)
	Owner string `json:"owner" binding:"required"`
	// Price feed id used for randomness refreshes (required)
	OracleFeedID string `json:"oracle_feed_id" binding:"required"`
	// Initial bankroll minted/transferred separately; zero is accepted
	Bankroll uint64 `json:"bankroll"`
}

// CreateMachine godoc
// @Summary      Deploy a new machine
// @Description  Clones the template into a new machine owned by the given wallet. Registry owner only.
// @Tags         registry
// @Accept       json
// @Produce      json
// @Param        request  body  CreateMachineRequest  true  "Deployment request"
// @Success      201  {object}  BaseResponse{data=game.Summary}
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /registry/machines [post]
func (h *RegistryHandler) CreateMachine(c *gin.Context) {
	caller, err := extractWallet(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	var req CreateMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "invalid request payload"))
		return
	}

	m, err := h.app.registry.CreateMachine(c.Request.Context(), caller, h.app.oracle, req.OracleFeedID, ledger.Address(req.Owner))
	if err != nil {
		h.logger.Error().Err(err).Str("caller", string(caller)).Msg("Machine deployment failed")
		HandleAppError(c, err)
		return
	}

	h.logger.Info().
		Str("machine", string(m.Address())).
		Str("owner", req.Owner).
		Msg("Machine deployed via API")

	Created(c, m.Summary())
}

// RegistryConfigRequest carries the mutable registry defaults
// @Description Registry configuration update
type RegistryConfigRequest struct {
	JackpotShareBPS uint64 `json:"jackpot_share_bps"`
	HouseEdgeBPS    uint64 `json:"house_edge_bps"`
	SpinsPerRefresh uint64 `json:"spins_per_refresh" binding:"required"`
}

// UpdateConfiguration godoc
// @Summary      Update registry defaults
// @Description  Changes the defaults applied to machines created from now on. Registry owner only.
// @Tags         registry
// @Accept       json
// @Produce      json
// @Param        request  body  RegistryConfigRequest  true  "New defaults"
// @Success      204
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /registry/config [put]
func (h *RegistryHandler) UpdateConfiguration(c *gin.Context) {
	caller, err := extractWallet(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	var req RegistryConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "invalid request payload"))
		return
	}

	if err := h.app.registry.UpdateConfiguration(caller, req.JackpotShareBPS, req.HouseEdgeBPS, req.SpinsPerRefresh); err != nil {
		HandleAppError(c, err)
		return
	}
	NoContent(c)
}

// SetHouseWalletRequest names the new house revenue destination
type SetHouseWalletRequest struct {
	Wallet string `json:"wallet" binding:"required"`
}

// SetHouseWallet godoc
// @Summary      Change the house wallet
// @Description  Changes the house revenue destination for machines created from now on. Registry owner only.
// @Tags         registry
// @Accept       json
// @Produce      json
// @Param        request  body  SetHouseWalletRequest  true  "New house wallet"
// @Success      204
// @Failure      403  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /registry/house-wallet [put]
func (h *RegistryHandler) SetHouseWallet(c *gin.Context) {
	caller, err := extractWallet(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	var req SetHouseWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "invalid request payload"))
		return
	}

	if err := h.app.registry.SetHouseWallet(caller, ledger.Address(req.Wallet)); err != nil {
		HandleAppError(c, err)
		return
	}
	NoContent(c)
}

// AmountRequest is a bare smallest-units amount payload
type AmountRequest struct {
	Amount uint64 `json:"amount" binding:"required"`
}

// FundJackpot godoc
// @Summary      Fund the jackpot pool
// @Description  Pulls an approved amount from the owner wallet into the shared pool. Registry owner only.
// @Tags         registry
// @Accept       json
// @Produce      json
// @Param        request  body  AmountRequest  true  "Funding amount in smallest units"
// @Success      204
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /registry/jackpot/fund [post]
func (h *RegistryHandler) FundJackpot(c *gin.Context) {
	caller, err := extractWallet(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "invalid request payload"))
		return
	}

	ctx := c.Request.Context()
	// The owner funds from their own wallet; set the allowance on their
	// behalf before the registry pulls.
	if err := h.app.asset.Approve(ctx, caller, h.app.registry.Address(), req.Amount); err != nil {
		HandleAppError(c, err)
		return
	}
	if err := h.app.registry.FundJackpot(ctx, caller, req.Amount); err != nil {
		HandleAppError(c, err)
		return
	}

	h.logger.Info().Uint64("amount", req.Amount).Msg("Jackpot funded via API")
	NoContent(c)
}

// Withdraw godoc
// @Summary      Withdraw free registry balance
// @Description  Moves free balance (total minus pool backing) to the house wallet. Registry owner only.
// @Tags         registry
// @Accept       json
// @Produce      json
// @Param        request  body  AmountRequest  true  "Withdraw amount in smallest units"
// @Success      204
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /registry/withdraw [post]
func (h *RegistryHandler) Withdraw(c *gin.Context) {
	caller, err := extractWallet(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "invalid request payload"))
		return
	}

	if err := h.app.registry.WithdrawAsset(c.Request.Context(), caller, req.Amount); err != nil {
		HandleAppError(c, err)
		return
	}
	NoContent(c)
}
