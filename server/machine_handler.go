package server

import (
	"strconv"

	"github.com/Digital-Creators-Team/slot-machine-registry/errors"
	"github.com/Digital-Creators-Team/slot-machine-registry/game"
	"github.com/Digital-Creators-Team/slot-machine-registry/ledger"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// MachineHandler handles HTTP requests against a single machine: spins,
// read-model queries and the owner-only configuration operations.
//
// Flow: HTTP Request -> machineRoutes -> MachineHandler -> game.Machine
//
// The wallet address from the JWT doubles as the caller's ledger account,
// so authorization decisions stay inside the game core.
type MachineHandler struct {
	app    *App
	logger zerolog.Logger
}

// NewMachineHandler creates a new machine handler
func NewMachineHandler(app *App) *MachineHandler {
	return &MachineHandler{
		app:    app,
		logger: app.logger.With().Str("handler", "machine").Logger(),
	}
}

// machine resolves the :address path parameter to a registered machine
func (h *MachineHandler) machine(c *gin.Context) (*game.Machine, bool) {
	addr := ledger.Address(c.Param("address"))
	m, ok := h.app.registry.GetMachine(addr)
	if !ok {
		NotFound(c, errors.Newf(errors.ErrMachineNotFound, "no machine at %s", addr))
		return nil, false
	}
	return m, true
}

// Summary godoc
// @Summary      Get machine summary
// @Description  Returns the public state of one machine
// @Tags         machine
// @Produce      json
// @Param        address  path  string  true  "Machine address"
// @Success      200  {object}  BaseResponse{data=game.Summary}
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /machines/{address} [get]
func (h *MachineHandler) Summary(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}
	OK(c, m.Summary())
}

// SpinRequest is the spin payload
// @Description Spin request
type SpinRequest struct {
	// Bet amount in smallest units; must be in the machine's valid set
	Bet uint64 `json:"bet" binding:"required" example:"1000000"`
}

// Spin godoc
// @Summary      Execute a spin
// @Description  Debits the bet from the caller's wallet, settles one spin and returns the record. The service holds the ledger, so the bet allowance is set on the caller's behalf.
// @Tags         machine
// @Accept       json
// @Produce      json
// @Param        address  path  string       true  "Machine address"
// @Param        request  body  SpinRequest  true  "Spin request"
// @Success      200  {object}  BaseResponse{data=game.SpinRecord}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /machines/{address}/spin [post]
func (h *MachineHandler) Spin(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}

	player, err := extractWallet(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	var req SpinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "invalid request payload"))
		return
	}

	ctx := c.Request.Context()
	if err := h.app.asset.Approve(ctx, player, m.Address(), req.Bet); err != nil {
		HandleAppError(c, err)
		return
	}

	rec, err := m.Spin(ctx, player, req.Bet)
	if err != nil {
		h.logger.Warn().Err(err).
			Str("player", string(player)).
			Uint64("bet", req.Bet).
			Msg("Spin rejected")
		HandleAppError(c, err)
		return
	}

	h.logger.Info().
		Str("player", string(player)).
		Str("machine", string(m.Address())).
		Uint64("bet", rec.Bet).
		Uint64("payout", rec.Payout).
		Bool("jackpot", rec.JackpotWin).
		Msg("Spin executed")

	OK(c, rec)
}

// LastSpin godoc
// @Summary      Get the caller's last spin
// @Tags         machine
// @Produce      json
// @Param        address  path  string  true  "Machine address"
// @Success      200  {object}  BaseResponse{data=game.SpinRecord}
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /machines/{address}/spins/last [get]
func (h *MachineHandler) LastSpin(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}
	player, err := extractWallet(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	rec := m.LastSpin(player)
	if rec == nil {
		NotFound(c, errors.New(errors.ErrNotFound, "no spins recorded for this player"))
		return
	}
	OK(c, rec)
}

// History godoc
// @Summary      Get the caller's spin history
// @Description  Returns up to limit recent spins, newest first
// @Tags         machine
// @Produce      json
// @Param        address  path   string  true   "Machine address"
// @Param        limit    query  int     false  "Max records (default 20)"
// @Success      200  {object}  BaseResponse{data=[]game.SpinRecord}
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /machines/{address}/history [get]
func (h *MachineHandler) History(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}
	player, err := extractWallet(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			BadRequest(c, errors.New(errors.ErrInvalidRequest, "invalid limit"))
			return
		}
		limit = n
	}

	OK(c, m.History(player, limit))
}

// WinningsResponse is the cumulative payout view
type WinningsResponse struct {
	Player        ledger.Address `json:"player"`
	TotalWinnings uint64         `json:"total_winnings"`
}

// Winnings godoc
// @Summary      Get the caller's cumulative winnings on this machine
// @Tags         machine
// @Produce      json
// @Param        address  path  string  true  "Machine address"
// @Success      200  {object}  BaseResponse{data=WinningsResponse}
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /machines/{address}/winnings [get]
func (h *MachineHandler) Winnings(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}
	player, err := extractWallet(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}
	OK(c, WinningsResponse{Player: player, TotalWinnings: m.TotalWinnings(player)})
}

// MachineConfigRequest tunes the per-machine economics
// @Description Machine configuration update
type MachineConfigRequest struct {
	JackpotShareBPS uint64 `json:"jackpot_share_bps"`
	HouseEdgeBPS    uint64 `json:"house_edge_bps"`
}

// UpdateConfiguration godoc
// @Summary      Update machine economics
// @Description  Changes the jackpot share and house edge, bounded by the registry ceilings. Machine owner only.
// @Tags         machine
// @Accept       json
// @Produce      json
// @Param        address  path  string                true  "Machine address"
// @Param        request  body  MachineConfigRequest  true  "New configuration"
// @Success      204
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /machines/{address}/config [put]
func (h *MachineHandler) UpdateConfiguration(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}
	caller, err := extractWallet(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	var req MachineConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "invalid request payload"))
		return
	}

	if err := m.UpdateConfiguration(caller, req.JackpotShareBPS, req.HouseEdgeBPS); err != nil {
		HandleAppError(c, err)
		return
	}
	NoContent(c)
}

// UpdatePayoutTable godoc
// @Summary      Replace the payout table
// @Description  Replaces the six combination multipliers. Machine owner only.
// @Tags         machine
// @Accept       json
// @Produce      json
// @Param        address  path  string            true  "Machine address"
// @Param        request  body  game.PayoutTable  true  "New multiplier table, in hundredths"
// @Success      204
// @Failure      403  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /machines/{address}/payout-table [put]
func (h *MachineHandler) UpdatePayoutTable(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}
	caller, err := extractWallet(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	var table game.PayoutTable
	if err := c.ShouldBindJSON(&table); err != nil {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "invalid request payload"))
		return
	}

	if err := m.UpdatePayoutTable(caller, table); err != nil {
		HandleAppError(c, err)
		return
	}
	NoContent(c)
}

// BetAmountsRequest replaces the bet denomination set
type BetAmountsRequest struct {
	Amounts []uint64 `json:"amounts" binding:"required"`
}

// UpdateBetAmounts godoc
// @Summary      Replace the valid bet set
// @Description  Replaces the accepted bet denominations, in smallest units. Machine owner only.
// @Tags         machine
// @Accept       json
// @Produce      json
// @Param        address  path  string             true  "Machine address"
// @Param        request  body  BetAmountsRequest  true  "New bet set"
// @Success      204
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /machines/{address}/bets [put]
func (h *MachineHandler) UpdateBetAmounts(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}
	caller, err := extractWallet(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	var req BetAmountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "invalid request payload"))
		return
	}

	if err := m.UpdateValidBetAmounts(caller, req.Amounts); err != nil {
		HandleAppError(c, err)
		return
	}
	NoContent(c)
}

// RefreshRandomness godoc
// @Summary      Force a randomness refresh
// @Description  Re-derives the machine's base randomness from a fresh oracle reading. Callable by anyone.
// @Tags         machine
// @Produce      json
// @Param        address  path  string  true  "Machine address"
// @Success      204
// @Failure      404  {object}  ErrorResponse
// @Failure      502  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /machines/{address}/randomness/refresh [post]
func (h *MachineHandler) RefreshRandomness(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}
	caller, err := extractWallet(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	if err := m.RefreshRandomness(c.Request.Context(), caller); err != nil {
		h.logger.Error().Err(err).Msg("Randomness refresh failed")
		HandleAppError(c, err)
		return
	}
	NoContent(c)
}

// Withdraw godoc
// @Summary      Withdraw machine bankroll
// @Description  Moves part of the machine balance to the owner wallet. Machine owner only.
// @Tags         machine
// @Accept       json
// @Produce      json
// @Param        address  path  string         true  "Machine address"
// @Param        request  body  AmountRequest  true  "Withdraw amount in smallest units"
// @Success      204
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /machines/{address}/withdraw [post]
func (h *MachineHandler) Withdraw(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}
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

	if err := m.WithdrawAsset(c.Request.Context(), caller, req.Amount); err != nil {
		HandleAppError(c, err)
		return
	}
	NoContent(c)
}

// TransferOwnershipRequest names the new machine owner
type TransferOwnershipRequest struct {
	NewOwner string `json:"new_owner" binding:"required"`
}

// TransferOwnership godoc
// @Summary      Transfer machine ownership
// @Description  Hands control of the machine to a new wallet. Machine owner only.
// @Tags         machine
// @Accept       json
// @Produce      json
// @Param        address  path  string                    true  "Machine address"
// @Param        request  body  TransferOwnershipRequest  true  "New owner"
// @Success      204
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /machines/{address}/ownership [post]
func (h *MachineHandler) TransferOwnership(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}
	caller, err := extractWallet(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	var req TransferOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "invalid request payload"))
		return
	}

	if err := m.TransferOwnership(caller, ledger.Address(req.NewOwner)); err != nil {
		HandleAppError(c, err)
		return
	}

	h.logger.Info().
		Str("machine", string(m.Address())).
		Str("new_owner", req.NewOwner).
		Msg("Machine ownership transferred")
	NoContent(c)
}
