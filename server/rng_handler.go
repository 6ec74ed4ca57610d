package server

import (
	"github.com/Digital-Creators-Team/slot-machine-registry/errors"
	"github.com/Digital-Creators-Team/slot-machine-registry/pkg/fairdraw"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RNGHandler exposes the stateless verifiable draw service. Clients use it
// for lightweight lotteries and to audit that a draw was not altered after
// the fact.
type RNGHandler struct {
	app    *App
	logger zerolog.Logger
}

// NewRNGHandler creates a new RNG handler
func NewRNGHandler(app *App) *RNGHandler {
	return &RNGHandler{
		app:    app,
		logger: app.logger.With().Str("handler", "rng").Logger(),
	}
}

// DrawRequest names the inputs of a verifiable draw
// @Description Verifiable draw request
type DrawRequest struct {
	TxID      string `json:"tx_id" binding:"required"`
	Timestamp uint64 `json:"timestamp" binding:"required"`
}

// Draw godoc
// @Summary      Generate a verifiable draw
// @Description  Derives a fixed-length digit vector plus commitment from the transaction id, the caller's wallet and a timestamp
// @Tags         rng
// @Accept       json
// @Produce      json
// @Param        request  body  DrawRequest  true  "Draw inputs"
// @Success      200  {object}  BaseResponse{data=fairdraw.Draw}
// @Failure      400  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /rng/draw [post]
func (h *RNGHandler) Draw(c *gin.Context) {
	player, err := extractWallet(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	var req DrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "invalid request payload"))
		return
	}

	OK(c, fairdraw.New(req.TxID, string(player), req.Timestamp))
}

// VerifyRequest carries a draw plus its claimed inputs
// @Description Draw verification request
type VerifyRequest struct {
	TxID      string        `json:"tx_id" binding:"required"`
	Player    string        `json:"player" binding:"required"`
	Timestamp uint64        `json:"timestamp" binding:"required"`
	Draw      fairdraw.Draw `json:"draw" binding:"required"`
}

// VerifyResponse reports a verification outcome
type VerifyResponse struct {
	Valid bool `json:"valid"`
}

// Verify godoc
// @Summary      Verify a draw
// @Description  Recomputes the draw from its inputs and reports whether it matches
// @Tags         rng
// @Accept       json
// @Produce      json
// @Param        request  body  VerifyRequest  true  "Draw and inputs"
// @Success      200  {object}  BaseResponse{data=VerifyResponse}
// @Failure      400  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /rng/verify [post]
func (h *RNGHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "invalid request payload"))
		return
	}

	OK(c, VerifyResponse{Valid: fairdraw.Verify(req.TxID, req.Player, req.Timestamp, req.Draw)})
}
