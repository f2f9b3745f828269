package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/bail-wils/Support-Knowledge-Agent/internal/ledger"
	"github.com/bail-wils/Support-Knowledge-Agent/internal/relay"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Relayer is the part of relay.Service the HTTP layer needs.
type Relayer interface {
	Relay(ctx context.Context, req relay.Request) (*relay.Result, error)
	Last(ctx context.Context) (*ledger.Entry, error)
}

type RelayHandler struct {
	relayer Relayer
}

func NewRelayHandler(relayer Relayer) *RelayHandler {
	return &RelayHandler{relayer: relayer}
}

// Relay handles the trigger POST carrying driveId and itemPath.
func (h *RelayHandler) Relay(c *gin.Context) {
	var req relay.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid JSON body: " + err.Error(),
			"kind":  relay.KindInvalidInput,
		})
		return
	}

	res, err := h.relayer.Relay(c.Request.Context(), req)
	if err != nil {
		status := relay.StatusCode(err)
		event := log.Warn()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.Err(err).
			Str("kind", string(relay.KindOf(err))).
			Str("item_path", req.ItemPath).
			Int("status", status).
			Msg("relay failed")

		c.JSON(status, gin.H{"error": err.Error(), "kind": relay.KindOf(err)})
		return
	}

	c.JSON(http.StatusOK, res)
}

// Last returns the most recently recorded run.
func (h *RelayHandler) Last(c *gin.Context) {
	entry, err := h.relayer.Last(c.Request.Context())
	switch {
	case errors.Is(err, relay.ErrLedgerDisabled):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrNoEntry):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		log.Error().Err(err).Msg("ledger read failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read run ledger"})
	default:
		c.JSON(http.StatusOK, entry)
	}
}
