package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const rosterTimeout = 2 * time.Second

// StatusHandlers serves the operational endpoints.
type StatusHandlers struct {
	hub        Hub
	instanceID string
	log        *zerolog.Logger
}

// NewStatusHandlers creates the health and status handlers.
func NewStatusHandlers(hub Hub, instanceID string, logger *zerolog.Logger) *StatusHandlers {
	return &StatusHandlers{hub: hub, instanceID: instanceID, log: logger}
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Instance    string   `json:"instance"`
	Members     []string `json:"members"`
	Subscribers int      `json:"subscribers"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Health reports whether the room is still running.
// GET /health
func (h *StatusHandlers) Health(c *gin.Context) {
	if !h.hub.Alive() {
		c.String(http.StatusServiceUnavailable, "room stopped")
		return
	}
	c.String(http.StatusOK, "ok")
}

// Status lists current members.
// GET /status
func (h *StatusHandlers) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), rosterTimeout)
	defer cancel()

	members, err := h.hub.Roster(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("roster query failed")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, StatusResponse{
		Instance:    h.instanceID,
		Members:     members,
		Subscribers: h.hub.Subscribers(),
	})
}
