package http

import (
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat/internal/transport/line"
)

// WSHandler upgrades HTTP connections and serves them as chat sessions.
// Text frames form a byte stream; lines are split on the terminator exactly
// as on a raw TCP connection.
type WSHandler struct {
	hub          Hub
	writeTimeout time.Duration
	log          *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub Hub, writeTimeout time.Duration, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, writeTimeout: writeTimeout, log: logger}
}

// ServeHTTP serves GET /ws. It sits outside the gin router because the
// upgrade needs to hijack an untouched response writer.
func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}

	ctx := r.Context()
	nc := websocket.NetConn(ctx, conn, websocket.MessageText)
	h.hub.Serve(ctx, line.NewConn(nc, h.writeTimeout), r.RemoteAddr)
}
