package http

import (
	"context"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat/internal/config"
	"github.com/vovakirdan/linechat/internal/core"
)

// Hub is what the HTTP surface needs from core.Hub.
type Hub interface {
	Serve(ctx context.Context, conn core.LineConn, remote string)
	Roster(ctx context.Context) ([]string, error)
	Subscribers() int
	Alive() bool
}

// NewServer builds the HTTP server exposing health, status and the
// WebSocket line transport.
func NewServer(hub Hub, cfg config.Config, instanceID string, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	status := NewStatusHandlers(hub, instanceID, logger)
	router.GET("/health", status.Health)
	router.GET("/status", status.Status)

	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, cfg.WriteTimeout, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
