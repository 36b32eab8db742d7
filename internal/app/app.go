package app

import (
	"context"
	"errors"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/linechat/internal/config"
	"github.com/vovakirdan/linechat/internal/core"
	transporthttp "github.com/vovakirdan/linechat/internal/transport/http"
	"github.com/vovakirdan/linechat/internal/transport/tcp"
	"github.com/vovakirdan/linechat/internal/utils"
)

// App wires together core and transport layers.
type App struct {
	hub             *core.Hub
	chat            *tcp.Server
	http            *stdhttp.Server // nil when http_addr is empty
	shutdownTimeout time.Duration
	instanceID      string
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	instanceID := utils.NewID()
	base := logger.With().Str("instance", instanceID).Logger()

	hub := core.NewHub(core.HubConfig{
		IntakeBuffer:      cfg.IntakeBuffer,
		BroadcastCapacity: cfg.BroadcastCapacity,
		MaxLinesPerMinute: cfg.MaxLinesPerMinute,
	}, base)

	a := &App{
		hub:             hub,
		chat:            tcp.NewServer(cfg.ChatAddr, hub, cfg.WriteTimeout, &base),
		shutdownTimeout: cfg.ShutdownTimeout,
		instanceID:      instanceID,
		log:             &base,
	}
	if cfg.HTTPAddr != "" {
		a.http = transporthttp.NewServer(hub, cfg, instanceID, &base)
	}
	return a, nil
}

// Run starts the room and the listeners and blocks until context
// cancellation or a listener failure.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// A failing room is logged but does not take the process down; sessions
	// notice through the closed bus and /health starts reporting it.
	roomDone := make(chan struct{})
	go func() {
		defer close(roomDone)
		if err := a.hub.Run(ctx); err != nil {
			a.log.Error().Err(err).Msg("room actor exited")
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.chat.ListenAndServe(gctx)
	})

	if a.http != nil {
		a.http.BaseContext = func(net.Listener) context.Context { return gctx }
		g.Go(func() error {
			a.log.Info().Str("addr", a.http.Addr).Msg("http listener started")
			if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
			defer cancel()
			a.log.Info().Msg("shutting down http server")
			return a.http.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	cancel()
	<-roomDone
	a.hub.Wait()
	a.log.Info().Msg("all sessions closed")
	return err
}

// InstanceID identifies this process in logs and on /status.
func (a *App) InstanceID() string {
	return a.instanceID
}
