package core

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Default queue sizes.
const (
	DefaultIntakeBuffer      = 256
	DefaultBroadcastCapacity = 256
)

// HubConfig sizes the room intake and the broadcast bus.
type HubConfig struct {
	IntakeBuffer      int
	BroadcastCapacity int
	// MaxLinesPerMinute limits chat lines per session; zero disables the limit.
	MaxLinesPerMinute int
}

// Hub ties the room, the bus and connection ids together. Transports hand
// every accepted connection to Serve.
type Hub struct {
	cfg    HubConfig
	bus    *Bus
	room   *Room
	nextID atomic.Uint64
	log    zerolog.Logger

	mu       sync.Mutex
	draining bool // set by Wait; guarded by mu together with sessions.Add
	sessions sync.WaitGroup
}

// NewHub builds a hub. Zero sizes fall back to the defaults.
func NewHub(cfg HubConfig, logger zerolog.Logger) *Hub {
	if cfg.IntakeBuffer <= 0 {
		cfg.IntakeBuffer = DefaultIntakeBuffer
	}
	if cfg.BroadcastCapacity <= 0 {
		cfg.BroadcastCapacity = DefaultBroadcastCapacity
	}
	bus := NewBus(cfg.BroadcastCapacity)
	return &Hub{
		cfg:  cfg,
		bus:  bus,
		room: NewRoom(bus, cfg.IntakeBuffer, logger),
		log:  logger,
	}
}

// Run runs the room actor until ctx is cancelled or the room fails.
func (h *Hub) Run(ctx context.Context) error {
	return h.room.Run(ctx)
}

// Serve runs a session for conn and returns once it has closed. remote is
// only used for logging. Once Wait has been called, conn is closed without a
// session being started.
func (h *Hub) Serve(ctx context.Context, conn LineConn, remote string) {
	logger := h.log.With().Str("component", "session").Str("remote", remote).Logger()

	h.mu.Lock()
	if h.draining {
		h.mu.Unlock()
		logger.Info().Msg("hub is shutting down, refusing connection")
		_ = conn.Close()
		return
	}
	h.sessions.Add(1)
	h.mu.Unlock()
	defer h.sessions.Done()

	id := h.nextID.Add(1)
	logger.Info().Uint64("client_id", id).Msg("client connected")

	newSession(id, conn, h.room, h.bus, h.cfg.MaxLinesPerMinute, logger).run(ctx)
}

// Wait stops admitting new sessions and blocks until every session started
// by Serve has returned.
func (h *Hub) Wait() {
	h.mu.Lock()
	h.draining = true
	h.mu.Unlock()

	h.sessions.Wait()
}

// Roster returns current member names in join order.
func (h *Hub) Roster(ctx context.Context) ([]string, error) {
	return h.room.Roster(ctx)
}

// Subscribers returns the number of sessions currently holding a bus
// subscription.
func (h *Hub) Subscribers() int {
	return h.bus.Subscribers()
}

// Alive reports whether the room actor is still running.
func (h *Hub) Alive() bool {
	select {
	case <-h.room.Done():
		return false
	default:
		return true
	}
}

// Err returns the error the room stopped with, if any.
func (h *Hub) Err() error {
	return h.room.Err()
}
