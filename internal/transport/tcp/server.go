// Package tcp accepts raw TCP chat connections.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat/internal/core"
	"github.com/vovakirdan/linechat/internal/transport/line"
)

const acceptBackoff = 50 * time.Millisecond

// Hub is the part of core.Hub the listener needs.
type Hub interface {
	Serve(ctx context.Context, conn core.LineConn, remote string)
}

// Server accepts connections and hands each one to the hub.
type Server struct {
	addr         string
	hub          Hub
	writeTimeout time.Duration
	log          *zerolog.Logger

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

// NewServer builds a listener for addr.
func NewServer(addr string, hub Hub, writeTimeout time.Duration, logger *zerolog.Logger) *Server {
	return &Server{
		addr:         addr,
		hub:          hub,
		writeTimeout: writeTimeout,
		log:          logger,
	}
}

// ListenAndServe binds the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is done, then closes ln and waits for the
// sessions it started.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("chat listener started")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.log.Error().Err(err).Msg("accept connection")
			select {
			case <-time.After(acceptBackoff):
			case <-ctx.Done():
			}
			continue
		}

		lc := line.NewConn(conn, s.writeTimeout)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.hub.Serve(ctx, lc, lc.RemoteAddr())
		}()
	}

	s.wg.Wait()
	s.log.Info().Msg("chat listener stopped")
	return nil
}

// Addr returns the bound address once serving has started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}
