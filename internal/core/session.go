package core

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat/internal/proto"
)

// LineConn is a duplex, line-oriented transport.
//
// ReadLine returns a complete line including its terminator with a nil error.
// At end of stream it returns any unterminated remainder together with io.EOF.
// WriteLine writes and flushes one line. Close shuts both directions down and
// may be called more than once.
type LineConn interface {
	ReadLine() (string, error)
	WriteLine(line string) error
	Close() error
}

// Intake accepts events for the room.
type Intake interface {
	Send(ctx context.Context, ev Event) error
}

type sessionState int

const (
	stateHandshaking sessionState = iota
	stateActive
	stateClosing
)

func (s sessionState) String() string {
	switch s {
	case stateHandshaking:
		return "handshaking"
	case stateActive:
		return "active"
	case stateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// session bridges one connection to the room.
type session struct {
	id      uint64
	name    string
	state   sessionState
	conn    LineConn
	room    Intake
	bus     *Bus
	limiter *rateLimiter
	log     zerolog.Logger
}

type readResult struct {
	line string
	err  error
}

type delivery struct {
	msg Message
	err error
}

func newSession(id uint64, conn LineConn, room Intake, bus *Bus, maxLinesPerMinute int, logger zerolog.Logger) *session {
	return &session{
		id:      id,
		conn:    conn,
		room:    room,
		bus:     bus,
		limiter: newRateLimiter(maxLinesPerMinute),
		log:     logger.With().Uint64("client_id", id).Logger(),
	}
}

// run drives the session until the connection or the room goes away.
func (s *session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Cancellation from above must unblock a pending ReadLine.
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()

	sub, joined := s.handshake(ctx)
	if joined {
		s.relay(ctx, sub)
	}
	s.shutdown(ctx, sub, joined)
}

func (s *session) setState(state sessionState) {
	s.state = state
	s.log.Debug().Str("state", state.String()).Msg("session state")
}

// handshake sends the banner and validates the requested name. It returns the
// bus subscription (if one was taken) and whether the room was told about the
// arrival.
func (s *session) handshake(ctx context.Context) (*Subscription, bool) {
	s.setState(stateHandshaking)

	if err := s.conn.WriteLine(proto.Welcome); err != nil {
		s.log.Warn().Err(err).Msg("write welcome")
		return nil, false
	}

	line, err := s.conn.ReadLine()
	if err != nil {
		s.log.Info().Err(err).Msg("connection ended before a name was given")
		return nil, false
	}

	name := NormalizeName(line)
	if !ValidName(name) {
		s.log.Info().Err(ErrInvalidName).Str("name", name).Msg("rejecting client")
		if err := s.conn.WriteLine(proto.Rejected); err != nil {
			s.log.Debug().Err(err).Msg("write rejection")
		}
		return nil, false
	}

	// Subscribe before arriving so nothing addressed to us can be missed.
	sub := s.bus.Subscribe()
	for {
		_, err := sub.TryRecv()
		if errors.Is(err, ErrEmpty) || errors.Is(err, ErrBusClosed) {
			break
		}
	}

	if err := s.room.Send(ctx, Arrive(s.id, name)); err != nil {
		s.log.Error().Err(err).Str("name", name).Msg("room unavailable")
		return sub, false
	}

	s.name = name
	s.log = s.log.With().Str("name", name).Logger()
	s.log.Info().Msg("client joined")
	return sub, true
}

// relay multiplexes transport reads against bus deliveries until either side
// ends.
func (s *session) relay(ctx context.Context, sub *Subscription) {
	s.setState(stateActive)

	// Stops the reader and the pump once either side ends.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan readResult)
	go s.readLines(ctx, lines)

	deliveries := make(chan delivery)
	go pump(ctx, sub, deliveries)

	for {
		select {
		case <-ctx.Done():
			return

		case r := <-lines:
			if r.err != nil {
				if errors.Is(r.err, io.EOF) {
					if r.line != "" {
						_ = s.sendText(ctx, proto.Terminate(r.line))
					}
					s.log.Debug().Msg("client closed its stream")
				} else {
					s.log.Warn().Err(r.err).Msg("read from client")
				}
				return
			}
			if err := s.sendText(ctx, r.line); err != nil {
				return
			}

		case d := <-deliveries:
			switch {
			case d.err == nil:
				if !d.msg.For(s.id) {
					continue
				}
				if err := s.conn.WriteLine(d.msg.Text); err != nil {
					s.log.Warn().Err(err).Msg("write to client")
					return
				}
			case IsLag(d.err):
				s.log.Warn().Err(d.err).Msg("client lagged")
				if err := s.conn.WriteLine(proto.Lagged); err != nil {
					s.log.Warn().Err(err).Msg("write lag warning")
					return
				}
			case errors.Is(d.err, ErrBusClosed):
				s.log.Error().Msg("broadcast bus closed")
				return
			default:
				return
			}
		}
	}
}

// sendText forwards one line to the room, applying the rate limit. A non-nil
// error means the session should close.
func (s *session) sendText(ctx context.Context, line string) error {
	if !s.limiter.allow() {
		s.log.Debug().Msg("line dropped by rate limit")
		return s.conn.WriteLine(proto.Throttled)
	}
	if err := s.room.Send(ctx, Text(s.id, line)); err != nil {
		s.log.Error().Err(err).Msg("room unavailable")
		return err
	}
	return nil
}

func (s *session) readLines(ctx context.Context, out chan<- readResult) {
	for {
		line, err := s.conn.ReadLine()
		select {
		case out <- readResult{line: line, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func pump(ctx context.Context, sub *Subscription, out chan<- delivery) {
	for {
		msg, err := sub.Recv(ctx)
		if ctx.Err() != nil {
			return
		}
		select {
		case out <- delivery{msg: msg, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil && !IsLag(err) {
			return
		}
	}
}

// shutdown releases the subscription before reporting the departure, so the
// room's leave broadcast no longer counts this session as a recipient.
func (s *session) shutdown(ctx context.Context, sub *Subscription, joined bool) {
	s.setState(stateClosing)

	if sub != nil {
		sub.Close()
	}
	if joined {
		if err := s.room.Send(context.WithoutCancel(ctx), Leave(s.id)); err != nil {
			s.log.Warn().Err(err).Msg("could not report departure")
		}
	}
	if err := s.conn.Close(); err != nil {
		s.log.Warn().Err(err).Msg("shutdown transport")
	}
	s.log.Info().Msg("client disconnected")
}
