package core

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat/internal/proto"
)

// Room owns the membership table. All reads and writes of it happen inside
// Run, one event at a time; sessions reach it only through Send.
type Room struct {
	bus    *Bus
	intake chan Event
	done   chan struct{}
	err    error // set before done is closed

	names map[uint64]string
	order []uint64 // join order
	log   zerolog.Logger
}

// NewRoom creates a room publishing on bus with an intake queue of the given size.
func NewRoom(bus *Bus, intakeSize int, logger zerolog.Logger) *Room {
	if intakeSize < 1 {
		intakeSize = 1
	}
	return &Room{
		bus:    bus,
		intake: make(chan Event, intakeSize),
		done:   make(chan struct{}),
		names:  make(map[uint64]string),
		log:    logger.With().Str("component", "room").Logger(),
	}
}

// Send queues ev for the room. It blocks while the intake is full and fails
// once the room has stopped or ctx is done.
func (r *Room) Send(ctx context.Context, ev Event) error {
	select {
	case <-r.done:
		return ErrRoomStopped
	default:
	}

	select {
	case r.intake <- ev:
		return nil
	case <-r.done:
		return ErrRoomStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Roster returns the names of current members in join order.
func (r *Room) Roster(ctx context.Context) ([]string, error) {
	reply := make(chan []string, 1)
	if err := r.Send(ctx, Event{Kind: eventRoster, reply: reply}); err != nil {
		return nil, err
	}
	select {
	case names := <-reply:
		return names, nil
	case <-r.done:
		return nil, ErrRoomStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed when Run returns.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

// Err returns the error Run stopped with, if any. It is only meaningful after
// Done is closed.
func (r *Room) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Run consumes the intake until ctx is cancelled or an event breaks a
// membership invariant. The bus is closed on return so that every session
// notices the room is gone.
func (r *Room) Run(ctx context.Context) error {
	defer close(r.done)
	defer r.bus.Close()

	r.log.Info().Msg("room started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Int("members", len(r.names)).Msg("room stopped")
			return nil
		case ev := <-r.intake:
			if err := r.handle(ev); err != nil {
				r.err = err
				r.log.Error().Err(err).Str("event", ev.Kind.String()).Uint64("client_id", ev.ID).
					Msg("room invariant violated, stopping")
				return err
			}
		}
	}
}

func (r *Room) handle(ev Event) error {
	r.log.Debug().Str("event", ev.Kind.String()).Uint64("client_id", ev.ID).Msg("room event")

	switch ev.Kind {
	case EventArrive:
		if _, exists := r.names[ev.ID]; exists {
			return fmt.Errorf("%w: client %d arrived twice", ErrDuplicateMember, ev.ID)
		}
		r.bus.Publish(AllBut(ev.ID, proto.Joined(ev.Name)))
		r.bus.Publish(To(ev.ID, proto.Roster(r.members())))
		r.names[ev.ID] = ev.Name
		r.order = append(r.order, ev.ID)

	case EventText:
		name, ok := r.names[ev.ID]
		if !ok {
			return fmt.Errorf("%w: text from client %d", ErrUnknownMember, ev.ID)
		}
		r.bus.Publish(AllBut(ev.ID, proto.Chat(name, ev.Text)))

	case EventLeave:
		name, ok := r.names[ev.ID]
		if !ok {
			return fmt.Errorf("%w: leave from client %d", ErrUnknownMember, ev.ID)
		}
		delete(r.names, ev.ID)
		r.order = slices.DeleteFunc(r.order, func(id uint64) bool { return id == ev.ID })
		if n := r.bus.Publish(AllBut(ev.ID, proto.Left(name))); n == 0 {
			r.log.Debug().Str("name", name).Msg("last member left")
		}

	case eventRoster:
		ev.reply <- r.members()

	default:
		r.log.Warn().Int("kind", int(ev.Kind)).Msg("ignoring unknown event kind")
	}
	return nil
}

func (r *Room) members() []string {
	names := make([]string, 0, len(r.order))
	for _, id := range r.order {
		names = append(names, r.names[id])
	}
	return names
}
