package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversInPublishOrder(t *testing.T) {
	bus := NewBus(8)
	a := bus.Subscribe()
	b := bus.Subscribe()

	require.Equal(t, 2, bus.Publish(AllBut(1, "one\n")))
	require.Equal(t, 2, bus.Publish(To(2, "two\n")))

	for _, sub := range []*Subscription{a, b} {
		msg, err := sub.TryRecv()
		require.NoError(t, err)
		assert.Equal(t, "one\n", msg.Text)

		msg, err = sub.TryRecv()
		require.NoError(t, err)
		assert.Equal(t, "two\n", msg.Text)
		assert.Equal(t, DeliverTo, msg.Kind)

		_, err = sub.TryRecv()
		assert.ErrorIs(t, err, ErrEmpty)
	}
}

func TestBusSubscribeStartsAtTail(t *testing.T) {
	bus := NewBus(4)
	bus.Publish(AllBut(0, "before\n"))

	sub := bus.Subscribe()
	_, err := sub.TryRecv()
	require.ErrorIs(t, err, ErrEmpty)

	bus.Publish(AllBut(0, "after\n"))
	msg, err := sub.TryRecv()
	require.NoError(t, err)
	assert.Equal(t, "after\n", msg.Text)
}

func TestBusPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus(2)
	assert.Equal(t, 0, bus.Publish(AllBut(1, "nobody\n")))

	sub := bus.Subscribe()
	assert.Equal(t, 1, bus.Subscribers())
	sub.Close()
	sub.Close()
	assert.Equal(t, 0, bus.Subscribers())
	assert.Equal(t, 0, bus.Publish(AllBut(1, "still nobody\n")))
}

func TestBusLagSkipsToOldestRetained(t *testing.T) {
	bus := NewBus(3)
	sub := bus.Subscribe()

	for i := 0; i < 7; i++ {
		bus.Publish(AllBut(0, string(rune('a'+i))))
	}

	_, err := sub.TryRecv()
	var lag *LagError
	require.True(t, errors.As(err, &lag))
	assert.Equal(t, uint64(4), lag.Missed)
	assert.True(t, IsLag(err))

	var got []string
	for {
		msg, err := sub.TryRecv()
		if errors.Is(err, ErrEmpty) {
			break
		}
		require.NoError(t, err)
		got = append(got, msg.Text)
	}
	assert.Equal(t, []string{"e", "f", "g"}, got)
}

func TestBusCloseDrainsThenFails(t *testing.T) {
	bus := NewBus(4)
	sub := bus.Subscribe()
	bus.Publish(AllBut(0, "last\n"))
	bus.Close()
	bus.Close()

	assert.Equal(t, 0, bus.Publish(AllBut(0, "ignored\n")))

	msg, err := sub.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "last\n", msg.Text)

	_, err = sub.Recv(context.Background())
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestBusRecvWakesOnPublish(t *testing.T) {
	bus := NewBus(4)
	sub := bus.Subscribe()

	got := make(chan Message, 1)
	go func() {
		msg, err := sub.Recv(context.Background())
		if err == nil {
			got <- msg
		}
	}()

	time.Sleep(20 * time.Millisecond)
	bus.Publish(To(5, "hello\n"))

	select {
	case msg := <-got:
		assert.Equal(t, "hello\n", msg.Text)
		assert.True(t, msg.For(5))
		assert.False(t, msg.For(6))
	case <-time.After(waitTimeout):
		t.Fatal("Recv did not wake up")
	}
}

func TestBusRecvHonoursContext(t *testing.T) {
	bus := NewBus(4)
	sub := bus.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := sub.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMessageFor(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		id   uint64
		want bool
	}{
		{"all but sender skips sender", AllBut(1, "x"), 1, false},
		{"all but sender reaches others", AllBut(1, "x"), 2, true},
		{"to reaches target", To(3, "x"), 3, true},
		{"to skips others", To(3, "x"), 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.msg.For(tt.id))
		})
	}
}
