package core

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/linechat/internal/proto"
)

const waitTimeout = 2 * time.Second

// pipeConn is an in-memory LineConn. The test plays the client: it pushes
// lines into in and reads what the server wrote from out. out is unbuffered,
// so a test that stops reading stalls the session exactly like a client that
// stops draining its socket.
type pipeConn struct {
	in     chan string
	out    chan string
	closed chan struct{}

	closeOnce sync.Once
	inOnce    sync.Once
}

func newPipeConn() *pipeConn {
	return &pipeConn{
		in:     make(chan string, 64),
		out:    make(chan string),
		closed: make(chan struct{}),
	}
}

func (p *pipeConn) ReadLine() (string, error) {
	select {
	case line, ok := <-p.in:
		if !ok {
			return "", io.EOF
		}
		if !strings.HasSuffix(line, "\n") {
			return line, io.EOF
		}
		return line, nil
	case <-p.closed:
		return "", net.ErrClosed
	}
}

func (p *pipeConn) WriteLine(line string) error {
	select {
	case p.out <- line:
		return nil
	case <-p.closed:
		return net.ErrClosed
	}
}

func (p *pipeConn) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

// send queues raw client input; include the terminator for a full line.
func (p *pipeConn) send(line string) {
	p.in <- line
}

// hangUp signals end of stream from the client side.
func (p *pipeConn) hangUp() {
	p.inOnce.Do(func() { close(p.in) })
}

func (p *pipeConn) expect(t *testing.T, want string) {
	t.Helper()
	require.Equal(t, want, p.next(t))
}

func (p *pipeConn) next(t *testing.T) string {
	t.Helper()
	select {
	case line := <-p.out:
		return line
	case <-time.After(waitTimeout):
		t.Fatalf("no line received within %s", waitTimeout)
		return ""
	}
}

// expectSilence fails if the server writes anything within d.
func (p *pipeConn) expectSilence(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case line := <-p.out:
		t.Fatalf("unexpected line %q", line)
	case <-time.After(d):
	}
}

func (p *pipeConn) waitClosed(t *testing.T) {
	t.Helper()
	select {
	case <-p.closed:
	case <-time.After(waitTimeout):
		t.Fatal("connection was not closed")
	}
}

// logBuffer collects log output written from several goroutines.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// startHub runs a hub for the duration of the test.
func startHub(t *testing.T, cfg HubConfig) *Hub {
	t.Helper()
	return startHubWithLogger(t, cfg, zerolog.Nop())
}

func startHubWithLogger(t *testing.T, cfg HubConfig, logger zerolog.Logger) *Hub {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(cfg, logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		hub.Wait()
	})
	return hub
}

// connect starts a session for a fresh pipe and consumes the banner.
func connect(t *testing.T, hub *Hub) *pipeConn {
	t.Helper()

	conn := newPipeConn()
	// Runs before the hub cleanup, so sessions blocked on writes can exit.
	t.Cleanup(func() { _ = conn.Close() })
	go hub.Serve(context.Background(), conn, "pipe")
	conn.expect(t, proto.Welcome)
	return conn
}

// join connects, claims name and returns the roster line the client got.
func join(t *testing.T, hub *Hub, name string) (*pipeConn, string) {
	t.Helper()

	conn := connect(t, hub)
	conn.send(name + "\n")
	return conn, conn.next(t)
}

// recordingIntake captures events instead of running a room.
type recordingIntake struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingIntake) Send(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingIntake) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
