package tcp

import (
	"bufio"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/linechat/internal/core"
	"github.com/vovakirdan/linechat/internal/proto"
)

type client struct {
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, addr net.Addr) *client {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr.String(), 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &client{conn: conn, r: bufio.NewReader(conn)}
}

func (c *client) expect(t *testing.T, want string) {
	t.Helper()

	_ = c.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	got, err := c.r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func (c *client) send(t *testing.T, line string) {
	t.Helper()

	_, err := io.WriteString(c.conn, line)
	require.NoError(t, err)
}

func startServer(t *testing.T) (*Server, context.CancelFunc, <-chan error) {
	t.Helper()

	logger := zerolog.Nop()
	hub := core.NewHub(core.HubConfig{}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(ln.Addr().String(), hub, time.Second, &logger)
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx, ln) }()
	t.Cleanup(cancel)

	require.Eventually(t, func() bool { return srv.Addr() != nil }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, ln.Addr().String(), srv.Addr().String())

	return srv, cancel, errc
}

func TestServerRelaysBetweenClients(t *testing.T) {
	srv, _, _ := startServer(t)

	alice := dial(t, srv.Addr())
	alice.expect(t, proto.Welcome)
	alice.send(t, "alice\n")
	alice.expect(t, "* Also here: \n")

	bob := dial(t, srv.Addr())
	bob.expect(t, proto.Welcome)
	bob.send(t, "bob\n")
	bob.expect(t, "* Also here: alice\n")
	alice.expect(t, "* bob joins.\n")

	bob.send(t, "hi alice\n")
	alice.expect(t, "[bob] hi alice\n")

	require.NoError(t, bob.conn.Close())
	alice.expect(t, "* bob leaves.\n")
}

func TestServerStopsOnCancel(t *testing.T) {
	srv, cancel, errc := startServer(t)

	c := dial(t, srv.Addr())
	c.expect(t, proto.Welcome)
	c.send(t, "alice\n")
	c.expect(t, "* Also here: \n")

	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}

	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := c.r.ReadString('\n')
	assert.ErrorIs(t, err, io.EOF)
}

func TestListenAndServeReportsBindErrors(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	logger := zerolog.Nop()
	srv := NewServer(ln.Addr().String(), nil, 0, &logger)
	err = srv.ListenAndServe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen")
}

func TestAddrIsNilUntilServing(t *testing.T) {
	logger := zerolog.Nop()
	srv := NewServer("127.0.0.1:0", nil, 0, &logger)
	assert.Nil(t, srv.Addr())
}
