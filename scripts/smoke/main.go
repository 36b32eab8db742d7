package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
)

// smoke joins two clients (optionally over different transports), has the
// first one say something and checks the second one hears it.
func main() {
	if err := run(); err != nil {
		log.Printf("smoke: %v", err)
		os.Exit(1)
	}
	fmt.Println("ok")
}

func run() error {
	addrA := flag.String("a", "tcp://localhost:12321", "address of the speaking client")
	addrB := flag.String("b", "ws://localhost:8080/ws", "address of the listening client")
	text := flag.String("text", "hello from smoke test", "line to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	speaker, _, err := join(ctx, *addrA, "smokeA")
	if err != nil {
		return fmt.Errorf("client a: %w", err)
	}
	defer speaker.Close()

	listener, r, err := join(ctx, *addrB, "smokeB")
	if err != nil {
		return fmt.Errorf("client b: %w", err)
	}
	defer listener.Close()

	if _, err := io.WriteString(speaker, *text+"\n"); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	want := "[smokeA] " + *text + "\n"
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		fmt.Printf("b received: %q\n", line)
		if line == want {
			return nil
		}
	}
}

// join dials addr, reads the banner and claims name. The returned reader is
// positioned after the roster line.
func join(ctx context.Context, addr, name string) (net.Conn, *bufio.Reader, error) {
	conn, err := dial(ctx, addr)
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	r := bufio.NewReader(conn)
	banner, err := r.ReadString('\n')
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("read banner: %w", err)
	}
	fmt.Printf("%s banner: %q\n", name, banner)

	if _, err := io.WriteString(conn, name+"\n"); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("send name: %w", err)
	}
	roster, err := r.ReadString('\n')
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("read roster: %w", err)
	}
	if !strings.HasPrefix(roster, "* ") {
		conn.Close()
		return nil, nil, fmt.Errorf("unexpected roster line %q", roster)
	}
	fmt.Printf("%s roster: %q\n", name, roster)
	return conn, r, nil
}

func dial(ctx context.Context, addr string) (net.Conn, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "tcp":
		var d net.Dialer
		return d.DialContext(ctx, "tcp", u.Host)
	case "ws", "wss":
		c, _, err := websocket.Dial(ctx, addr, nil)
		if err != nil {
			return nil, err
		}
		return websocket.NetConn(context.Background(), c, websocket.MessageText), nil
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}
