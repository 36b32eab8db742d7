// Package line frames a byte stream into newline-terminated text lines.
package line

import (
	"bufio"
	"net"
	"sync"
	"time"
)

type closeWriter interface {
	CloseWrite() error
}

// Conn is a buffered line reader/writer over a net.Conn.
type Conn struct {
	conn         net.Conn
	r            *bufio.Reader
	w            *bufio.Writer
	writeTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps conn. A positive writeTimeout bounds each WriteLine.
func NewConn(conn net.Conn, writeTimeout time.Duration) *Conn {
	return &Conn{
		conn:         conn,
		r:            bufio.NewReader(conn),
		w:            bufio.NewWriter(conn),
		writeTimeout: writeTimeout,
	}
}

// ReadLine returns the next line including its terminator. At end of stream
// an unterminated remainder is returned along with io.EOF.
func (c *Conn) ReadLine() (string, error) {
	return c.r.ReadString('\n')
}

// WriteLine writes line and flushes it.
func (c *Conn) WriteLine(line string) error {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	if _, err := c.w.WriteString(line); err != nil {
		return err
	}
	return c.w.Flush()
}

// Close half-closes the write side when the connection supports it, then
// closes the connection. Later calls return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		if cw, ok := c.conn.(closeWriter); ok {
			_ = cw.CloseWrite()
		}
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// RemoteAddr returns the peer address as a string.
func (c *Conn) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
