// Package transport couples a raw network connection with the
// buffering and timeout behavior one HTTP exchange at a time relies
// on, and knows how to open such connections across a route.
package transport

import (
	"bufio"
	"io"
	"net"
	"time"

	"httpwire/route"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// RawConn is the slice of net.Conn this package needs. Every
// net.Conn satisfies it.
type RawConn interface {
	io.ReadWriter

	Close() error
	SetReadDeadline(t time.Time) error
	RemoteAddr() net.Addr
}

// DefaultBufferSize is the per-direction buffer size for a Conn.
const DefaultBufferSize = 4096

type ConnOptions struct {
	// ReadBufferSize and WriteBufferSize default to
	// [DefaultBufferSize] when zero.
	ReadBufferSize  uint
	WriteBufferSize uint

	// ReadTimeout bounds each raw read. Zero means no bound.
	ReadTimeout time.Duration
}

// Conn is a route-bound connection. The buffered reader lives as
// long as the socket so bytes read ahead of one response stay
// available to the next exchange. At most one exchange uses a Conn
// at a time.
type Conn struct {
	raw RawConn
	rt  route.Route
	clk clock.Clock

	br *bufio.Reader
	bw *bufio.Writer

	readTimeout time.Duration
	closed      bool
}

func NewConn(raw RawConn, rt route.Route, clk clock.Clock, opts ConnOptions) *Conn {
	if opts.ReadBufferSize == 0 {
		opts.ReadBufferSize = DefaultBufferSize
	}
	if opts.WriteBufferSize == 0 {
		opts.WriteBufferSize = DefaultBufferSize
	}

	c := &Conn{
		raw:         raw,
		rt:          rt,
		clk:         clk,
		readTimeout: opts.ReadTimeout,
	}
	c.br = bufio.NewReaderSize(timeoutReader{c}, int(opts.ReadBufferSize))
	c.bw = bufio.NewWriterSize(raw, int(opts.WriteBufferSize))

	return c
}

// timeoutReader arms the read deadline before every raw read, so a
// timeout set mid-connection applies from the next read on.
type timeoutReader struct {
	c *Conn
}

func (tr timeoutReader) Read(p []byte) (int, error) {
	c := tr.c
	if c.readTimeout > 0 {
		if err := c.raw.SetReadDeadline(c.clk.Now().Add(c.readTimeout)); err != nil {
			return 0, errors.Wrap(err, "arming read deadline")
		}
	}

	return c.raw.Read(p)
}

func (c *Conn) Route() route.Route { return c.rt }

// Reader exposes the connection's buffered reader. Message framing
// must consume through it, never the raw connection.
func (c *Conn) Reader() *bufio.Reader { return c.br }

// Writer exposes the connection's buffered writer. The caller owns
// flushing.
func (c *Conn) Writer() *bufio.Writer { return c.bw }

func (c *Conn) Flush() error {
	if err := c.bw.Flush(); err != nil {
		return errors.Wrap(err, "flushing connection")
	}
	return nil
}

// SetReadTimeout changes the per-read bound. It applies from the
// next read.
func (c *Conn) SetReadTimeout(d time.Duration) { c.readTimeout = d }

func (c *Conn) RemoteAddr() net.Addr { return c.raw.RemoteAddr() }

// Close closes the underlying connection. Closing twice is a no-op.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	return c.raw.Close()
}
