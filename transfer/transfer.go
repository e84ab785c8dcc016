// Package transfer implements HTTP/1.x message body framing.
//
// Writers frame an outgoing request body onto the connection writer.
// Readers deliver exactly the incoming response body from the
// connection's buffered reader, leaving any following bytes unread so
// the connection can carry another exchange.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6
package transfer

import (
	"io"

	"github.com/pkg/errors"
)

var crlf = []byte("\r\n")

// ErrBodyAborted reports a body that was closed before it was fully
// consumed. The connection it came from cannot be reused.
var ErrBodyAborted = errors.New("body closed before completion")

// DoneFunc observes the terminal state of a body: nil after a clean
// end, ErrBodyAborted after an early close, or the failing error.
type DoneFunc func(err error)

// Reader is a response body read strategy.
//
// The done hook fires exactly once, on the first terminal event
// (natural end of the body, a read failure, or Close before the end).
type Reader interface {
	io.ReadCloser

	SetOnDone(fn DoneFunc)
}

// completion guards a DoneFunc so it fires at most once.
type completion struct {
	fired bool
	fn    DoneFunc
}

func (c *completion) fire(err error) {
	if c.fired {
		return
	}
	c.fired = true

	if c.fn != nil {
		c.fn(err)
	}
}
