package wire

import (
	"bufio"

	"httpwire/header"

	"github.com/pkg/errors"
)

// WriteRequestHead writes the request line and every header entry in
// positional order, terminated by the empty line. The writer is not
// flushed; the caller decides when bytes hit the wire.
func WriteRequestHead(bw *bufio.Writer, rl RequestLine, h *header.Header) error {
	bw.WriteString(rl.Method)
	bw.WriteByte(sp)
	bw.WriteString(rl.Target)
	bw.WriteByte(sp)
	bw.Write(rl.Version.Text())
	if _, err := bw.Write(crlf); err != nil {
		return errors.Wrap(err, "writing request line")
	}

	for i := 0; i < h.Len(); i++ {
		bw.WriteString(h.Key(i))
		bw.WriteString(": ")
		bw.WriteString(h.Value(i))
		if _, err := bw.Write(crlf); err != nil {
			return errors.Wrap(err, "writing field line")
		}
	}

	if _, err := bw.Write(crlf); err != nil {
		return errors.Wrap(err, "writing head terminator")
	}

	return nil
}
