package transfer

import (
	"bytes"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

var (
	// ErrExcessData reports a write that would exceed the declared
	// content length.
	ErrExcessData = errors.New("body exceeds declared length")
	// ErrShortBody reports a body closed before the declared content
	// length was written.
	ErrShortBody = errors.New("body shorter than declared length")
)

// FixedWriter frames a body with a known length. The receiver relies
// on the declared length, so both overrun and underrun are errors.
type FixedWriter struct {
	w      io.Writer
	remain uint64
}

var _ io.WriteCloser = (*FixedWriter)(nil)

func NewFixedWriter(w io.Writer, length uint64) *FixedWriter {
	return &FixedWriter{w: w, remain: length}
}

func (fw *FixedWriter) Write(p []byte) (int, error) {
	if uint64(len(p)) > fw.remain {
		return 0, errors.Wrapf(ErrExcessData, "%d bytes offered, %d remaining", len(p), fw.remain)
	}

	n, err := fw.w.Write(p)
	fw.remain -= uint64(n)
	if err != nil {
		return n, errors.Wrap(err, "writing body data")
	}

	return n, nil
}

func (fw *FixedWriter) Close() error {
	if fw.remain > 0 {
		return errors.Wrapf(ErrShortBody, "%d bytes still expected", fw.remain)
	}

	return nil
}

// DefaultChunkSize is the chunk data size used when none is given.
const DefaultChunkSize = 1024

// ChunkedWriter frames a body of unknown length using the chunked
// transfer coding. Data is buffered until a full chunk accumulates;
// Close flushes the partial chunk and emits the last-chunk marker.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-7.1
type ChunkedWriter struct {
	w      io.Writer
	buf    *bytes.Buffer
	size   int
	closed bool
}

var _ io.WriteCloser = (*ChunkedWriter)(nil)

// NewChunkedWriter creates a ChunkedWriter emitting chunks of
// chunkSize data bytes. chunkSize <= 0 means [DefaultChunkSize].
func NewChunkedWriter(w io.Writer, chunkSize int) *ChunkedWriter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &ChunkedWriter{
		w:    w,
		buf:  bytes.NewBuffer(nil),
		size: chunkSize,
	}
}

func (cw *ChunkedWriter) Write(p []byte) (int, error) {
	if cw.closed {
		return 0, errors.New("write on closed body")
	}

	total := 0
	for len(p) > 0 {
		take := cw.size - cw.buf.Len()
		if take > len(p) {
			take = len(p)
		}

		cw.buf.Write(p[:take])
		p = p[take:]
		total += take

		if cw.buf.Len() == cw.size {
			if err := cw.flushChunk(); err != nil {
				return total, err
			}
		}
	}

	return total, nil
}

func (cw *ChunkedWriter) Close() error {
	if cw.closed {
		return nil
	}
	cw.closed = true

	if err := cw.flushChunk(); err != nil {
		return err
	}

	// Last chunk followed by an empty trailer section.
	if _, err := io.WriteString(cw.w, "0\r\n\r\n"); err != nil {
		return errors.Wrap(err, "writing last chunk")
	}

	return nil
}

func (cw *ChunkedWriter) flushChunk() error {
	if cw.buf.Len() == 0 {
		return nil
	}

	head := strconv.FormatUint(uint64(cw.buf.Len()), 16) + "\r\n"
	if _, err := io.WriteString(cw.w, head); err != nil {
		return errors.Wrap(err, "writing chunk header")
	}

	if _, err := cw.w.Write(cw.buf.Bytes()); err != nil {
		return errors.Wrap(err, "writing chunk data")
	}

	if _, err := cw.w.Write(crlf); err != nil {
		return errors.Wrap(err, "writing chunk delimiter")
	}

	cw.buf.Reset()
	return nil
}

// BufferedWriter accumulates the whole body in memory so it can be
// framed later and, unlike the wire-bound strategies, replayed. Close
// freezes the byte count; nothing reaches the network until the
// buffered bytes are copied out.
type BufferedWriter struct {
	buf    bytes.Buffer
	closed bool
}

var _ io.WriteCloser = (*BufferedWriter)(nil)

func NewBufferedWriter() *BufferedWriter {
	return &BufferedWriter{}
}

func (bw *BufferedWriter) Write(p []byte) (int, error) {
	if bw.closed {
		return 0, errors.New("write on closed body")
	}

	return bw.buf.Write(p)
}

func (bw *BufferedWriter) Close() error {
	bw.closed = true
	return nil
}

// Len reports the number of buffered bytes.
func (bw *BufferedWriter) Len() int { return bw.buf.Len() }

// Bytes exposes the buffered body. The slice stays valid until the
// writer is reused.
func (bw *BufferedWriter) Bytes() []byte { return bw.buf.Bytes() }
