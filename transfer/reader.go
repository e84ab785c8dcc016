package transfer

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"httpwire/header"
	"httpwire/wire"

	"github.com/pkg/errors"
)

// ErrMalformedChunk reports a chunked body that violates the coding.
var ErrMalformedChunk = errors.New("malformed chunk")

// ZeroReader is the strategy for messages that carry no body at all,
// such as responses to HEAD or 204/304 statuses.
type ZeroReader struct {
	done completion
}

var _ Reader = (*ZeroReader)(nil)

func NewZeroReader() *ZeroReader { return &ZeroReader{} }

func (zr *ZeroReader) Read([]byte) (int, error) {
	zr.done.fire(nil)
	return 0, io.EOF
}

func (zr *ZeroReader) Close() error {
	zr.done.fire(nil)
	return nil
}

func (zr *ZeroReader) SetOnDone(fn DoneFunc) { zr.done.fn = fn }

// FixedReader delivers exactly the declared number of body bytes.
// An underlying EOF before that is io.ErrUnexpectedEOF.
type FixedReader struct {
	r      io.Reader
	remain uint64
	done   completion
}

var _ Reader = (*FixedReader)(nil)

func NewFixedReader(r io.Reader, length uint64) *FixedReader {
	return &FixedReader{r: r, remain: length}
}

func (fr *FixedReader) Read(p []byte) (int, error) {
	if fr.remain == 0 {
		fr.done.fire(nil)
		return 0, io.EOF
	}

	if uint64(len(p)) > fr.remain {
		p = p[:fr.remain]
	}

	n, err := fr.r.Read(p)
	fr.remain -= uint64(n)

	if err == io.EOF && fr.remain == 0 {
		err = nil
	}
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		err = errors.Wrap(err, "reading body data")
		fr.done.fire(err)
		return n, err
	}

	if fr.remain == 0 {
		fr.done.fire(nil)
	}

	return n, nil
}

func (fr *FixedReader) Close() error {
	if fr.remain > 0 {
		fr.done.fire(ErrBodyAborted)
		return nil
	}

	fr.done.fire(nil)
	return nil
}

func (fr *FixedReader) SetOnDone(fn DoneFunc) { fr.done.fn = fn }

// ChunkedReader decodes a body in the chunked transfer coding.
// Chunk extensions are dropped. Trailer fields after the last chunk
// are handed to the OnTrailer callback.
//
// The reader consumes from the connection's buffered reader directly
// so bytes past the last chunk stay buffered for the next exchange.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-7.1
type ChunkedReader struct {
	br   *bufio.Reader
	opts wire.ReadOptions

	remain   uint64 // data bytes left in the current chunk
	eof      bool
	crlfDump [2]byte

	onTrailer func(name, value string)
	done      completion
}

var _ Reader = (*ChunkedReader)(nil)

func NewChunkedReader(br *bufio.Reader, opts wire.ReadOptions) *ChunkedReader {
	return &ChunkedReader{br: br, opts: opts}
}

// SetOnTrailer registers a callback invoked once per trailer field,
// in wire order, before the final Read returns io.EOF.
func (cr *ChunkedReader) SetOnTrailer(fn func(name, value string)) { cr.onTrailer = fn }

func (cr *ChunkedReader) SetOnDone(fn DoneFunc) { cr.done.fn = fn }

func (cr *ChunkedReader) Read(p []byte) (int, error) {
	if cr.eof {
		return 0, io.EOF
	}

	if cr.remain == 0 {
		size, err := cr.beginChunk()
		if err != nil {
			err = errors.Wrap(err, "reading chunk header")
			cr.done.fire(err)
			return 0, err
		}

		if size == 0 {
			if err := cr.readTrailers(); err != nil {
				err = errors.Wrap(err, "reading trailers")
				cr.done.fire(err)
				return 0, err
			}

			cr.eof = true
			cr.done.fire(nil)
			return 0, io.EOF
		}

		cr.remain = size
	}

	if uint64(len(p)) > cr.remain {
		p = p[:cr.remain]
	}

	n, err := cr.br.Read(p)
	cr.remain -= uint64(n)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		err = errors.Wrap(err, "reading chunk data")
		cr.done.fire(err)
		return n, err
	}

	if cr.remain == 0 {
		if err := cr.readChunkEnd(); err != nil {
			cr.done.fire(err)
			return n, err
		}
	}

	return n, nil
}

func (cr *ChunkedReader) Close() error {
	if cr.eof {
		cr.done.fire(nil)
		return nil
	}

	cr.done.fire(ErrBodyAborted)
	return nil
}

func (cr *ChunkedReader) beginChunk() (uint64, error) {
	line, err := wire.ReadLine(cr.br, cr.opts)
	if err != nil {
		return 0, err
	}

	// Drop any ;name=value extensions.
	if i := bytes.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = bytes.TrimSpace(line)

	size, err := strconv.ParseUint(string(line), 16, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedChunk, "bad chunk size %q", string(line))
	}

	return size, nil
}

// readChunkEnd consumes the CRLF that terminates chunk data.
func (cr *ChunkedReader) readChunkEnd() error {
	if _, err := io.ReadFull(cr.br, cr.crlfDump[:]); err != nil {
		return errors.Wrap(err, "reading chunk delimiter")
	}

	if !bytes.Equal(cr.crlfDump[:], crlf) {
		return errors.Wrap(ErrMalformedChunk, "chunk data not followed by CRLF")
	}

	return nil
}

func (cr *ChunkedReader) readTrailers() error {
	trailers := header.New()
	if err := wire.ReadHeaderFields(cr.br, trailers, cr.opts); err != nil {
		return err
	}

	if cr.onTrailer != nil {
		for i := 0; i < trailers.Len(); i++ {
			cr.onTrailer(trailers.Key(i), trailers.Value(i))
		}
	}

	return nil
}

// EOFReader delivers everything until the connection closes. The
// message has no framing, so the connection that carried it cannot be
// used again.
type EOFReader struct {
	r    io.Reader
	eof  bool
	done completion
}

var _ Reader = (*EOFReader)(nil)

func NewEOFReader(r io.Reader) *EOFReader {
	return &EOFReader{r: r}
}

func (er *EOFReader) Read(p []byte) (int, error) {
	if er.eof {
		return 0, io.EOF
	}

	n, err := er.r.Read(p)
	if err == io.EOF {
		er.eof = true
		er.done.fire(nil)
		return n, io.EOF
	}
	if err != nil {
		err = errors.Wrap(err, "reading body data")
		er.done.fire(err)
		return n, err
	}

	return n, nil
}

func (er *EOFReader) Close() error {
	if er.eof {
		er.done.fire(nil)
		return nil
	}

	er.done.fire(ErrBodyAborted)
	return nil
}

func (er *EOFReader) SetOnDone(fn DoneFunc) { er.done.fn = fn }
