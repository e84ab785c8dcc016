package wire

import (
	"bufio"
	"bytes"

	"httpwire/header"

	"github.com/pkg/errors"
)

type ReadOptions struct {
	// AllowSoleLF accepts a single LF as a line terminator instead of
	// requiring CRLF.
	//
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-3
	AllowSoleLF bool

	// MaxLineLength bounds any single head line, zero meaning no bound.
	MaxLineLength uint

	// MaxHeaderFields bounds the number of field lines in one head,
	// zero meaning no bound.
	MaxHeaderFields uint
}

var (
	ErrLineTooLong       = errors.New("line length exceeds limit")
	ErrTooManyFields     = errors.New("too many header fields")
	ErrMissingCRBeforeLF = errors.New("missing CR before LF")
)

// ReadLine reads one line up to LF and returns it without its
// terminator. Bare CRs inside the line are replaced by SP.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-4
func ReadLine(br *bufio.Reader, opts ReadOptions) ([]byte, error) {
	var line []byte
	for {
		chunk, err := br.ReadSlice(lf)
		line = append(line, chunk...)
		if opts.MaxLineLength > 0 && uint(len(line)) > opts.MaxLineLength+2 {
			return nil, ErrLineTooLong
		}
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return nil, err
	}

	line = line[:len(line)-1] // Remove LF.

	if len(line) > 0 && line[len(line)-1] == cr {
		line = line[:len(line)-1] // Remove CR.
	} else if !opts.AllowSoleLF {
		return nil, ErrMissingCRBeforeLF
	}

	return bytes.ReplaceAll(line, []byte{cr}, []byte{sp}), nil
}

// ReadStatusLine reads the next status line, skipping any blank lines a
// peer may emit before the message.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-6
func ReadStatusLine(br *bufio.Reader, opts ReadOptions) (StatusLine, error) {
	for {
		line, err := ReadLine(br, opts)
		if err != nil {
			return StatusLine{}, errors.Wrap(err, "reading status line")
		}
		if len(line) == 0 {
			continue
		}
		return ParseStatusLine(line)
	}
}

// ReadHeaderFields reads field lines into h until the empty line that
// ends the head. Entries are appended in wire order.
func ReadHeaderFields(br *bufio.Reader, h *header.Header, opts ReadOptions) error {
	count := uint(0)
	for {
		line, err := ReadLine(br, opts)
		if err != nil {
			return errors.Wrap(err, "reading field line")
		}

		if len(line) == 0 {
			return nil
		}

		count++
		if opts.MaxHeaderFields > 0 && count > opts.MaxHeaderFields {
			return ErrTooManyFields
		}

		name, value, err := ParseField(line)
		if err != nil {
			return err
		}

		h.Add(name, value)
	}
}

// ReadStatusHead reads a full response head: status line plus fields.
func ReadStatusHead(br *bufio.Reader, opts ReadOptions) (StatusLine, *header.Header, error) {
	status, err := ReadStatusLine(br, opts)
	if err != nil {
		return StatusLine{}, nil, err
	}

	h := header.New()
	if err := ReadHeaderFields(br, h, opts); err != nil {
		return StatusLine{}, nil, errors.Wrap(err, "reading header fields")
	}

	return status, h, nil
}
