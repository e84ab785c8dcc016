// Package wire frames HTTP/1.x message heads: request lines, status
// lines and field lines.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112
package wire

import (
	"bytes"
	"strconv"

	"github.com/pkg/errors"
)

const (
	cr byte = '\r'
	lf byte = '\n'
	sp byte = ' '
)

var crlf = []byte{cr, lf}

// ows is the set of optional whitespace octets around field values.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.3
var ows = []byte{' ', '\t'}

// Version is an HTTP version as [major, minor].
type Version [2]uint

var (
	V10 = Version{1, 0}
	V11 = Version{1, 1}
)

// ParseVersion parses http version text (e.g. "HTTP/1.1") into [Version].
func ParseVersion(b []byte) (Version, error) {
	prefix := []byte("HTTP/")
	if !bytes.HasPrefix(b, prefix) {
		return Version{}, errors.Errorf("http version prefix not found: %s", b)
	}

	first, second, found := bytes.Cut(b[len(prefix):], []byte{'.'})
	if !found {
		return Version{}, errors.Errorf("dot separator not found on version: %s", b)
	}

	major, err1 := strconv.ParseUint(string(first), 10, 64)
	minor, err2 := strconv.ParseUint(string(second), 10, 64)
	if err1 != nil || err2 != nil {
		return Version{}, errors.Errorf("http version is not convertable to int: %s", b)
	}

	return Version{uint(major), uint(minor)}, nil
}

func (ver Version) Text() []byte {
	buf := bytes.NewBuffer(nil)
	buf.WriteString("HTTP/")
	buf.WriteString(strconv.FormatUint(uint64(ver[0]), 10))
	buf.WriteByte('.')
	buf.WriteString(strconv.FormatUint(uint64(ver[1]), 10))
	return buf.Bytes()
}

func (ver Version) String() string { return string(ver.Text()) }

// AtLeast reports whether ver is other or newer.
func (ver Version) AtLeast(other Version) bool {
	if ver[0] != other[0] {
		return ver[0] > other[0]
	}
	return ver[1] >= other[1]
}

// RequestLine is the first line of a request message.
type RequestLine struct {
	Method  string
	Target  string
	Version Version
}

// StatusLine is the first line of a response message.
type StatusLine struct {
	Version Version
	Code    int
	Reason  string
}

var ErrMalformedStatusLine = errors.New("status line is malformed")

// ParseStatusLine parses "HTTP/1.1 200 OK". The reason phrase is
// optional; the status code must be exactly three digits.
func ParseStatusLine(line []byte) (StatusLine, error) {
	parts := bytes.SplitN(line, []byte{sp}, 3)
	if len(parts) < 2 {
		return StatusLine{}, ErrMalformedStatusLine
	}

	ver, err := ParseVersion(parts[0])
	if err != nil {
		return StatusLine{}, ErrMalformedStatusLine
	}

	rawCode := string(parts[1])
	code, err := strconv.ParseUint(rawCode, 10, 64)
	if err != nil || len(rawCode) != 3 {
		return StatusLine{}, ErrMalformedStatusLine
	}

	reason := ""
	if len(parts) == 3 {
		reason = string(parts[2])
	}

	return StatusLine{Version: ver, Code: int(code), Reason: reason}, nil
}

var ErrMalformedFieldLine = errors.New("field line is malformed")

// ParseField splits a raw field line into its name and value.
// Whitespace between the name and the colon is rejected; optional
// whitespace around the value is trimmed.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-5.1
func ParseField(line []byte) (name, value string, err error) {
	rawName, rawValue, found := bytes.Cut(line, []byte{':'})
	if !found {
		return "", "", errors.Wrapf(ErrMalformedFieldLine, "no colon in %q", string(line))
	}

	for _, c := range ows {
		if bytes.HasSuffix(rawName, []byte{c}) {
			return "", "", errors.Wrap(ErrMalformedFieldLine, "field name has trailing whitespace")
		}
	}
	if !validToken(string(rawName)) {
		return "", "", errors.Wrapf(ErrMalformedFieldLine, "field name %q is not a token", string(rawName))
	}

	rawValue = bytes.Trim(rawValue, string(ows))

	return string(rawName), string(rawValue), nil
}

// validToken reports whether s is a valid HTTP token.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.2-2
func validToken(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
			continue
		}
		switch c {
		case '!', '#', '$', '%', '&', '\'', '*', '+',
			'-', '.', '^', '_', '`', '|', '~':
			continue
		}
		return false
	}
	return true
}
