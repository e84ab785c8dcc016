package wire

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"httpwire/header"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	testcases := []struct {
		desc     string
		input    string
		expected Version
		wantErr  bool
	}{
		{
			desc:     "http 1.1",
			input:    "HTTP/1.1",
			expected: V11,
		},
		{
			desc:     "http 1.0",
			input:    "HTTP/1.0",
			expected: V10,
		},
		{
			desc:    "missing prefix",
			input:   "HTTPS/1.1",
			wantErr: true,
		},
		{
			desc:    "missing dot",
			input:   "HTTP/11",
			wantErr: true,
		},
		{
			desc:    "non numeric",
			input:   "HTTP/x.y",
			wantErr: true,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			ver, err := ParseVersion([]byte(tc.input))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.expected, ver)
		})
	}
}

func TestVersionText(t *testing.T) {
	assert.Equal(t, "HTTP/1.1", V11.String())
	assert.True(t, V11.AtLeast(V10))
	assert.True(t, V11.AtLeast(V11))
	assert.False(t, V10.AtLeast(V11))
}

func TestParseStatusLine(t *testing.T) {
	testcases := []struct {
		desc     string
		input    string
		expected StatusLine
		wantErr  bool
	}{
		{
			desc:     "normal",
			input:    "HTTP/1.1 200 OK",
			expected: StatusLine{Version: V11, Code: 200, Reason: "OK"},
		},
		{
			desc:     "reason with spaces",
			input:    "HTTP/1.1 404 Not Found",
			expected: StatusLine{Version: V11, Code: 404, Reason: "Not Found"},
		},
		{
			desc:     "missing reason",
			input:    "HTTP/1.0 204",
			expected: StatusLine{Version: V10, Code: 204, Reason: ""},
		},
		{
			desc:     "empty reason after space",
			input:    "HTTP/1.1 200 ",
			expected: StatusLine{Version: V11, Code: 200, Reason: ""},
		},
		{
			desc:    "code not three digits",
			input:   "HTTP/1.1 99 Short",
			wantErr: true,
		},
		{
			desc:    "code not numeric",
			input:   "HTTP/1.1 abc nope",
			wantErr: true,
		},
		{
			desc:    "garbage",
			input:   "garbage",
			wantErr: true,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			status, err := ParseStatusLine([]byte(tc.input))
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrMalformedStatusLine)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.expected, status)
		})
	}
}

func TestParseField(t *testing.T) {
	testcases := []struct {
		desc    string
		input   string
		name    string
		value   string
		wantErr bool
	}{
		{
			desc:  "normal",
			input: "Host: example.com",
			name:  "Host",
			value: "example.com",
		},
		{
			desc:  "value whitespace trimmed",
			input: "Accept:\t text/html \t",
			name:  "Accept",
			value: "text/html",
		},
		{
			desc:  "empty value",
			input: "X-Empty:",
			name:  "X-Empty",
			value: "",
		},
		{
			desc:    "whitespace before colon",
			input:   "Host : example.com",
			wantErr: true,
		},
		{
			desc:    "no colon",
			input:   "Host example.com",
			wantErr: true,
		},
		{
			desc:    "name is not a token",
			input:   "Bad{}Name: x",
			wantErr: true,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			name, value, err := ParseField([]byte(tc.input))
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrMalformedFieldLine)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.name, name)
			assert.Equal(t, tc.value, value)
		})
	}
}

func TestReadLine(t *testing.T) {
	testcases := []struct {
		desc     string
		input    string
		opts     ReadOptions
		expected string
		wantErr  error
	}{
		{
			desc:     "crlf terminated",
			input:    "hello\r\nrest",
			expected: "hello",
		},
		{
			desc:    "sole lf rejected by default",
			input:   "hello\nrest",
			wantErr: ErrMissingCRBeforeLF,
		},
		{
			desc:     "sole lf allowed by option",
			input:    "hello\nrest",
			opts:     ReadOptions{AllowSoleLF: true},
			expected: "hello",
		},
		{
			desc:     "bare cr replaced with sp",
			input:    "he\rllo\r\n",
			expected: "he llo",
		},
		{
			desc:    "line too long",
			input:   strings.Repeat("a", 64) + "\r\n",
			opts:    ReadOptions{MaxLineLength: 16},
			wantErr: ErrLineTooLong,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			br := bufio.NewReaderSize(strings.NewReader(tc.input), 16)

			line, err := ReadLine(br, tc.opts)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, string(line))
		})
	}
}

func TestReadStatusHead(t *testing.T) {
	input := "" +
		"\r\n" + // stray blank line before the status line
		"HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/plain\r\n" +
		"Set-Cookie: a=1\r\n" +
		"Set-Cookie: b=2\r\n" +
		"\r\n" +
		"body"

	br := bufio.NewReader(strings.NewReader(input))

	status, h, err := ReadStatusHead(br, ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, StatusLine{Version: V11, Code: 200, Reason: "OK"}, status)
	require.Equal(t, 3, h.Len())
	assert.Equal(t, "Content-Type", h.Key(0))
	assert.Equal(t, "Set-Cookie", h.Key(1))
	assert.Equal(t, []string{"a=1", "b=2"}, h.Values("Set-Cookie"))

	rest, err := br.ReadString('y')
	require.NoError(t, err)
	assert.Equal(t, "body", rest)
}

func TestReadStatusHeadTooManyFields(t *testing.T) {
	input := "HTTP/1.1 200 OK\r\nA: 1\r\nB: 2\r\n\r\n"

	br := bufio.NewReader(strings.NewReader(input))

	_, _, err := ReadStatusHead(br, ReadOptions{MaxHeaderFields: 1})
	assert.ErrorIs(t, err, ErrTooManyFields)
}

func TestWriteRequestHead(t *testing.T) {
	h := header.New()
	h.Add("Host", "example.com")
	h.Add("Accept", "*/*")
	h.Add("X-Dup", "one")
	h.Add("X-Dup", "two")

	buf := bytes.NewBuffer(nil)
	bw := bufio.NewWriter(buf)

	rl := RequestLine{Method: "GET", Target: "/index.html?q=1", Version: V11}
	require.NoError(t, WriteRequestHead(bw, rl, h))
	require.NoError(t, bw.Flush())

	expected := "" +
		"GET /index.html?q=1 HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Accept: */*\r\n" +
		"X-Dup: one\r\n" +
		"X-Dup: two\r\n" +
		"\r\n"
	assert.Equal(t, expected, buf.String())
}
