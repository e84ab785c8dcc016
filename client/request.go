package client

import (
	"io"
	"net/url"

	"httpwire/header"

	"github.com/pkg/errors"
)

// ErrUnsupportedMethod reports a request method outside the set the
// client speaks. CONNECT is reserved for proxy tunnels and cannot be
// issued directly.
var ErrUnsupportedMethod = errors.New("unsupported request method")

// ErrUnsupportedScheme reports a request URL that is not http or https.
var ErrUnsupportedScheme = errors.New("unsupported url scheme")

var (
	errMissingURL  = errors.New("request url is required")
	errMissingHost = errors.New("request url has no host")
)

type Request struct {
	// Method defaults to GET. A GET carrying a body is promoted to
	// POST before anything is sent.
	Method string

	URL *url.URL

	// Header fields set here take precedence over the client's
	// prototype fields of the same name.
	Header *header.Header

	// Body is the request body, if any. It is read exactly once unless
	// it ends up buffered (see ContentLength and Chunked), so retries
	// after a consumed stream fail with ErrNonReplayableBody.
	Body io.Reader

	// ContentLength, when positive, sends the body with fixed-length
	// framing. The body must supply exactly this many bytes.
	ContentLength int64

	// Chunked streams the body with chunked framing instead of
	// buffering it.
	Chunked bool

	// SkipCache bypasses the response cache for this exchange.
	SkipCache bool
}

func validMethod(method string) bool {
	switch method {
	case "OPTIONS", "GET", "HEAD", "POST", "PUT", "DELETE", "TRACE":
		return true
	}
	return false
}

// normalize validates req and returns a canonical copy. The copy owns
// its own header so the exchange may annotate it freely.
func normalize(req *Request) (*Request, error) {
	if req.URL == nil {
		return nil, errMissingURL
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return nil, errors.Wrapf(ErrUnsupportedScheme, "scheme %q", req.URL.Scheme)
	}
	if req.URL.Hostname() == "" {
		return nil, errMissingHost
	}

	out := *req

	if out.Method == "" {
		out.Method = "GET"
	}
	if !validMethod(out.Method) {
		return nil, errors.Wrapf(ErrUnsupportedMethod, "method %q", out.Method)
	}
	if out.Method == "GET" && out.Body != nil {
		out.Method = "POST"
	}

	out.Header = req.Header.Clone()

	return &out, nil
}
