// Package client exchanges HTTP/1.1 requests over pooled connections.
//
// An exchange follows redirects, answers authentication challenges and
// consults the configured cache before the response is handed to the
// caller. Response bodies borrow the underlying connection: reading
// them to the end or closing them returns it to the pool or discards
// it, depending on what the response allows.
package client

import (
	"context"
	"io"
	"log/slog"
	"net/url"

	"httpwire/header"
	"httpwire/pool"
	"httpwire/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

type Client struct {
	dialer transport.Dialer
	pool   *pool.Pool

	opts Options

	logger *slog.Logger
}

// New builds a client. A nil dialer gets a network dialer configured
// from opts. A nil logger discards logs and a nil clock uses the wall
// clock.
func New(d transport.Dialer, logger *slog.Logger, clk clock.Clock, opts Options) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if clk == nil {
		clk = clock.New()
	}

	if d == nil {
		d = transport.NewNetDialer(clk, transport.NetDialerOptions{
			ConnectTimeout: opts.Timeout.Connect,
			TLS:            opts.Conn.TLS,
			Conn: transport.ConnOptions{
				ReadBufferSize:  opts.Conn.ReadBufferSize,
				WriteBufferSize: opts.Conn.WriteBufferSize,
				ReadTimeout:     opts.Timeout.Read,
			},
		})
	}

	client := &Client{
		dialer: d,
		opts:   opts,
		logger: logger,
	}

	client.pool = pool.New(clk, pool.Options{
		MaxIdlePerRoute: opts.Conn.MaxIdlePerRoute,
		IdleTimeout:     opts.Timeout.Idle,
	})

	return client
}

// Do performs the exchange and returns the final response. Responses
// with error-class status codes are returned like any other; only
// transport failures and policy dead ends produce an error.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	norm, err := normalize(req)
	if err != nil {
		return nil, errors.Wrap(err, "normalizing request")
	}

	body, err := newBodySource(norm)
	if err != nil {
		return nil, err
	}

	ex := &exchange{
		client: c,
		req:    norm,
		u:      norm.URL,
		method: norm.Method,
		body:   body,
	}

	return ex.run(ctx)
}

func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing url")
	}
	return c.Do(ctx, &Request{Method: "GET", URL: u})
}

func (c *Client) Head(ctx context.Context, rawURL string) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing url")
	}
	return c.Do(ctx, &Request{Method: "HEAD", URL: u})
}

func (c *Client) Post(ctx context.Context, rawURL, contentType string, body io.Reader) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing url")
	}

	req := &Request{Method: "POST", URL: u, Body: body}
	if contentType != "" {
		req.Header = header.New()
		req.Header.Set("Content-Type", contentType)
	}

	return c.Do(ctx, req)
}

// CloseIdle drops every pooled connection.
func (c *Client) CloseIdle() {
	c.pool.CloseIdle()
}
