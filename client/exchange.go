package client

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"

	"httpwire/cachestore"
	"httpwire/header"
	"httpwire/route"
	"httpwire/transfer"
	"httpwire/transport"
	"httpwire/wire"

	"github.com/pkg/errors"
)

type bodyKind uint8

const (
	bodyNone bodyKind = iota
	bodyFixed
	bodyChunked
	bodyBuffered
)

// bodySource holds the request body for the lifetime of an exchange.
// Fixed and chunked sends stream straight from the caller's reader and
// can happen once. Buffered sends replay from memory on every attempt.
type bodySource struct {
	kind bodyKind

	stream   io.Reader
	length   uint64
	consumed bool

	buf *transfer.BufferedWriter
}

func newBodySource(req *Request) (bodySource, error) {
	if req.Body == nil {
		return bodySource{kind: bodyNone}, nil
	}

	switch {
	case req.Chunked:
		return bodySource{kind: bodyChunked, stream: req.Body}, nil
	case req.ContentLength > 0:
		return bodySource{
			kind:   bodyFixed,
			stream: req.Body,
			length: uint64(req.ContentLength),
		}, nil
	}

	buf := transfer.NewBufferedWriter()
	if _, err := io.Copy(buf, req.Body); err != nil {
		return bodySource{}, errors.Wrap(err, "buffering request body")
	}
	if err := buf.Close(); err != nil {
		return bodySource{}, err
	}

	return bodySource{kind: bodyBuffered, buf: buf}, nil
}

func (b *bodySource) replayable() bool {
	switch b.kind {
	case bodyFixed, bodyChunked:
		return !b.consumed
	}
	return true
}

// exchange tracks one request through redirects, proxy switches and
// authentication retries until a response is served.
type exchange struct {
	client *Client
	req    *Request

	u      *url.URL
	method string
	body   bodySource

	// proxyOverride is installed by a 305 response and takes
	// precedence over the configured proxy on later attempts.
	proxyOverride *route.Proxy

	authorization      string
	proxyAuthorization string

	// sentClose records that the last attempt asked the server to
	// close the connection.
	sentClose bool

	redirects uint
}

func (ex *exchange) run(ctx context.Context) (*Response, error) {
	for {
		resp, v, err := ex.attempt(ctx)
		if err != nil {
			return nil, err
		}
		if !v.retry {
			return resp, nil
		}

		if !ex.body.replayable() {
			return nil, errors.Wrapf(ErrNonReplayableBody,
				"status %d asks for a retry", resp.Status.Code)
		}

		if v.countRedirect {
			ex.redirects++
			if ex.redirects > maxRedirects {
				return nil, errors.Wrapf(ErrTooManyRedirects, "limit is %d", maxRedirects)
			}
		}

		ex.applyVerdict(v)
	}
}

func (ex *exchange) applyVerdict(v verdict) {
	if v.redirectTo != nil {
		ex.client.logger.Debug("following redirect", "to", v.redirectTo)
		ex.u = v.redirectTo
	}
	if v.useProxy != nil {
		ex.client.logger.Debug("switching proxy", "proxy", v.useProxy.Addr())
		ex.proxyOverride = v.useProxy
	}
	if v.authorization != "" {
		ex.authorization = v.authorization
	}
	if v.proxyAuthorization != "" {
		ex.proxyAuthorization = v.proxyAuthorization
	}
}

// attempt performs a single round trip, serving from the cache when it
// can. A retry verdict comes back with the connection already closed.
func (ex *exchange) attempt(ctx context.Context) (*Response, verdict, error) {
	if resp := ex.fromCache(); resp != nil {
		return resp, verdict{}, nil
	}

	conn, err := ex.acquireConn(ctx)
	if err != nil {
		return nil, verdict{}, errors.Wrap(err, "acquiring connection")
	}

	resp, v, err := ex.roundTrip(conn)
	if err != nil {
		_ = conn.Close()
		return nil, verdict{}, err
	}

	return resp, v, nil
}

// fromCache serves a stored response. Cached responses are final: the
// retry policy never runs on them.
func (ex *exchange) fromCache() *Response {
	store := ex.client.opts.Cache
	if store == nil || ex.req.SkipCache {
		return nil
	}

	entry := store.Get(ex.u, ex.method, ex.req.Header)
	if entry == nil {
		return nil
	}

	ex.client.logger.Debug("serving from cache", "url", ex.u)

	return &Response{
		Status:    entry.Status,
		Header:    entry.Header,
		Body:      cachedBody{bytes.NewReader(entry.Body)},
		URL:       ex.u,
		FromCache: true,
	}
}

// acquireConn tries each candidate route in order, preferring a pooled
// connection. Failures of selector-provided proxies are reported back
// to the selector; a failing explicit proxy is the caller's problem and
// surfaces as the error.
func (ex *exchange) acquireConn(ctx context.Context) (*transport.Conn, error) {
	explicit := ex.client.opts.Proxy
	if ex.proxyOverride != nil {
		explicit = ex.proxyOverride
	}

	sel := ex.client.opts.ProxySelector
	candidates, err := route.Candidates(ex.u, explicit, sel)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, rt := range candidates {
		if conn := ex.client.pool.Get(rt); conn != nil {
			ex.client.logger.Debug("reusing pooled connection", "route", rt)
			conn.SetReadTimeout(ex.client.opts.Timeout.Read)
			return conn, nil
		}

		conn, err := ex.client.dialer.Dial(ctx, rt)
		if err == nil {
			ex.client.logger.Debug("connected", "route", rt)
			return conn, nil
		}

		lastErr = errors.Wrapf(err, "connecting to %s", rt)
		ex.client.logger.Debug("connect failed", "route", rt, "error", err)

		if explicit == nil && sel != nil && rt.Proxy.Kind != route.ProxyDirect {
			sel.ConnectFailed(route.SelectorURL(ex.u), rt.Proxy, err)
		}
	}

	return nil, lastErr
}

func (ex *exchange) roundTrip(conn *transport.Conn) (*Response, verdict, error) {
	h := ex.prepareHeader()

	if err := ex.writeRequest(conn, h); err != nil {
		return nil, verdict{}, errors.Wrap(err, "sending request")
	}

	status, respHeader, err := ex.readResponseHead(conn)
	if err != nil {
		return nil, verdict{}, errors.Wrap(err, "reading response head")
	}

	ex.client.logger.Debug("received response", "status", status.Code, "url", ex.u)

	if jar := ex.client.opts.Cookies; jar != nil {
		if setCookies := respHeader.Values("Set-Cookie"); len(setCookies) > 0 {
			jar.SetCookies(ex.u, setCookies)
		}
	}

	v, err := decide(policyInput{
		status:             status,
		header:             respHeader,
		u:                  ex.u,
		rt:                 conn.Route(),
		hasBody:            ex.body.kind != bodyNone,
		authorization:      ex.authorization,
		proxyAuthorization: ex.proxyAuthorization,
		disableRedirects:   ex.client.opts.DisableRedirects,
		authenticator:      ex.client.opts.Authenticator,
	})
	if err != nil {
		return nil, verdict{}, err
	}

	if v.retry {
		// The response body is left undrained on retries, so the
		// connection must not be recycled.
		_ = conn.Close()
		return &Response{Status: status}, v, nil
	}

	return ex.buildResponse(conn, status, respHeader), verdict{}, nil
}

// prepareHeader assembles the fields for one attempt: prototype fields,
// then request fields replacing same-named ones, then the fields the
// exchange itself owns.
func (ex *exchange) prepareHeader() *header.Header {
	h := ex.client.opts.Header.Prototype.Clone()

	reqHeader := ex.req.Header
	for i := 0; i < reqHeader.Len(); i++ {
		h.Del(reqHeader.Key(i))
	}
	for i := 0; i < reqHeader.Len(); i++ {
		h.Add(reqHeader.Key(i), reqHeader.Value(i))
	}

	h.AddIfAbsent("Host", hostValue(ex.u))
	h.AddIfAbsent("Connection", "Keep-Alive")
	h.AddIfAbsent("User-Agent", ex.client.opts.Header.userAgent())

	ex.setFramingFields(h)

	if ex.body.kind != bodyNone {
		h.AddIfAbsent("Content-Type", "application/x-www-form-urlencoded")
	}

	if jar := ex.client.opts.Cookies; jar != nil {
		if pairs := jar.Cookies(ex.u); len(pairs) > 0 {
			h.AddIfAbsent("Cookie", strings.Join(pairs, "; "))
		}
	}

	if ex.authorization != "" {
		h.Set("Authorization", ex.authorization)
	}
	if ex.proxyAuthorization != "" {
		h.Set("Proxy-Authorization", ex.proxyAuthorization)
	}

	ex.sentClose = h.Contains("Connection", "close")

	return h
}

// setFramingFields stamps the body delimitation fields. These are owned
// by the exchange; stale caller-provided values are replaced.
func (ex *exchange) setFramingFields(h *header.Header) {
	switch ex.body.kind {
	case bodyFixed:
		h.Set("Content-Length", strconv.FormatUint(ex.body.length, 10))
	case bodyChunked:
		h.Set("Transfer-Encoding", "chunked")
	case bodyBuffered:
		if uint(ex.body.buf.Len()) <= ex.client.opts.Body.bufferThreshold() {
			h.Set("Content-Length", strconv.Itoa(ex.body.buf.Len()))
		} else {
			h.Set("Transfer-Encoding", "chunked")
		}
	}
}

func hostValue(u *url.URL) string {
	host := u.Hostname()

	// Hostname strips the brackets off IPv6 literals.
	bare := host
	if strings.Contains(host, ":") {
		bare = "[" + host + "]"
	}

	port := u.Port()
	if port == "" {
		return bare
	}
	if def, ok := route.DefaultPort(u.Scheme); ok && strconv.Itoa(int(def)) == port {
		return bare
	}
	return net.JoinHostPort(host, port)
}

// target renders the request target. Requests through a proxy that is
// not tunnelling use the absolute form, everything else the origin
// form.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2
func target(u *url.URL, rt route.Route) string {
	if rt.Proxy.Kind == route.ProxyHTTP && !rt.Tunnel {
		abs := *u
		abs.User = nil
		abs.Fragment = ""
		abs.RawFragment = ""
		return abs.String()
	}
	return u.RequestURI()
}

func (ex *exchange) writeRequest(conn *transport.Conn, h *header.Header) error {
	line := wire.RequestLine{
		Method:  ex.method,
		Target:  target(ex.u, conn.Route()),
		Version: wire.V11,
	}

	if err := wire.WriteRequestHead(conn.Writer(), line, h); err != nil {
		return errors.Wrap(err, "writing head")
	}
	if err := ex.writeBody(conn.Writer()); err != nil {
		return errors.Wrap(err, "writing body")
	}

	return errors.Wrap(conn.Flush(), "flushing")
}

func (ex *exchange) writeBody(w io.Writer) error {
	switch ex.body.kind {
	case bodyNone:
		return nil

	case bodyFixed:
		ex.body.consumed = true
		fw := transfer.NewFixedWriter(w, ex.body.length)
		if _, err := io.Copy(fw, ex.body.stream); err != nil {
			return err
		}
		return fw.Close()

	case bodyChunked:
		ex.body.consumed = true
		cw := transfer.NewChunkedWriter(w, ex.client.opts.Body.chunkSize())
		if _, err := io.Copy(cw, ex.body.stream); err != nil {
			return err
		}
		return cw.Close()

	case bodyBuffered:
		data := ex.body.buf.Bytes()
		if uint(len(data)) <= ex.client.opts.Body.bufferThreshold() {
			_, err := w.Write(data)
			return err
		}

		cw := transfer.NewChunkedWriter(w, ex.client.opts.Body.chunkSize())
		if _, err := cw.Write(data); err != nil {
			return err
		}
		return cw.Close()
	}

	return nil
}

// readResponseHead reads status lines until one that is not an interim
// 100. Servers may send those whether or not we asked to continue.
func (ex *exchange) readResponseHead(conn *transport.Conn) (wire.StatusLine, *header.Header, error) {
	for {
		status, h, err := wire.ReadStatusHead(conn.Reader(), ex.client.opts.Receive.Head)
		if err != nil {
			return wire.StatusLine{}, nil, err
		}

		if status.Code == 100 {
			ex.client.logger.Debug("discarding interim response")
			continue
		}

		return status, h, nil
	}
}

// buildResponse wires the elected body reader to connection recycling
// and, for cacheable responses, to a cache sink.
func (ex *exchange) buildResponse(conn *transport.Conn, status wire.StatusLine, h *header.Header) *Response {
	body, condemned := ex.responseBody(conn, status, h)

	reusable := !condemned && !ex.sentClose && connReusable(status, h)

	client := ex.client
	body.SetOnDone(func(err error) {
		if err == nil && reusable {
			client.logger.Debug("recycling connection", "route", conn.Route())
			client.pool.Put(conn)
			return
		}

		client.logger.Debug("discarding connection", "route", conn.Route())
		_ = conn.Close()
	})

	resp := &Response{
		Status: status,
		Header: h,
		URL:    ex.u,
		Route:  conn.Route(),
	}

	resp.Body = body
	if sink := ex.offerCache(status, h); sink != nil {
		resp.Body = &cachingBody{body: body, sink: sink}
	}

	return resp
}

// responseBody elects how the body is delimited. condemned reports
// that only closing the connection delimits it, ruling out reuse.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3
func (ex *exchange) responseBody(
	conn *transport.Conn, status wire.StatusLine, h *header.Header,
) (body transfer.Reader, condemned bool) {
	if !bodyExpected(ex.method, status.Code) {
		return transfer.NewZeroReader(), false
	}

	if chunked(h) {
		cr := transfer.NewChunkedReader(conn.Reader(), ex.client.opts.Receive.Head)
		cr.SetOnTrailer(func(name, value string) {
			h.Add(name, value)
		})
		return cr, false
	}

	if raw, ok := h.Get("Content-Length"); ok {
		length, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 63)
		if err == nil {
			return transfer.NewFixedReader(conn.Reader(), length), false
		}
		ex.client.logger.Debug("ignoring malformed content-length", "value", raw)
	}

	return transfer.NewEOFReader(conn.Reader()), true
}

func bodyExpected(method string, code int) bool {
	switch {
	case method == "HEAD":
		return false
	case code < 200, code == 204, code == 304:
		return false
	}
	return true
}

// chunked reports whether the final transfer coding is chunked.
func chunked(h *header.Header) bool {
	values := h.Values("Transfer-Encoding")
	if len(values) == 0 {
		return false
	}

	last := values[len(values)-1]
	if i := strings.LastIndexByte(last, ','); i >= 0 {
		last = last[i+1:]
	}

	return strings.EqualFold(strings.TrimSpace(last), "chunked")
}

// connReusable reports whether protocol rules allow recycling the
// connection once the body is cleanly consumed.
func connReusable(status wire.StatusLine, h *header.Header) bool {
	if h.Contains("Connection", "close") {
		return false
	}
	if !status.Version.AtLeast(wire.V11) {
		return h.Contains("Connection", "keep-alive")
	}
	return true
}

func cacheableCode(code int) bool {
	switch code {
	case 200, 203, 206, 301, 410:
		return true
	}
	return false
}

func (ex *exchange) offerCache(status wire.StatusLine, h *header.Header) cachestore.Sink {
	store := ex.client.opts.Cache
	if store == nil || ex.req.SkipCache || !cacheableCode(status.Code) {
		return nil
	}
	return store.Put(ex.u, ex.method, status, h)
}
