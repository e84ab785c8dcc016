package client

import (
	"io"
	"net/url"

	"httpwire/cachestore"
	"httpwire/header"
	"httpwire/route"
	"httpwire/transfer"
	"httpwire/wire"
)

type Response struct {
	Status wire.StatusLine

	// Header holds the response fields in wire order. Trailer fields
	// of a chunked body are appended here as the body is read out.
	Header *header.Header

	// Body is never nil. It must be read to completion or closed for
	// the underlying connection to be recycled.
	Body io.ReadCloser

	// URL is the target this response answers, after any redirects.
	URL *url.URL

	// Route carries the connection's route. Zero when FromCache.
	Route route.Route

	// FromCache marks a response served from the cache store without
	// touching the network.
	FromCache bool
}

// Success reports whether the status code is below 400. Error-class
// responses still carry their full header and body; this is only a
// convenience for callers that treat 4xx/5xx as failures.
func (r *Response) Success() bool {
	return r.Status.Code < 400
}

// UsingProxy reports whether the response travelled through a proxy.
func (r *Response) UsingProxy() bool {
	return !r.FromCache && r.Route.Proxy.Kind != route.ProxyDirect
}

// cachingBody tees a response body into a cache sink as the caller
// reads it. The sink is committed only after the body reaches a clean
// end of stream; an early close or a read error aborts it.
type cachingBody struct {
	body transfer.Reader
	sink cachestore.Sink

	finalized bool
}

func (cb *cachingBody) Read(p []byte) (int, error) {
	n, err := cb.body.Read(p)
	if n > 0 && !cb.finalized {
		if _, werr := cb.sink.Write(p[:n]); werr != nil {
			// A failing sink only loses the cache entry.
			cb.finalized = true
			cb.sink.Abort()
		}
	}

	switch {
	case err == io.EOF:
		cb.finalize(true)
	case err != nil:
		cb.finalize(false)
	}

	return n, err
}

func (cb *cachingBody) Close() error {
	err := cb.body.Close()
	cb.finalize(false)
	return err
}

func (cb *cachingBody) finalize(commit bool) {
	if cb.finalized {
		return
	}
	cb.finalized = true

	if commit {
		_ = cb.sink.Commit()
		return
	}
	cb.sink.Abort()
}

// cachedBody serves an entry's bytes. Closing it is a no-op since no
// connection backs it.
type cachedBody struct {
	io.Reader
}

func (cachedBody) Close() error { return nil }
