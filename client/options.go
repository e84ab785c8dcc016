package client

import (
	"crypto/tls"
	"time"

	"httpwire/auth"
	"httpwire/cachestore"
	"httpwire/cookie"
	"httpwire/header"
	"httpwire/route"
	"httpwire/transfer"
	"httpwire/wire"
)

// DefaultUserAgent is sent when neither the prototype header nor the
// request carries a User-Agent field.
const DefaultUserAgent = "httpwire/1.0"

// DefaultBufferThreshold caps how much of a buffered request body is
// sent with a Content-Length header. Larger bodies go out chunked.
const DefaultBufferThreshold uint = 16 << 10

type Options struct {
	Header  HeaderOptions
	Body    BodyOptions
	Conn    ConnOptions
	Timeout TimeoutOptions
	Receive ReceiveOptions

	// Proxy routes every exchange through this proxy. It takes
	// precedence over ProxySelector.
	Proxy *route.Proxy

	// ProxySelector supplies proxy candidates per target URL.
	// Nil means direct connections only.
	ProxySelector route.Selector

	// Cache serves stored responses and admits new ones.
	// Nil disables caching.
	Cache cachestore.Store

	// Cookies attaches stored cookies to requests and records
	// Set-Cookie fields from responses. Nil disables cookie handling.
	Cookies cookie.Handler

	// Authenticator provides credentials for 401/407 challenges.
	// Nil means challenges are returned to the caller as-is.
	Authenticator auth.Authenticator

	// DisableRedirects returns 3xx responses to the caller instead of
	// following them.
	DisableRedirects bool
}

type HeaderOptions struct {
	// Prototype holds fields attached to every request unless the
	// request supplies the same field itself. The client clones it per
	// exchange; callers must not mutate it after handing it over.
	Prototype *header.Header

	// UserAgent overrides DefaultUserAgent.
	UserAgent string
}

type BodyOptions struct {
	// BufferThreshold bounds the buffered bodies that are sent with a
	// Content-Length header. Zero means DefaultBufferThreshold.
	BufferThreshold uint

	// ChunkSize for chunked request bodies.
	// Zero means transfer.DefaultChunkSize.
	ChunkSize uint
}

type ConnOptions struct {
	ReadBufferSize  uint
	WriteBufferSize uint

	// MaxIdlePerRoute caps idle connections kept per route.
	// Zero means pool.DefaultMaxIdlePerRoute.
	MaxIdlePerRoute uint

	// TLS configures handshakes on https routes when the client builds
	// its own dialer. Ignored when a dialer is passed to New.
	TLS *tls.Config
}

type TimeoutOptions struct {
	// Connect bounds dialing a single candidate route.
	// Zero means no limit.
	Connect time.Duration

	// Read bounds each read on an exchanged connection.
	// Zero means no limit.
	Read time.Duration

	// Idle bounds how long a pooled connection may sit unused.
	// Zero means pool.DefaultIdleTimeout.
	Idle time.Duration
}

type ReceiveOptions struct {
	// Head guards status line and header field reads.
	Head wire.ReadOptions
}

func (o BodyOptions) bufferThreshold() uint {
	if o.BufferThreshold == 0 {
		return DefaultBufferThreshold
	}
	return o.BufferThreshold
}

func (o BodyOptions) chunkSize() int {
	if o.ChunkSize == 0 {
		return transfer.DefaultChunkSize
	}
	return int(o.ChunkSize)
}

func (o HeaderOptions) userAgent() string {
	if o.UserAgent == "" {
		return DefaultUserAgent
	}
	return o.UserAgent
}
