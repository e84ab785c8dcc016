// Package httpwire is an HTTP/1.x client built around explicit
// request-response exchanges: ordered headers, pluggable routing and
// proxies, pooled connections, and a response cache bridge.
package httpwire

import (
	"httpwire/auth"
	"httpwire/cachestore"
	"httpwire/client"
	"httpwire/cookie"
	"httpwire/header"
	"httpwire/route"
	"httpwire/transport"
)

type Client = client.Client
type Request = client.Request
type Response = client.Response
type Options = client.Options

type Header = header.Header

type Proxy = route.Proxy
type Route = route.Route
type ProxySelector = route.Selector

const (
	ProxyDirect = route.ProxyDirect
	ProxyHTTP   = route.ProxyHTTP
	ProxySOCKS  = route.ProxySOCKS
)

type Authenticator = auth.Authenticator
type Credentials = auth.Credentials

type CookieHandler = cookie.Handler
type CookieJar = cookie.Jar

type CacheStore = cachestore.Store
type CacheSink = cachestore.Sink
type CacheEntry = cachestore.Entry

type Dialer = transport.Dialer

// New builds a client with the default network dialer, a discarding
// logger and the wall clock. Use client.New directly for finer
// control over those collaborators.
func New(opts Options) *Client {
	return client.New(nil, nil, nil, opts)
}

// NewHeader returns an empty ordered header.
func NewHeader() *Header {
	return header.New()
}

// NewCookieJar returns an in-memory cookie handler.
func NewCookieJar() *CookieJar {
	return cookie.NewJar()
}
