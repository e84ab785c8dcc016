// Package cachestore defines the response cache contract the
// exchange engine talks to, and provides an in-memory store.
//
// The engine asks the store before connecting and offers responses
// after reading their head. A store is free to refuse anything; what
// it accepts is streamed in through a Sink as the caller consumes
// the body, and only becomes visible once committed.
package cachestore

import (
	"io"
	"net/url"

	"httpwire/header"
	"httpwire/wire"
)

// Entry is one cached response. It is written once and read many
// times; callers must not mutate it.
type Entry struct {
	Status wire.StatusLine
	Header *header.Header
	Body   []byte
}

// Sink collects the body of a response being cached. Exactly one of
// Commit or Abort ends it.
type Sink interface {
	io.Writer

	// Commit publishes the entry.
	Commit() error

	// Abort discards everything written so far.
	Abort()
}

// Store is a response cache.
type Store interface {
	// Get returns the cached response for a request, or nil on miss.
	Get(u *url.URL, method string, reqHeader *header.Header) *Entry

	// Put offers a response for caching. A nil Sink means the store
	// refuses it.
	Put(u *url.URL, method string, status wire.StatusLine, respHeader *header.Header) Sink
}
