package cachestore

import (
	"bytes"
	"net/url"
	"sync"
	"time"

	"httpwire/header"
	"httpwire/wire"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// DefaultMaxBytes is the memory store's default body budget.
const DefaultMaxBytes = 1 << 20

type MemoryOptions struct {
	// MaxBytes bounds the total body bytes held. Zero means
	// [DefaultMaxBytes].
	MaxBytes uint64

	// MaxAge makes entries older than this expire. Zero means no
	// age limit.
	MaxAge time.Duration
}

// Memory is a byte-budgeted in-memory store. It caches GET responses
// only, keyed by exact URI, and evicts oldest-first when the budget
// runs out. Expired entries are dropped when next looked up.
type Memory struct {
	clk  clock.Clock
	opts MemoryOptions

	mu      sync.Mutex
	entries map[string]*memEntry
	order   []string // insertion order, oldest first
	used    uint64
}

var _ Store = (*Memory)(nil)

type memEntry struct {
	entry    Entry
	storedAt time.Time
	size     uint64
}

func NewMemory(clk clock.Clock, opts MemoryOptions) *Memory {
	if clk == nil {
		clk = clock.New()
	}
	if opts.MaxBytes == 0 {
		opts.MaxBytes = DefaultMaxBytes
	}

	return &Memory{
		clk:     clk,
		opts:    opts,
		entries: make(map[string]*memEntry),
	}
}

func (m *Memory) Get(u *url.URL, method string, _ *header.Header) *Entry {
	if method != "GET" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := cacheKey(u)
	me, ok := m.entries[key]
	if !ok {
		return nil
	}

	if m.opts.MaxAge > 0 && m.clk.Since(me.storedAt) >= m.opts.MaxAge {
		m.removeLocked(key)
		return nil
	}

	// Hand out a copy so callers cannot mutate the cached header.
	entry := me.entry
	entry.Header = me.entry.Header.Clone()
	return &entry
}

func (m *Memory) Put(u *url.URL, method string, status wire.StatusLine, respHeader *header.Header) Sink {
	if method != "GET" {
		return nil
	}

	return &memorySink{
		store:  m,
		key:    cacheKey(u),
		status: status,
		header: respHeader.Clone(),
		buf:    bytes.NewBuffer(nil),
	}
}

func (m *Memory) insert(key string, entry Entry) error {
	size := uint64(len(entry.Body))
	if size > m.opts.MaxBytes {
		return errors.Errorf("entry of %d bytes exceeds cache budget", size)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(key)

	for m.used+size > m.opts.MaxBytes && len(m.order) > 0 {
		m.removeLocked(m.order[0])
	}

	m.entries[key] = &memEntry{
		entry:    entry,
		storedAt: m.clk.Now(),
		size:     size,
	}
	m.order = append(m.order, key)
	m.used += size

	return nil
}

func (m *Memory) removeLocked(key string) {
	me, ok := m.entries[key]
	if !ok {
		return
	}

	delete(m.entries, key)
	m.used -= me.size

	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// cacheKey is the exact request URI, minus the fragment a request
// never carries on the wire.
func cacheKey(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	return c.String()
}

type memorySink struct {
	store  *Memory
	key    string
	status wire.StatusLine
	header *header.Header
	buf    *bytes.Buffer
	done   bool
}

var _ Sink = (*memorySink)(nil)

func (s *memorySink) Write(p []byte) (int, error) {
	if s.done {
		return 0, errors.New("write on finalized cache entry")
	}

	return s.buf.Write(p)
}

func (s *memorySink) Commit() error {
	if s.done {
		return errors.New("cache entry already finalized")
	}
	s.done = true

	return s.store.insert(s.key, Entry{
		Status: s.status,
		Header: s.header,
		Body:   s.buf.Bytes(),
	})
}

func (s *memorySink) Abort() {
	s.done = true
}
