// Package pool keeps idle connections around for reuse, keyed by the
// route they were opened across.
package pool

import (
	"sync"
	"time"

	"httpwire/route"
	"httpwire/transport"

	"github.com/benbjohnson/clock"
)

const (
	DefaultMaxIdlePerRoute = 5
	DefaultIdleTimeout     = 5 * time.Minute
)

type Options struct {
	// MaxIdlePerRoute caps the idle connections kept per route.
	// Zero means [DefaultMaxIdlePerRoute].
	MaxIdlePerRoute uint

	// IdleTimeout is how long an idle connection stays usable.
	// Zero means [DefaultIdleTimeout].
	IdleTimeout time.Duration
}

type idleConn struct {
	conn   *transport.Conn
	idleAt time.Time
}

// Pool holds idle connections. There are no background reapers;
// expired connections are discarded when they are next touched.
type Pool struct {
	clk  clock.Clock
	opts Options

	mu   sync.Mutex
	idle map[route.Route][]idleConn
}

func New(clk clock.Clock, opts Options) *Pool {
	if clk == nil {
		clk = clock.New()
	}
	if opts.MaxIdlePerRoute == 0 {
		opts.MaxIdlePerRoute = DefaultMaxIdlePerRoute
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}

	return &Pool{
		clk:  clk,
		opts: opts,
		idle: make(map[route.Route][]idleConn),
	}
}

// Get pops the most recently parked connection for rt, discarding
// expired ones on the way. It returns nil when nothing usable is
// left.
func (p *Pool) Get(rt route.Route) *transport.Conn {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns := p.idle[rt]
	for len(conns) > 0 {
		last := len(conns) - 1
		ic := conns[last]
		conns = conns[:last]

		if p.expired(ic) {
			_ = ic.conn.Close()
			continue
		}

		p.stash(rt, conns)
		return ic.conn
	}

	p.stash(rt, conns)
	return nil
}

// Put parks conn for reuse. When the route's idle slots are full the
// connection is closed instead, and Put reports false.
func (p *Pool) Put(conn *transport.Conn) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	rt := conn.Route()
	conns := p.idle[rt]
	if uint(len(conns)) >= p.opts.MaxIdlePerRoute {
		_ = conn.Close()
		return false
	}

	p.idle[rt] = append(conns, idleConn{conn: conn, idleAt: p.clk.Now()})
	return true
}

// CloseIdle closes and drops every parked connection.
func (p *Pool) CloseIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for rt, conns := range p.idle {
		for _, ic := range conns {
			_ = ic.conn.Close()
		}
		delete(p.idle, rt)
	}
}

func (p *Pool) expired(ic idleConn) bool {
	return p.clk.Since(ic.idleAt) >= p.opts.IdleTimeout
}

func (p *Pool) stash(rt route.Route, conns []idleConn) {
	if len(conns) == 0 {
		delete(p.idle, rt)
		return
	}
	p.idle[rt] = conns
}
