package pool

import (
	"io"
	"net"
	"testing"
	"time"

	"httpwire/route"
	"httpwire/transport"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"
)

type stubRaw struct {
	closes int
}

var _ transport.RawConn = (*stubRaw)(nil)

func (s *stubRaw) Read([]byte) (int, error)        { return 0, io.EOF }
func (s *stubRaw) Write(p []byte) (int, error)     { return len(p), nil }
func (s *stubRaw) SetReadDeadline(time.Time) error { return nil }
func (s *stubRaw) RemoteAddr() net.Addr            { return nil }

func (s *stubRaw) Close() error {
	s.closes++
	return nil
}

type PoolTestSuite struct {
	suite.Suite

	clk  *clock.Mock
	pool *Pool
}

func TestPoolTestSuite(t *testing.T) {
	suite.Run(t, new(PoolTestSuite))
}

func (s *PoolTestSuite) SetupTest() {
	s.clk = clock.NewMock()
	s.pool = New(s.clk, Options{MaxIdlePerRoute: 2, IdleTimeout: time.Minute})
}

func (s *PoolTestSuite) newConn(rt route.Route) (*transport.Conn, *stubRaw) {
	raw := &stubRaw{}
	return transport.NewConn(raw, rt, s.clk, transport.ConnOptions{}), raw
}

func (s *PoolTestSuite) TestGetEmpty() {
	rt := route.Route{Scheme: "http", Host: "example.com", Port: 80}
	s.Nil(s.pool.Get(rt))
}

func (s *PoolTestSuite) TestPutThenGet() {
	rt := route.Route{Scheme: "http", Host: "example.com", Port: 80}
	conn, _ := s.newConn(rt)

	s.True(s.pool.Put(conn))
	s.Same(conn, s.pool.Get(rt))
	s.Nil(s.pool.Get(rt))
}

func (s *PoolTestSuite) TestGetMostRecentFirst() {
	rt := route.Route{Scheme: "http", Host: "example.com", Port: 80}
	older, _ := s.newConn(rt)
	newer, _ := s.newConn(rt)

	s.True(s.pool.Put(older))
	s.clk.Add(time.Second)
	s.True(s.pool.Put(newer))

	s.Same(newer, s.pool.Get(rt))
	s.Same(older, s.pool.Get(rt))
}

func (s *PoolTestSuite) TestRouteKeying() {
	rtA := route.Route{Scheme: "http", Host: "a.example.com", Port: 80}
	rtB := route.Route{Scheme: "http", Host: "b.example.com", Port: 80}
	conn, _ := s.newConn(rtA)

	s.True(s.pool.Put(conn))
	s.Nil(s.pool.Get(rtB))
	s.Same(conn, s.pool.Get(rtA))
}

func (s *PoolTestSuite) TestIdleExpiry() {
	rt := route.Route{Scheme: "http", Host: "example.com", Port: 80}
	conn, raw := s.newConn(rt)

	s.True(s.pool.Put(conn))
	s.clk.Add(time.Minute)

	s.Nil(s.pool.Get(rt))
	s.Equal(1, raw.closes)
}

func (s *PoolTestSuite) TestPutOverLimit() {
	rt := route.Route{Scheme: "http", Host: "example.com", Port: 80}

	first, _ := s.newConn(rt)
	second, _ := s.newConn(rt)
	third, raw := s.newConn(rt)

	s.True(s.pool.Put(first))
	s.True(s.pool.Put(second))

	s.False(s.pool.Put(third))
	s.Equal(1, raw.closes)
}

func (s *PoolTestSuite) TestCloseIdle() {
	rtA := route.Route{Scheme: "http", Host: "a.example.com", Port: 80}
	rtB := route.Route{Scheme: "https", Host: "b.example.com", Port: 443}

	connA, rawA := s.newConn(rtA)
	connB, rawB := s.newConn(rtB)

	s.True(s.pool.Put(connA))
	s.True(s.pool.Put(connB))

	s.pool.CloseIdle()

	s.Equal(1, rawA.closes)
	s.Equal(1, rawB.closes)
	s.Nil(s.pool.Get(rtA))
	s.Nil(s.pool.Get(rtB))
}
