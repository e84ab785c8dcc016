package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"
	"time"

	"httpwire/header"
	"httpwire/route"
	"httpwire/wire"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"golang.org/x/net/proxy"
)

// Dialer opens a connection across a route.
type Dialer interface {
	Dial(ctx context.Context, rt route.Route) (*Conn, error)
}

type NetDialerOptions struct {
	// ConnectTimeout bounds establishing the TCP connection.
	// Zero means no bound beyond the context's.
	ConnectTimeout time.Duration

	// TLS configures the client side of https connections.
	// Nil means library defaults; ServerName is filled from the
	// route when absent.
	TLS *tls.Config

	// ConnectHeader adds fields to proxy CONNECT requests,
	// typically Proxy-Authorization.
	ConnectHeader *header.Header

	// Conn configures the connections this dialer produces.
	Conn ConnOptions
}

// NetDialer reaches routes over the operating system's network:
// plain TCP, TLS for https origins, SOCKS5 proxies, and CONNECT
// tunnels through HTTP proxies. The CONNECT method never appears
// outside this tunnel handshake.
type NetDialer struct {
	clk  clock.Clock
	opts NetDialerOptions
}

var _ Dialer = (*NetDialer)(nil)

func NewNetDialer(clk clock.Clock, opts NetDialerOptions) *NetDialer {
	if clk == nil {
		clk = clock.New()
	}

	return &NetDialer{clk: clk, opts: opts}
}

func (d *NetDialer) Dial(ctx context.Context, rt route.Route) (*Conn, error) {
	raw, err := d.dialRaw(ctx, rt)
	if err != nil {
		return nil, err
	}

	if rt.Tunnel {
		if err := d.tunnel(ctx, raw, rt); err != nil {
			_ = raw.Close()
			return nil, err
		}
	}

	if rt.Scheme == "https" {
		tlsConn, err := d.handshakeTLS(ctx, raw, rt.Host)
		if err != nil {
			_ = raw.Close()
			return nil, err
		}
		raw = tlsConn
	}

	return NewConn(raw, rt, d.clk, d.opts.Conn), nil
}

func (d *NetDialer) dialRaw(ctx context.Context, rt route.Route) (net.Conn, error) {
	nd := &net.Dialer{Timeout: d.opts.ConnectTimeout}

	if rt.Proxy.Kind == route.ProxySOCKS {
		sd, err := proxy.SOCKS5("tcp", rt.Proxy.Addr(), nil, nd)
		if err != nil {
			return nil, errors.Wrap(err, "building socks dialer")
		}

		cd, ok := sd.(proxy.ContextDialer)
		if !ok {
			return nil, errors.New("socks dialer does not support context")
		}

		conn, err := cd.DialContext(ctx, "tcp", rt.Addr())
		if err != nil {
			return nil, errors.Wrapf(err, "dialing %s through socks proxy %s", rt.Addr(), rt.Proxy.Addr())
		}
		return conn, nil
	}

	conn, err := nd.DialContext(ctx, "tcp", rt.DialAddr())
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", rt.DialAddr())
	}
	return conn, nil
}

// tunnel asks the HTTP proxy on conn to open a raw stream to the
// route's origin. It runs before any TLS, on the plain proxy
// connection.
func (d *NetDialer) tunnel(ctx context.Context, conn net.Conn, rt route.Route) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
		defer func() { _ = conn.SetDeadline(time.Time{}) }()
	}

	h := d.opts.ConnectHeader.Clone()
	h.AddIfAbsent("Host", rt.Addr())

	bw := bufio.NewWriter(conn)
	rl := wire.RequestLine{Method: "CONNECT", Target: rt.Addr(), Version: wire.V11}
	if err := wire.WriteRequestHead(bw, rl, h); err != nil {
		return errors.Wrap(err, "writing CONNECT request")
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "writing CONNECT request")
	}

	// The proxy sends nothing after its response until we speak, so
	// a throwaway buffered reader cannot swallow origin bytes here.
	status, _, err := wire.ReadStatusHead(bufio.NewReader(conn), wire.ReadOptions{})
	if err != nil {
		return errors.Wrap(err, "reading CONNECT response")
	}

	if status.Code != 200 {
		return errors.Errorf("proxy refused tunnel: %d %s", status.Code, status.Reason)
	}

	return nil
}

func (d *NetDialer) handshakeTLS(ctx context.Context, conn net.Conn, host string) (net.Conn, error) {
	cfg := d.opts.TLS
	if cfg == nil {
		cfg = &tls.Config{}
	} else {
		cfg = cfg.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}

	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, errors.Wrap(err, "tls handshake")
	}

	return tlsConn, nil
}
