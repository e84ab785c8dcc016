// Package route models the path an exchange takes to its origin
// server, including any proxy standing in front of it.
package route

import (
	"net"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// ProxyKind tells how a proxy relays traffic.
type ProxyKind uint8

const (
	// ProxyDirect means no proxy at all. It is the zero value so a
	// zero Proxy reads as a direct connection.
	ProxyDirect ProxyKind = iota
	// ProxyHTTP relays HTTP requests, tunneling with CONNECT when the
	// origin scheme requires it.
	ProxyHTTP
	// ProxySOCKS relays raw streams through a SOCKS5 server.
	ProxySOCKS
)

func (k ProxyKind) String() string {
	switch k {
	case ProxyDirect:
		return "direct"
	case ProxyHTTP:
		return "http"
	case ProxySOCKS:
		return "socks"
	}
	return "unknown"
}

// Proxy identifies one proxy server. The zero value means direct.
type Proxy struct {
	Kind ProxyKind
	Host string
	Port uint16
}

// Addr gives the proxy's host:port dial target.
func (p Proxy) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(int(p.Port)))
}

// Route is everything needed to open (and later reuse) a connection:
// the origin endpoint, the proxy in front of it, and whether the
// proxy must tunnel. Routes are comparable and key the connection
// pool.
type Route struct {
	Scheme string
	Host   string
	Port   uint16

	Proxy Proxy
	// Tunnel is set when an HTTP proxy must CONNECT through to the
	// origin instead of relaying plain requests.
	Tunnel bool
}

// New builds the route for reaching u through p.
func New(u *url.URL, p Proxy) (Route, error) {
	port, err := Port(u)
	if err != nil {
		return Route{}, err
	}

	return Route{
		Scheme: u.Scheme,
		Host:   u.Hostname(),
		Port:   port,
		Proxy:  p,
		Tunnel: p.Kind == ProxyHTTP && u.Scheme == "https",
	}, nil
}

// Addr gives the origin's host:port.
func (r Route) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(int(r.Port)))
}

// DialAddr gives the TCP endpoint to actually connect to: the proxy
// when one is set, the origin otherwise.
func (r Route) DialAddr() string {
	if r.Proxy.Kind != ProxyDirect {
		return r.Proxy.Addr()
	}
	return r.Addr()
}

func (r Route) String() string {
	s := r.Scheme + "://" + r.Addr()
	if r.Proxy.Kind != ProxyDirect {
		s += " via " + r.Proxy.Kind.String() + " proxy " + r.Proxy.Addr()
	}
	return s
}

// DefaultPort reports the well-known port for a scheme.
func DefaultPort(scheme string) (uint16, bool) {
	switch scheme {
	case "http":
		return 80, true
	case "https":
		return 443, true
	}
	return 0, false
}

// Port resolves u's effective port, falling back to the scheme
// default when the URL does not carry one.
func Port(u *url.URL) (uint16, error) {
	if s := u.Port(); s != "" {
		n, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return 0, errors.Wrapf(err, "parsing port %q", s)
		}
		return uint16(n), nil
	}

	port, ok := DefaultPort(u.Scheme)
	if !ok {
		return 0, errors.Errorf("no default port for scheme %q", u.Scheme)
	}
	return port, nil
}
