package route

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Selector supplies proxies for a target URL, in preference order.
// A Direct entry in the returned list means "try connecting directly
// at this position".
type Selector interface {
	Select(u *url.URL) []Proxy

	// ConnectFailed tells the selector one of its proxies could not
	// be reached, so it can demote or drop it. It is called at most
	// once per failed candidate.
	ConnectFailed(u *url.URL, p Proxy, err error)
}

// SelectorURL strips the parts of u a selector must not see:
// userinfo, query, and fragment.
func SelectorURL(u *url.URL) *url.URL {
	c := *u
	c.User = nil
	c.RawQuery = ""
	c.ForceQuery = false
	c.Fragment = ""
	c.RawFragment = ""
	return &c
}

// Candidates lists the routes to try for u, in order.
//
// An explicit proxy wins outright and is the only candidate; its
// connect failures are the caller's to surface. With a selector, each
// returned proxy becomes a candidate and a direct route is appended
// as the fallback once the list is exhausted. With neither, the
// single candidate is direct.
func Candidates(u *url.URL, explicit *Proxy, sel Selector) ([]Route, error) {
	if explicit != nil {
		rt, err := New(u, *explicit)
		if err != nil {
			return nil, err
		}
		return []Route{rt}, nil
	}

	if sel == nil {
		rt, err := New(u, Proxy{})
		if err != nil {
			return nil, err
		}
		return []Route{rt}, nil
	}

	proxies := sel.Select(SelectorURL(u))

	routes := make([]Route, 0, len(proxies)+1)
	for _, p := range proxies {
		rt, err := New(u, p)
		if err != nil {
			return nil, err
		}
		routes = append(routes, rt)
	}

	direct, err := New(u, Proxy{})
	if err != nil {
		return nil, err
	}
	return append(routes, direct), nil
}

// ParseUseProxy interprets the Location of a 305 (Use Proxy) response
// as an HTTP proxy address: host[:port], optionally with a scheme
// prefix. The port defaults to 80.
func ParseUseProxy(location string) (Proxy, error) {
	if !strings.Contains(location, "://") {
		location = "http://" + location
	}

	u, err := url.Parse(location)
	if err != nil || u.Hostname() == "" {
		return Proxy{}, errors.Errorf("unusable proxy location %q", location)
	}

	port := uint16(80)
	if s := u.Port(); s != "" {
		n, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return Proxy{}, errors.Wrapf(err, "parsing proxy port %q", s)
		}
		port = uint16(n)
	}

	return Proxy{Kind: ProxyHTTP, Host: u.Hostname(), Port: port}, nil
}
