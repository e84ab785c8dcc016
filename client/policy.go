package client

import (
	"net/url"

	"httpwire/auth"
	"httpwire/header"
	"httpwire/route"
	"httpwire/wire"

	"github.com/pkg/errors"
)

// maxRedirects bounds redirect hops per exchange. Proxy switches
// demanded by 305 responses do not count toward it.
const maxRedirects = 4

// ErrTooManyRedirects reports a redirect chain past maxRedirects hops.
var ErrTooManyRedirects = errors.New("too many redirects")

// ErrNonReplayableBody reports a retry that would have to resend a
// request body whose stream is already consumed.
var ErrNonReplayableBody = errors.New("request body cannot be replayed")

// ErrUnexpectedProxyAuth reports a proxy authentication challenge on an
// exchange that uses no proxy.
var ErrUnexpectedProxyAuth = errors.New("proxy authentication requested without a proxy")

// verdict says what to do with a response. The zero value serves the
// response to the caller.
type verdict struct {
	retry bool

	// Mutations applied before the next attempt.
	redirectTo         *url.URL
	useProxy           *route.Proxy
	authorization      string
	proxyAuthorization string

	countRedirect bool
}

type policyInput struct {
	status wire.StatusLine
	header *header.Header

	u  *url.URL
	rt route.Route

	hasBody bool

	// Credential fields already attached to the failed attempt.
	authorization      string
	proxyAuthorization string

	disableRedirects bool
	authenticator    auth.Authenticator
}

// decide inspects a response head and chooses between serving it and
// retrying the exchange with an adjusted target, proxy or credentials.
func decide(in policyInput) (verdict, error) {
	switch in.status.Code {
	case 300, 301, 302, 303:
		return decideRedirect(in), nil
	case 305:
		return decideUseProxy(in), nil
	case 401:
		return decideAuth(in, false), nil
	case 407:
		if in.rt.Proxy.Kind == route.ProxyDirect {
			return verdict{}, ErrUnexpectedProxyAuth
		}
		return decideAuth(in, true), nil
	}

	return verdict{}, nil
}

// decideRedirect follows a Location header unless redirects are off,
// the request carries a body, or the target is unusable. In each of
// those cases the response is simply served.
func decideRedirect(in policyInput) verdict {
	if in.disableRedirects || in.hasBody {
		return verdict{}
	}

	location, ok := in.header.Get("Location")
	if !ok {
		return verdict{}
	}

	target, err := in.u.Parse(location)
	if err != nil {
		return verdict{}
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return verdict{}
	}

	return verdict{retry: true, redirectTo: target, countRedirect: true}
}

// decideUseProxy swaps the proxy a 305 demands and retries. The swap is
// free of the redirect budget. Retrying with the proxy already in use
// would loop, so that case serves the response instead.
func decideUseProxy(in policyInput) verdict {
	if in.disableRedirects {
		return verdict{}
	}

	location, ok := in.header.Get("Location")
	if !ok {
		return verdict{}
	}

	p, err := route.ParseUseProxy(location)
	if err != nil {
		return verdict{}
	}
	if p == in.rt.Proxy {
		return verdict{}
	}

	return verdict{retry: true, useProxy: &p}
}

// decideAuth answers a 401 or 407 challenge. Without an authenticator,
// a parseable challenge, or fresh credentials the response is served
// as-is so the caller sees the challenge.
func decideAuth(in policyInput, forProxy bool) verdict {
	if in.authenticator == nil {
		return verdict{}
	}

	challengeField := "WWW-Authenticate"
	current := in.authorization
	host, port := in.rt.Host, in.rt.Port
	if forProxy {
		challengeField = "Proxy-Authenticate"
		current = in.proxyAuthorization
		host, port = in.rt.Proxy.Host, in.rt.Proxy.Port
	}

	challenges := in.header.Values(challengeField)
	if len(challenges) == 0 {
		return verdict{}
	}

	// First challenge in wire order wins.
	ch, err := auth.ParseChallenge(challenges[0])
	if err != nil {
		return verdict{}
	}

	creds, ok := in.authenticator.RequestCredentials(host, port, ch.Scheme, ch.Realm)
	if !ok {
		return verdict{}
	}

	value := creds.Authorization(ch.Scheme)
	if value == current {
		// The peer already rejected these exact credentials.
		return verdict{}
	}

	v := verdict{retry: true}
	if forProxy {
		v.proxyAuthorization = value
	} else {
		v.authorization = value
	}
	return v
}
