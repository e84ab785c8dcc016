// Package auth covers the two halves of HTTP authentication the
// exchange engine needs: parsing a challenge out of a 401/407
// response and asking the application for credentials to answer it.
package auth

import (
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
)

type Credentials struct {
	Username string
	Password string
}

// Authorization renders the credentials as a request header value
// for the challenge scheme: the scheme followed by the base64 of
// "username:password". The engine applies this shape to any scheme
// the server offers.
func (c Credentials) Authorization(scheme string) string {
	token := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Password))
	return scheme + " " + token
}

// Authenticator supplies credentials for a challenge. Returning
// ok=false means none are available, and the challenge response is
// handed to the caller as-is.
type Authenticator interface {
	RequestCredentials(host string, port uint16, scheme, realm string) (Credentials, bool)
}

// Static answers every challenge with the same credentials.
type Static struct {
	Credentials Credentials
}

var _ Authenticator = Static{}

func (s Static) RequestCredentials(string, uint16, string, string) (Credentials, bool) {
	return s.Credentials, true
}

// Challenge is the part of a WWW-Authenticate or Proxy-Authenticate
// value the engine acts on.
type Challenge struct {
	Scheme string
	Realm  string
}

// ParseChallenge extracts the scheme and realm from a challenge
// value such as `Basic realm="protected"`. A missing realm is an
// empty string, not an error.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-11.3
func ParseChallenge(v string) (Challenge, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return Challenge{}, errors.New("empty challenge")
	}

	scheme, params, _ := strings.Cut(v, " ")
	ch := Challenge{Scheme: scheme}

	for _, part := range splitParams(params) {
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}

		if strings.EqualFold(strings.TrimSpace(name), "realm") {
			ch.Realm = unquote(strings.TrimSpace(value))
			break
		}
	}

	return ch, nil
}

// splitParams splits a parameter list on commas outside quotes.
func splitParams(s string) []string {
	var parts []string
	var b strings.Builder

	quoted := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			quoted = !quoted
			b.WriteByte(c)
		case c == ',' && !quoted:
			parts = append(parts, b.String())
			b.Reset()
		default:
			b.WriteByte(c)
		}
	}

	if b.Len() > 0 {
		parts = append(parts, b.String())
	}
	return parts
}

func unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	s = s[1 : len(s)-1]

	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
