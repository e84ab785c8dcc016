// Package cookie lets the exchange engine delegate cookie handling
// to the application.
package cookie

import (
	"net/url"
	"sort"
	"strings"
	"sync"
)

// Handler supplies cookies for outgoing requests and receives them
// from responses. The engine calls Cookies before sending (the pairs
// are joined into one Cookie header) and SetCookies with every
// Set-Cookie value a response carried.
type Handler interface {
	Cookies(u *url.URL) []string
	SetCookies(u *url.URL, setCookies []string)
}

// Jar is a minimal in-memory Handler: name=value pairs kept per
// host, last write wins. Cookie attributes are dropped and nothing
// expires or persists.
type Jar struct {
	mu    sync.Mutex
	hosts map[string]map[string]string
}

var _ Handler = (*Jar)(nil)

func NewJar() *Jar {
	return &Jar{hosts: make(map[string]map[string]string)}
}

// Cookies returns the host's name=value pairs, sorted by name.
func (j *Jar) Cookies(u *url.URL) []string {
	j.mu.Lock()
	defer j.mu.Unlock()

	byName := j.hosts[hostKey(u)]
	if len(byName) == 0 {
		return nil
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+byName[name])
	}
	return pairs
}

func (j *Jar) SetCookies(u *url.URL, setCookies []string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	key := hostKey(u)
	for _, sc := range setCookies {
		// Everything after the first ; is attributes.
		pair, _, _ := strings.Cut(sc, ";")

		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		if j.hosts[key] == nil {
			j.hosts[key] = make(map[string]string)
		}
		j.hosts[key][name] = strings.TrimSpace(value)
	}
}

func hostKey(u *url.URL) string {
	return strings.ToLower(u.Hostname())
}
