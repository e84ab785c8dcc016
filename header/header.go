// Package header provides the ordered field collection shared by requests
// and responses.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5
package header

import "strings"

type field struct{ key, value string }

// Header is an ordered multimap of field lines. Insertion order is
// preserved so a message head can be reproduced on the wire exactly;
// name lookups are case-insensitive and return the last matching value,
// mirroring the way repeated fields override earlier ones when folded.
type Header struct {
	fields []field
}

func New() *Header {
	return &Header{}
}

// NewFromMap seeds a Header from a plain map. Entry order across keys
// follows Go map iteration and is therefore unspecified; use Add when
// the wire order matters.
func NewFromMap(initial map[string]string) *Header {
	h := New()
	for k, v := range initial {
		h.Add(k, v)
	}
	return h
}

// Set drops every entry for key and appends a single one.
func (h *Header) Set(key, value string) {
	h.Del(key)
	h.fields = append(h.fields, field{key: key, value: value})
}

// Add appends an entry without touching existing ones for the same key.
func (h *Header) Add(key, value string) {
	h.fields = append(h.fields, field{key: key, value: value})
}

// AddIfAbsent appends an entry only when no entry for key exists yet.
// It reports whether the entry was added.
func (h *Header) AddIfAbsent(key, value string) bool {
	if _, ok := h.Get(key); ok {
		return false
	}
	h.fields = append(h.fields, field{key: key, value: value})
	return true
}

// Get returns the value of the last entry matching key.
func (h *Header) Get(key string) (value string, ok bool) {
	for i := len(h.fields) - 1; i >= 0; i-- {
		if strings.EqualFold(h.fields[i].key, key) {
			return h.fields[i].value, true
		}
	}
	return "", false
}

// Values returns every value for key in insertion order.
func (h *Header) Values(key string) []string {
	var values []string
	for _, f := range h.fields {
		if strings.EqualFold(f.key, key) {
			values = append(values, f.value)
		}
	}
	return values
}

func (h *Header) Del(key string) {
	kept := h.fields[:0]
	for _, f := range h.fields {
		if !strings.EqualFold(f.key, key) {
			kept = append(kept, f)
		}
	}
	h.fields = kept
}

func (h *Header) Len() int { return len(h.fields) }

// Key returns the name of the i-th entry with its original spelling.
func (h *Header) Key(i int) string { return h.fields[i].key }

// Value returns the value of the i-th entry.
func (h *Header) Value(i int) string { return h.fields[i].value }

// Clone returns an independent copy. Mutating the clone never affects
// the original, which is what lets a shared prototype seed each request.
func (h *Header) Clone() *Header {
	if h == nil {
		return New()
	}
	clone := &Header{fields: make([]field, len(h.fields))}
	copy(clone.fields, h.fields)
	return clone
}

// Contains reports whether some entry for key has a value equal to want
// under ASCII case folding, honoring comma-separated value lists.
// Useful for connection option checks like "Connection: close".
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.1
func (h *Header) Contains(key, want string) bool {
	for _, v := range h.Values(key) {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), want) {
				return true
			}
		}
	}
	return false
}
