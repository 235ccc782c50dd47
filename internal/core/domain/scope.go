package domain

import (
	"sort"
	"strings"
)

// TokenScope is an immutable set of permission scope names requested when a
// token is minted. It is folded into the token request and never persisted.
type TokenScope struct {
	names []string
}

// NewTokenScope creates a scope set. Blank and duplicate names are dropped.
func NewTokenScope(names ...string) TokenScope {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		set[n] = struct{}{}
	}
	return fromSet(set)
}

func fromSet(set map[string]struct{}) TokenScope {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return TokenScope{names: out}
}

func (s TokenScope) set() map[string]struct{} {
	m := make(map[string]struct{}, len(s.names))
	for _, n := range s.names {
		m[n] = struct{}{}
	}
	return m
}

// Names returns the scope names in sorted order.
func (s TokenScope) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// IsEmpty returns true when no scope is requested.
func (s TokenScope) IsEmpty() bool {
	return len(s.names) == 0
}

// Contains reports whether name is part of the set.
func (s TokenScope) Contains(name string) bool {
	i := sort.SearchStrings(s.names, name)
	return i < len(s.names) && s.names[i] == name
}

// Union returns the scopes in either set.
func (s TokenScope) Union(other TokenScope) TokenScope {
	m := s.set()
	for _, n := range other.names {
		m[n] = struct{}{}
	}
	return fromSet(m)
}

// Intersect returns the scopes in both sets.
func (s TokenScope) Intersect(other TokenScope) TokenScope {
	m := make(map[string]struct{})
	for _, n := range s.names {
		if other.Contains(n) {
			m[n] = struct{}{}
		}
	}
	return fromSet(m)
}

// Except returns the scopes in s that are not in other.
func (s TokenScope) Except(other TokenScope) TokenScope {
	m := make(map[string]struct{})
	for _, n := range s.names {
		if !other.Contains(n) {
			m[n] = struct{}{}
		}
	}
	return fromSet(m)
}

// Equal reports whether both sets hold the same names.
func (s TokenScope) Equal(other TokenScope) bool {
	return s.Join(" ") == other.Join(" ")
}

// Join renders the scopes separated by sep, in the form providers expect.
func (s TokenScope) Join(sep string) string {
	return strings.Join(s.names, sep)
}

// String renders the scopes space separated.
func (s TokenScope) String() string {
	return s.Join(" ")
}
