package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTokenScope_DedupesAndSorts(t *testing.T) {
	s := NewTokenScope("repo", "gist", "repo", " ", "")

	assert.Equal(t, []string{"gist", "repo"}, s.Names())
	assert.Equal(t, "gist repo", s.String())
	assert.False(t, s.IsEmpty())
	assert.True(t, NewTokenScope().IsEmpty())
}

func TestTokenScope_SetOperations(t *testing.T) {
	a := NewTokenScope("repo", "gist")
	b := NewTokenScope("gist", "user")

	assert.Equal(t, []string{"gist", "repo", "user"}, a.Union(b).Names())
	assert.Equal(t, []string{"gist"}, a.Intersect(b).Names())
	assert.Equal(t, []string{"repo"}, a.Except(b).Names())
	assert.True(t, a.Except(a).IsEmpty())
}

func TestTokenScope_Immutable(t *testing.T) {
	a := NewTokenScope("repo")
	names := a.Names()
	names[0] = "changed"

	assert.True(t, a.Contains("repo"))
	assert.False(t, a.Contains("changed"))
	_ = a.Union(NewTokenScope("gist"))
	assert.Equal(t, []string{"repo"}, a.Names())
}

func TestTokenScope_Equal(t *testing.T) {
	assert.True(t, NewTokenScope("a", "b").Equal(NewTokenScope("b", "a")))
	assert.False(t, NewTokenScope("a").Equal(NewTokenScope("a", "b")))
	assert.Equal(t, "a,b", NewTokenScope("b", "a").Join(","))
}
