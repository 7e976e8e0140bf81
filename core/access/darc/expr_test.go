package darc

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.ezyvote.org/ezyvote/internal/testing/fake"
)

func TestNewIdentitySet(t *testing.T) {
	set, err := NewIdentitySet(fake.NewIdentity("0xB"), fake.NewIdentity("0xa"), fake.NewIdentity("0xb"))
	require.NoError(t, err)
	require.Equal(t, IdentitySet{"0xa", "0xb"}, set)

	_, err = NewIdentitySet(nil)
	require.EqualError(t, err, "identity is missing")

	_, err = NewIdentitySet(fake.NewBadIdentity())
	require.EqualError(t, err, fake.Err("failed to marshal identity"))
}

func TestIdentitySet_Equal(t *testing.T) {
	set := IdentitySet{"a", "b"}

	require.True(t, set.Equal(set))
	require.True(t, set.Equal(IdentitySet{"b", "a"}))
	require.False(t, set.Equal(IdentitySet{"a"}))
	require.False(t, set.Equal(IdentitySet{"a", "c"}))
}

func TestExpression_Evolve(t *testing.T) {
	expr := NewExpression()

	expr.Evolve(true, IdentitySet{})
	require.Len(t, expr.Matches, 0)

	expr.Evolve(true, IdentitySet{"a"})
	expr.Evolve(true, IdentitySet{"a"})
	expr.Evolve(true, IdentitySet{"a", "b"})
	require.Len(t, expr.Matches, 2)

	expr.Evolve(false, IdentitySet{"a", "b"})
	require.Len(t, expr.Matches, 1)

	expr.Evolve(false, IdentitySet{"c"})
	require.Len(t, expr.Matches, 1)
}

func TestExpression_Match(t *testing.T) {
	expr := NewExpression(IdentitySet{"a"}, IdentitySet{"b", "c"})

	require.NoError(t, expr.Match(IdentitySet{"a"}))
	require.NoError(t, expr.Match(IdentitySet{"c", "b"}))

	err := expr.Match(IdentitySet{"b"})
	require.EqualError(t, err, "unauthorized: [b]")
}
