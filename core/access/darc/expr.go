package darc

import (
	"sort"
	"strings"

	"go.ezyvote.org/ezyvote/core/access"
	"golang.org/x/xerrors"
)

// IdentitySet is a set of identities, in their normalized textual form, that
// must act together to match a rule.
type IdentitySet []string

// NewIdentitySet creates a new identity set from the list of identities by
// removing duplicates.
func NewIdentitySet(idents ...access.Identity) (IdentitySet, error) {
	set := make(IdentitySet, 0, len(idents))

	for _, ident := range idents {
		if ident == nil {
			return nil, xerrors.New("identity is missing")
		}

		text, err := ident.MarshalText()
		if err != nil {
			return nil, xerrors.Errorf("failed to marshal identity: %v", err)
		}

		key := strings.ToLower(string(text))

		if !set.Contains(key) {
			set = append(set, key)
		}
	}

	sort.Strings(set)

	return set, nil
}

// Contains returns true if the identity exists in the set.
func (set IdentitySet) Contains(target string) bool {
	for _, ident := range set {
		if ident == target {
			return true
		}
	}

	return false
}

// Equal return true if both sets are the same.
func (set IdentitySet) Equal(o IdentitySet) bool {
	if len(set) != len(o) {
		return false
	}

	for _, ident := range set {
		if !o.Contains(ident) {
			return false
		}
	}

	return true
}

// Expression is the representation of the disjunctive normal form of the
// allowed groups of identities.
type Expression struct {
	Matches []IdentitySet `json:"matches"`
}

// NewExpression creates a new expression from the groups of identities.
func NewExpression(sets ...IdentitySet) *Expression {
	return &Expression{
		Matches: sets,
	}
}

// Evolve adds, or removes, the group in the list of authorized groups.
func (expr *Expression) Evolve(grant bool, group IdentitySet) {
	if len(group) == 0 {
		return
	}

	for i, match := range expr.Matches {
		if match.Equal(group) {
			if !grant {
				expr.Matches = append(expr.Matches[:i], expr.Matches[i+1:]...)
			}

			return
		}
	}

	if grant {
		expr.Matches = append(expr.Matches, group)
	}
}

// Match returns nil if the group is allowed, otherwise it returns the reason
// why it failed.
func (expr *Expression) Match(group IdentitySet) error {
	for _, match := range expr.Matches {
		if match.Equal(group) {
			return nil
		}
	}

	return xerrors.Errorf("unauthorized: %v", []string(group))
}
