// Package darc implements the access rights control of the contracts.
//
// A permission is stored in the state under the identifier of the credential.
// It holds, for each rule, the groups of identities that are allowed to use
// it.
package darc

import (
	"encoding/json"

	"go.ezyvote.org/ezyvote/core/access"
	"go.ezyvote.org/ezyvote/core/store"
	"go.ezyvote.org/ezyvote/core/store/prefixed"
	"golang.org/x/xerrors"
)

// StorePrefix is the namespace of the permissions in the state.
const StorePrefix = "DARC"

// Permission is the rule set stored for one credential identifier.
type Permission struct {
	Rules map[string]*Expression `json:"rules"`
}

// NewPermission returns an empty permission.
func NewPermission() *Permission {
	return &Permission{
		Rules: make(map[string]*Expression),
	}
}

// Evolve grants, or revokes, the access of the group to the rule.
func (perm *Permission) Evolve(rule string, grant bool, group IdentitySet) {
	expr, found := perm.Rules[rule]
	if !found {
		if !grant {
			return
		}

		expr = NewExpression()
		perm.Rules[rule] = expr
	}

	expr.Evolve(grant, group)

	if len(expr.Matches) == 0 {
		delete(perm.Rules, rule)
	}
}

// Match returns nil if the group is allowed to use the rule.
func (perm *Permission) Match(rule string, group IdentitySet) error {
	expr, found := perm.Rules[rule]
	if !found {
		return xerrors.Errorf("rule '%s' not found", rule)
	}

	err := expr.Match(group)
	if err != nil {
		return xerrors.Errorf("rule '%s': %v", rule, err)
	}

	return nil
}

// Service is an implementation of an access service that will allow one to
// store and verify access for a group of identities.
//
// - implements access.Service
type Service struct{}

// NewService creates a new service.
func NewService() Service {
	return Service{}
}

// Match implements access.Service. It returns nil if the group of identities
// have access to the given credentials, otherwise a meaningful error on the
// reason it does not have access.
func (srvc Service) Match(s store.Readable, creds access.Credential, idents ...access.Identity) error {
	group, err := NewIdentitySet(idents...)
	if err != nil {
		return xerrors.Errorf("invalid identities: %v", err)
	}

	perm, err := srvc.load(prefixed.NewReadable(StorePrefix, s), creds)
	if err != nil {
		return err
	}

	if perm == nil {
		return xerrors.Errorf("permission %#x not found", creds.GetID())
	}

	err = perm.Match(creds.GetRule(), group)
	if err != nil {
		return xerrors.Errorf("permission: %v", err)
	}

	return nil
}

// Grant implements access.Service. It updates or create the credentials and
// grant the access to the group of identities.
func (srvc Service) Grant(s store.Snapshot, creds access.Credential, idents ...access.Identity) error {
	group, err := NewIdentitySet(idents...)
	if err != nil {
		return xerrors.Errorf("invalid identities: %v", err)
	}

	snap := prefixed.NewSnapshot(StorePrefix, s)

	perm, err := srvc.load(snap, creds)
	if err != nil {
		return err
	}

	if perm == nil {
		perm = NewPermission()
	}

	perm.Evolve(creds.GetRule(), true, group)

	value, err := json.Marshal(perm)
	if err != nil {
		return xerrors.Errorf("failed to marshal permission: %v", err)
	}

	err = snap.Set(creds.GetID(), value)
	if err != nil {
		return xerrors.Errorf("failed to store permission: %v", err)
	}

	return nil
}

func (srvc Service) load(r store.Readable, creds access.Credential) (*Permission, error) {
	value, err := r.Get(creds.GetID())
	if err != nil {
		return nil, xerrors.Errorf("failed to read permission: %v", err)
	}

	if value == nil {
		return nil, nil
	}

	perm := NewPermission()

	err = json.Unmarshal(value, perm)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal permission: %v", err)
	}

	return perm, nil
}
