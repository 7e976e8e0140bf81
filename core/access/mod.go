// Package access defines the interfaces for the access rights control of the
// contracts.
//
// An identity is the authenticated author of a transaction, and a credential
// names the rule a contract command requires. The access service tells if a
// group of identities is allowed to use a credential.
package access

import (
	"encoding"
	"strings"

	"go.ezyvote.org/ezyvote/core/store"
)

// Identity is an abstraction to uniquely identify the author of a
// transaction.
type Identity interface {
	encoding.TextMarshaler

	// Equal returns true when the other object is the same identity.
	Equal(other interface{}) bool
}

// Credential is an abstraction of an entity that allows one to access a
// specific rule.
type Credential interface {
	// GetID returns the key of the rule set in the storage.
	GetID() []byte

	// GetRule returns the rule inside the set that must be matched.
	GetRule() string
}

// Service is an access control service that verifies, and grants, accesses
// over the state of the contracts.
type Service interface {
	// Match returns nil if the group of identities has access to the given
	// credential, otherwise an error explaining why it does not.
	Match(store store.Readable, creds Credential, idents ...Identity) error

	// Grant updates the rule set of the credential so that the identities are
	// allowed to use it.
	Grant(store store.Snapshot, creds Credential, idents ...Identity) error
}

// Compile returns a compacted rule from the string segments.
func Compile(segments ...string) string {
	return strings.Join(segments, ":")
}
