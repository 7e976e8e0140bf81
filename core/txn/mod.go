// Package txn defines the abstraction of transactions.
//
// A transaction is the input of a contract. It is uniquely identifiable by its
// digest, and the nonce is the sequence number of the identity that created
// it, so that a transaction cannot be replayed.
//
// The manager helps to create transactions as the nonce needs to be correct
// for the transaction to be accepted.
package txn

import (
	"io"

	"go.ezyvote.org/ezyvote/core/access"
)

// Transaction is what triggers a contract execution.
type Transaction interface {
	// GetID returns the unique identifier for the transaction.
	GetID() []byte

	// GetNonce returns the nonce of the transaction which corresponds to the
	// sequence number of a unique identity.
	GetNonce() uint64

	// GetIdentity returns the identity that created the transaction.
	GetIdentity() access.Identity

	// GetArg is a getter for the arguments of the transaction.
	GetArg(key string) []byte
}

// Fingerprinter is implemented by the transactions that can write a
// deterministic binary representation of themselves.
type Fingerprinter interface {
	Fingerprint(w io.Writer) error
}

// Arg is a generic argument that can be stored in a transaction.
type Arg struct {
	Key   string
	Value []byte
}

// Manager is a manager to create transactions. It keeps track of the nonce of
// its identity.
type Manager interface {
	Make(args ...Arg) (Transaction, error)

	Sync() error
}
