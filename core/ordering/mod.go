// Package ordering defines the interface of the ordering service.
//
// The ordering service sequences the transactions and applies them one after
// the other to the state. Each transaction is committed entirely or not at
// all, and the height of the ledger is the number of committed transactions.
package ordering

import (
	"context"

	"go.ezyvote.org/ezyvote/core/access"
	"go.ezyvote.org/ezyvote/core/execution"
	"go.ezyvote.org/ezyvote/core/store"
	"go.ezyvote.org/ezyvote/core/txn"
)

// Event is published to the watchers after a transaction is committed.
type Event struct {
	// Index is the height of the ledger after the transaction.
	Index uint64

	// TransactionID is the identifier of the committed transaction.
	TransactionID []byte

	// Events are the notifications emitted by the contract.
	Events []execution.Event
}

// Service is the interface of an ordering service.
type Service interface {
	// Add executes the transaction and commits it when it is accepted. A
	// rejected transaction returns its result alongside an error wrapping the
	// reason.
	Add(ctx context.Context, tx txn.Transaction) (execution.Result, error)

	// View executes the read-only function on a consistent view of the state.
	View(fn func(store.Readable) error) error

	// GetNonce returns the nonce expected for the next transaction of the
	// identity.
	GetNonce(ident access.Identity) (uint64, error)

	// GetHeight returns the number of committed transactions.
	GetHeight() uint64

	// Watch returns a channel populated with the events of the committed
	// transactions. The channel is closed when the context is done.
	Watch(ctx context.Context) <-chan Event

	Close() error
}
