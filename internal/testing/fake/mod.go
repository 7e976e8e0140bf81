// Package fake provides fake implementations for interfaces commonly used in
// the repository.
// The implementations offer configuration to return errors when it is needed by
// the unit test and it is also possible to record the call of functions of an
// object in some cases.
package fake

import (
	"fmt"
	"sync"

	"go.ezyvote.org/ezyvote/core/access"
	"go.ezyvote.org/ezyvote/core/store"
	"go.ezyvote.org/ezyvote/core/txn"
	"golang.org/x/xerrors"
)

var fakeErr = xerrors.New("fake error")

// GetError returns the fake error.
func GetError() error {
	return fakeErr
}

// Err returns the expected error message of a wrapped fake error.
func Err(msg string) string {
	return fmt.Sprintf("%s: %v", msg, fakeErr)
}

// Call is a tool to keep track of a function calls.
type Call struct {
	sync.Mutex
	calls [][]interface{}
}

// Get returns the nth call ith parameter.
func (c *Call) Get(n, i int) interface{} {
	c.Lock()
	defer c.Unlock()

	return c.calls[n][i]
}

// Len returns the number of calls.
func (c *Call) Len() int {
	c.Lock()
	defer c.Unlock()

	return len(c.calls)
}

// Add adds a call to the list.
func (c *Call) Add(args ...interface{}) {
	c.Lock()
	defer c.Unlock()

	c.calls = append(c.calls, args)
}

// Identity is a fake implementation of an access identity. The address is
// returned as is when marshaled.
//
// - implements access.Identity
type Identity struct {
	Address string
	err     error
}

// NewIdentity returns a fake identity with the given address.
func NewIdentity(addr string) Identity {
	return Identity{Address: addr}
}

// NewBadIdentity returns an identity that fails to marshal.
func NewBadIdentity() Identity {
	return Identity{err: fakeErr}
}

// MarshalText implements encoding.TextMarshaler.
func (i Identity) MarshalText() ([]byte, error) {
	return []byte(i.Address), i.err
}

// Equal implements access.Identity.
func (i Identity) Equal(other interface{}) bool {
	o, ok := other.(Identity)
	return ok && o.Address == i.Address
}

// String implements fmt.Stringer.
func (i Identity) String() string {
	return "fake.Identity(" + i.Address + ")"
}

// Transaction is a fake transaction with an identity and arguments.
//
// - implements txn.Transaction
type Transaction struct {
	txn.Transaction

	ID       []byte
	Nonce    uint64
	Identity access.Identity
	Args     map[string][]byte
}

// NewTransaction returns a fake transaction from the identity and the list of
// key/value arguments.
func NewTransaction(ident access.Identity, args ...string) Transaction {
	tx := Transaction{
		ID:       []byte{0xaa},
		Identity: ident,
		Args:     make(map[string][]byte),
	}

	for i := 0; i+1 < len(args); i += 2 {
		tx.Args[args[i]] = []byte(args[i+1])
	}

	return tx
}

// GetID implements txn.Transaction.
func (tx Transaction) GetID() []byte {
	return tx.ID
}

// GetNonce implements txn.Transaction.
func (tx Transaction) GetNonce() uint64 {
	return tx.Nonce
}

// GetIdentity implements txn.Transaction.
func (tx Transaction) GetIdentity() access.Identity {
	return tx.Identity
}

// GetArg implements txn.Transaction.
func (tx Transaction) GetArg(key string) []byte {
	return tx.Args[key]
}

// AccessService is a fake implementation of the access service. It returns
// the configured error, and records the grants.
//
// - implements access.Service
type AccessService struct {
	access.Service

	err    error
	Grants *Call
}

// NewAccessService returns a fake access service that always allows.
func NewAccessService() AccessService {
	return AccessService{Grants: &Call{}}
}

// NewBadAccessService returns a fake access service that always denies.
func NewBadAccessService() AccessService {
	return AccessService{err: fakeErr, Grants: &Call{}}
}

// Match implements access.Service.
func (srvc AccessService) Match(store.Readable, access.Credential, ...access.Identity) error {
	return srvc.err
}

// Grant implements access.Service.
func (srvc AccessService) Grant(_ store.Snapshot, cred access.Credential, idents ...access.Identity) error {
	srvc.Grants.Add(cred, idents)
	return srvc.err
}
