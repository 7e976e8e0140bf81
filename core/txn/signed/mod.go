// Package signed is an implementation of the transaction abstraction.
//
// The author of a transaction is a wallet address, and the signature over the
// digest of the transaction proves the author owns the wallet. The digest is
// the Keccak-256 hash of the fingerprint, which covers the nonce, the
// arguments and the address.
package signed

import (
	"encoding/binary"
	"io"
	"sort"

	"go.ezyvote.org/ezyvote"
	"go.ezyvote.org/ezyvote/core/access"
	"go.ezyvote.org/ezyvote/core/access/wallet"
	"go.ezyvote.org/ezyvote/core/txn"
	"golang.org/x/crypto/sha3"
	"golang.org/x/xerrors"
)

// Transaction is a signed transaction using a nonce to protect itself against
// replay attack.
//
// - implements txn.Transaction
type Transaction struct {
	nonce  uint64
	args   map[string][]byte
	author wallet.Address
	sig    []byte
	hash   []byte
}

type template struct {
	Transaction
}

// TransactionOption is the type of options to create a transaction.
type TransactionOption func(*template)

// WithArg is an option to set an argument with the key and the value.
func WithArg(key string, value []byte) TransactionOption {
	return func(tmpl *template) {
		tmpl.args[key] = value
	}
}

// WithSignature is an option to set a signature. It is verified against the
// author.
func WithSignature(sig []byte) TransactionOption {
	return func(tmpl *template) {
		tmpl.sig = sig
	}
}

// NewTransaction creates a new transaction with the provided nonce.
func NewTransaction(nonce uint64, author wallet.Address, opts ...TransactionOption) (*Transaction, error) {
	tmpl := template{
		Transaction: Transaction{
			nonce:  nonce,
			author: author,
			args:   make(map[string][]byte),
		},
	}

	for _, opt := range opts {
		opt(&tmpl)
	}

	h := sha3.NewLegacyKeccak256()

	err := tmpl.Fingerprint(h)
	if err != nil {
		return nil, xerrors.Errorf("couldn't fingerprint tx: %v", err)
	}

	tmpl.hash = h.Sum(nil)

	if tmpl.sig != nil {
		err := wallet.Verify(tmpl.author, tmpl.hash, tmpl.sig)
		if err != nil {
			return nil, xerrors.Errorf("invalid signature: %v", err)
		}
	}

	return &tmpl.Transaction, nil
}

// GetID implements txn.Transaction. It returns the digest of the transaction.
func (t *Transaction) GetID() []byte {
	return append([]byte{}, t.hash...)
}

// GetNonce implements txn.Transaction.
func (t *Transaction) GetNonce() uint64 {
	return t.nonce
}

// GetIdentity implements txn.Transaction. It returns the wallet address of the
// author.
func (t *Transaction) GetIdentity() access.Identity {
	return t.author
}

// GetSignature returns the signature of the transaction, or nil if it is not
// signed yet.
func (t *Transaction) GetSignature() []byte {
	return t.sig
}

// GetArgs returns the sorted list of the argument keys.
func (t *Transaction) GetArgs() []string {
	args := make([]string, 0, len(t.args))
	for key := range t.args {
		args = append(args, key)
	}

	sort.Strings(args)

	return args
}

// GetArg implements txn.Transaction. It returns the value of the argument if it
// is set, otherwise nil.
func (t *Transaction) GetArg(key string) []byte {
	return t.args[key]
}

// Sign signs the transaction and stores the signature.
func (t *Transaction) Sign(signer wallet.Signer) error {
	if len(t.hash) == 0 {
		return xerrors.New("missing digest in transaction")
	}

	if !signer.GetAddress().Equal(t.author) {
		return xerrors.New("mismatch signer and identity")
	}

	sig, err := signer.Sign(t.hash)
	if err != nil {
		return xerrors.Errorf("signer: %v", err)
	}

	t.sig = sig

	return nil
}

// Verify returns nil if the transaction is signed by its author.
func (t *Transaction) Verify() error {
	if len(t.sig) == 0 {
		return xerrors.New("missing signature")
	}

	return wallet.Verify(t.author, t.hash, t.sig)
}

// Fingerprint implements txn.Fingerprinter. It writes a deterministic binary
// representation of the transaction. Keys and values are prefixed by their
// length.
func (t *Transaction) Fingerprint(w io.Writer) error {
	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, t.nonce)

	_, err := w.Write(buffer)
	if err != nil {
		return xerrors.Errorf("couldn't write nonce: %v", err)
	}

	for _, key := range t.GetArgs() {
		err = writeChunk(w, []byte(key))
		if err != nil {
			return xerrors.Errorf("couldn't write arg: %v", err)
		}

		err = writeChunk(w, t.args[key])
		if err != nil {
			return xerrors.Errorf("couldn't write arg: %v", err)
		}
	}

	_, err = w.Write(t.author.Bytes())
	if err != nil {
		return xerrors.Errorf("couldn't write identity: %v", err)
	}

	return nil
}

func writeChunk(w io.Writer, data []byte) error {
	size := make([]byte, 4)
	binary.LittleEndian.PutUint32(size, uint32(len(data)))

	_, err := w.Write(append(size, data...))

	return err
}

// Client is the interface the manager is using to get the nonce of an
// identity.
type Client interface {
	GetNonce(access.Identity) (uint64, error)
}

// TransactionManager is a manager to create signed transactions. It manages the
// nonce by itself, except if the transaction is refused by the ledger. In that
// case the manager should be synchronized before creating a new one.
//
// - implements txn.Manager
type TransactionManager struct {
	client Client
	signer wallet.Signer
	nonce  uint64
}

// NewManager creates a new transaction manager.
func NewManager(signer wallet.Signer, client Client) *TransactionManager {
	return &TransactionManager{
		client: client,
		signer: signer,
	}
}

// Make implements txn.Manager. It creates a signed transaction populated with
// the arguments.
func (mgr *TransactionManager) Make(args ...txn.Arg) (txn.Transaction, error) {
	opts := make([]TransactionOption, len(args))
	for i, arg := range args {
		opts[i] = WithArg(arg.Key, arg.Value)
	}

	tx, err := NewTransaction(mgr.nonce, mgr.signer.GetAddress(), opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to create tx: %v", err)
	}

	err = tx.Sign(mgr.signer)
	if err != nil {
		return nil, xerrors.Errorf("failed to sign: %v", err)
	}

	mgr.nonce++

	return tx, nil
}

// Sync implements txn.Manager. It fetches the latest nonce of the signer to
// create valid transactions.
func (mgr *TransactionManager) Sync() error {
	nonce, err := mgr.client.GetNonce(mgr.signer.GetAddress())
	if err != nil {
		return xerrors.Errorf("client: %v", err)
	}

	mgr.nonce = nonce

	ezyvote.Logger.Debug().
		Stringer("identity", mgr.signer.GetAddress()).
		Uint64("nonce", nonce).
		Msg("manager synchronized")

	return nil
}
