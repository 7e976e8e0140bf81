package signed

import (
	"encoding/json"

	"go.ezyvote.org/ezyvote/core/access/wallet"
	"golang.org/x/xerrors"
)

// transactionJSON is the JSON message of a signed transaction.
type transactionJSON struct {
	Nonce     uint64            `json:"nonce"`
	Args      map[string][]byte `json:"args"`
	Identity  string            `json:"identity"`
	Signature []byte            `json:"signature,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (t *Transaction) MarshalJSON() ([]byte, error) {
	m := transactionJSON{
		Nonce:     t.nonce,
		Args:      t.args,
		Identity:  t.author.String(),
		Signature: t.sig,
	}

	return json.Marshal(m)
}

// Decode returns the transaction of the JSON data. The digest is computed
// again and the signature, if any, is verified.
func Decode(data []byte) (*Transaction, error) {
	var m transactionJSON

	err := json.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	author, err := wallet.ParseAddress(m.Identity)
	if err != nil {
		return nil, xerrors.Errorf("invalid identity: %v", err)
	}

	opts := make([]TransactionOption, 0, len(m.Args)+1)
	for key, value := range m.Args {
		opts = append(opts, WithArg(key, value))
	}

	if len(m.Signature) > 0 {
		opts = append(opts, WithSignature(m.Signature))
	}

	tx, err := NewTransaction(m.Nonce, author, opts...)
	if err != nil {
		return nil, xerrors.Errorf("invalid transaction: %v", err)
	}

	return tx, nil
}
