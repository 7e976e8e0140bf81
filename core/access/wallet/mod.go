// Package wallet implements the identities of the ledger as Ethereum wallet
// addresses.
//
// A signer holds a secp256k1 private key and produces recoverable signatures,
// so that the address of the author of a message can be recovered from the
// message and the signature alone.
package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/xerrors"
)

// Address is the identity of a wallet. Its textual form is the lowercase hex
// encoding prefixed with 0x.
//
// - implements access.Identity
type Address struct {
	addr common.Address
}

// NewAddress returns the address of the public key.
func NewAddress(pub ecdsa.PublicKey) Address {
	return Address{addr: crypto.PubkeyToAddress(pub)}
}

// ParseAddress returns the address of the hex string. The string must be 20
// bytes hex-encoded, with or without the 0x prefix. The case is ignored.
func ParseAddress(text string) (Address, error) {
	if !common.IsHexAddress(text) {
		return Address{}, xerrors.Errorf("malformed address '%s'", text)
	}

	return Address{addr: common.HexToAddress(text)}, nil
}

// IsAddress returns true if the text is a valid address.
func IsAddress(text string) bool {
	return common.IsHexAddress(text)
}

// Normalize returns the canonical form of a valid address, or an error.
func Normalize(text string) (string, error) {
	addr, err := ParseAddress(text)
	if err != nil {
		return "", err
	}

	return addr.String(), nil
}

// Bytes returns the 20 bytes of the address.
func (a Address) Bytes() []byte {
	return a.addr.Bytes()
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	addr, err := ParseAddress(string(text))
	if err != nil {
		return err
	}

	*a = addr

	return nil
}

// Equal implements access.Identity. It returns true if the other object is
// the same address.
func (a Address) Equal(other interface{}) bool {
	switch o := other.(type) {
	case Address:
		return a.addr == o.addr
	case *Address:
		return o != nil && a.addr == o.addr
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return strings.ToLower(a.addr.Hex())
}

// Hash returns the Keccak-256 digest of the message, which is what the
// signatures are computed over.
func Hash(msg []byte) []byte {
	return crypto.Keccak256(msg)
}

// Recover returns the address of the author of the signature over the digest.
func Recover(digest, sig []byte) (Address, error) {
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return Address{}, xerrors.Errorf("failed to recover public key: %v", err)
	}

	return NewAddress(*pub), nil
}

// Verify returns nil if the signature over the digest has been produced by
// the owner of the address.
func Verify(addr Address, digest, sig []byte) error {
	author, err := Recover(digest, sig)
	if err != nil {
		return err
	}

	if !author.Equal(addr) {
		return xerrors.Errorf("signature author %v does not match %v", author, addr)
	}

	return nil
}

// Signer is a wallet private key that can sign digests.
type Signer struct {
	key *ecdsa.PrivateKey
}

// Generate returns a new signer from a random private key.
func Generate() (Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return Signer{}, xerrors.Errorf("failed to generate key: %v", err)
	}

	return Signer{key: key}, nil
}

// NewSigner returns a signer from the hex encoding of a private key.
func NewSigner(text string) (Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(text), "0x"))
	if err != nil {
		return Signer{}, xerrors.Errorf("invalid private key: %v", err)
	}

	return Signer{key: key}, nil
}

// GetAddress returns the address of the signer.
func (s Signer) GetAddress() Address {
	return NewAddress(s.key.PublicKey)
}

// GetPublicKey returns the uncompressed public key of the signer.
func (s Signer) GetPublicKey() []byte {
	return crypto.FromECDSAPub(&s.key.PublicKey)
}

// Sign returns the recoverable signature of the 32 bytes digest.
func (s Signer) Sign(digest []byte) ([]byte, error) {
	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return nil, xerrors.Errorf("failed to sign: %v", err)
	}

	return sig, nil
}

// MarshalText implements encoding.TextMarshaler. It returns the hex encoding
// of the private key.
func (s Signer) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(crypto.FromECDSA(s.key))), nil
}
