// Package loader defines an abstraction to load a wallet key from a persistent
// storage. It allows one to either read it from the storage, or to generate a
// new one and store it for the next time.
package loader

import (
	"go.ezyvote.org/ezyvote/core/access/wallet"
	"golang.org/x/xerrors"
)

// Generator is the interface to implement to generate a key.
type Generator interface {
	Generate() ([]byte, error)
}

// Loader is an abstraction to load a key from a storage. It allows for instance
// to load a private key from the disk, or generate it if it doesn't exist.
type Loader interface {
	// LoadOrCreate tries to load the key and returns it if found, otherwise it
	// generates a new one using the generator and stores it.
	LoadOrCreate(Generator) ([]byte, error)

	// Load returns the key of the storage, or an error if it does not exist.
	Load() ([]byte, error)
}

// SignerGenerator generates the hex encoding of a new wallet private key.
//
// - implements loader.Generator
type SignerGenerator struct{}

// Generate implements loader.Generator.
func (SignerGenerator) Generate() ([]byte, error) {
	signer, err := wallet.Generate()
	if err != nil {
		return nil, err
	}

	return signer.MarshalText()
}

// LoadSigner returns the wallet signer stored by the loader.
func LoadSigner(l Loader) (wallet.Signer, error) {
	data, err := l.Load()
	if err != nil {
		return wallet.Signer{}, xerrors.Errorf("failed to load signer: %v", err)
	}

	signer, err := wallet.NewSigner(string(data))
	if err != nil {
		return wallet.Signer{}, xerrors.Errorf("failed to load signer: %v", err)
	}

	return signer, nil
}
