// Package nameservice reads a folder of `.ecdsa` key files and builds a
// name lookup from public key to the demo role the file represents
// (the file's base name: "vendor", "bad-spv", "miner", and so on).
package nameservice

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ridgelinelabs/forkchain/foundation/blockchain/signature"
)

// NameService maps a hex-encoded public key to the demo role name its
// key file was given.
type NameService struct {
	names map[string]string
}

// New walks root for `.ecdsa` key files and builds a name service
// keyed by the public key each file holds.
func New(root string) (*NameService, error) {
	ns := NameService{
		names: make(map[string]string),
	}

	walk := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != ".ecdsa" {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("loading key %s: %w", fileName, err)
		}

		pubKey := signature.PublicKeyToHex(privateKey.PublicKey)
		ns.names[pubKey] = strings.TrimSuffix(path.Base(fileName), ".ecdsa")

		return nil
	}

	if err := filepath.Walk(root, walk); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the role name for a hex-encoded public key, or the key
// itself if it isn't known.
func (ns *NameService) Lookup(pubKey string) string {
	name, exists := ns.names[pubKey]
	if !exists {
		return pubKey
	}

	return name
}

// Copy returns a copy of the public-key-to-name map.
func (ns *NameService) Copy() map[string]string {
	names := make(map[string]string, len(ns.names))
	for pubKey, name := range ns.names {
		names[pubKey] = name
	}

	return names
}
