// Package signature provides canonical serialization, double-SHA256
// hashing, and ECDSA sign/verify support shared by every blockchain type.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash represents a hash value of zero length, used by genesis.
const ZeroHash = ""

// HashLen is the length, in hex characters, of a double-SHA256 digest.
const HashLen = 64

// Canonical produces the canonical byte representation of v: keys of any
// map are ordered lexicographically and numbers/strings are encoded the
// way encoding/json already encodes them. Callers must serialize structs
// whose fields were declared in a fixed order; this function's only job
// is to guarantee that semantically equal values of v always produce
// byte-identical output.
func Canonical(v any) ([]byte, error) {
	// Round-trip through a generic map so than any extra/out-of-order
	// keys introduced by struct tags collapse to lexicographic order.
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal canonical value: %w", err)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("unmarshal canonical value: %w", err)
	}

	return marshalOrdered(generic)
}

// Hash returns the lowercase hex double-SHA256 digest of the canonical
// serialization of v.
func Hash(v any) (string, error) {
	canon, err := Canonical(v)
	if err != nil {
		return "", err
	}

	return HashBytes(canon), nil
}

// HashBytes returns the lowercase hex double-SHA256 digest of b.
func HashBytes(b []byte) string {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])

	return hex.EncodeToString(second[:])
}

// marshalOrdered re-marshals v, sorting the keys of every map
// encountered so the byte output is deterministic.
func marshalOrdered(v any) ([]byte, error) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf := []byte{'{'}
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}

			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf = append(buf, kb...)
			buf = append(buf, ':')

			vb, err := marshalOrdered(val[k])
			if err != nil {
				return nil, err
			}
			buf = append(buf, vb...)
		}
		buf = append(buf, '}')

		return buf, nil

	case []any:
		buf := []byte{'['}
		for i, elem := range val {
			if i > 0 {
				buf = append(buf, ',')
			}
			eb, err := marshalOrdered(elem)
			if err != nil {
				return nil, err
			}
			buf = append(buf, eb...)
		}
		buf = append(buf, ']')

		return buf, nil

	default:
		return json.Marshal(val)
	}
}

// GenerateKey creates a new secp256k1 private key for signing transactions.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// PublicKeyToHex renders a public key as the lowercase hex of its
// uncompressed encoding, used as the wire/identity form of an account.
func PublicKeyToHex(pub ecdsa.PublicKey) string {
	return hex.EncodeToString(crypto.FromECDSAPub(&pub))
}

// HexToPublicKey parses the hex form produced by PublicKeyToHex.
func HexToPublicKey(s string) (ecdsa.PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return ecdsa.PublicKey{}, fmt.Errorf("decode public key hex: %w", err)
	}

	pub, err := crypto.UnmarshalPubkey(b)
	if err != nil {
		return ecdsa.PublicKey{}, fmt.Errorf("unmarshal public key: %w", err)
	}

	return *pub, nil
}

// Sign signs the canonical serialization of msg with the given private
// key and returns the lowercase-hex-encoded recoverable signature.
func Sign(msg any, privateKey *ecdsa.PrivateKey) (string, error) {
	canon, err := Canonical(msg)
	if err != nil {
		return "", err
	}

	digest := crypto.Keccak256(canon)

	sig, err := crypto.Sign(digest, privateKey)
	if err != nil {
		return "", fmt.Errorf("sign digest: %w", err)
	}

	return hex.EncodeToString(sig), nil
}

// Verify recomputes the digest of msg's canonical serialization and
// validates sigHex was produced by the private key matching pub.
func Verify(msg any, sigHex string, pub ecdsa.PublicKey) error {
	canon, err := Canonical(msg)
	if err != nil {
		return err
	}

	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return fmt.Errorf("decode signature hex: %w", err)
	}
	if len(sig) < 64 {
		return errors.New("signature too short")
	}

	digest := crypto.Keccak256(canon)

	// Drop the recovery id, VerifySignature only wants R||S.
	if !crypto.VerifySignature(crypto.FromECDSAPub(&pub), digest, sig[:64]) {
		return errors.New("signature does not verify against sender public key")
	}

	return nil
}
