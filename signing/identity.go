// Package signing covers key handling and recoverable secp256k1 signatures
// over EIP-712 digests. Signatures are 65 bytes, [R || S || V] with V in
// {0,1}; only canonical (low-S) signatures are accepted.
package signing

import (
	"encoding/hex"
	"errors"
	"os"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var errInvalidKey = errors.New("invalid private key")

// Identity pairs a private key with the address it controls.
type Identity struct {
	PrivateKey *secp256k1.PrivateKey
	Address    common.Address
}

func NewIdentity(key *secp256k1.PrivateKey) Identity {
	return Identity{
		PrivateKey: key,
		Address:    crypto.PubkeyToAddress(*key.PubKey().ToECDSA()),
	}
}

func GenerateIdentity() (Identity, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return Identity{}, err
	}
	return NewIdentity(key), nil
}

// ParseIdentity decodes a 32-byte hex private key, with or without the 0x
// prefix.
func ParseIdentity(hexKey string) (Identity, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return Identity{}, errorsmod.Wrap(err, "decoding private key hex")
	}
	if len(raw) != 32 {
		return Identity{}, errorsmod.Wrapf(errInvalidKey, "expected 32 bytes, got %d", len(raw))
	}
	key := secp256k1.PrivKeyFromBytes(raw)
	if key.Key.IsZero() {
		return Identity{}, errorsmod.Wrap(errInvalidKey, "key is zero mod group order")
	}
	return NewIdentity(key), nil
}

// LoadIdentityFromFile reads a hex private key from a file, ignoring
// surrounding whitespace.
func LoadIdentityFromFile(path string) (Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Identity{}, errorsmod.Wrapf(err, "reading key file %s", path)
	}
	return ParseIdentity(string(data))
}

// SignDigest signs with this identity's key.
func (id Identity) SignDigest(digest common.Hash) ([]byte, error) {
	return Sign(digest, id.PrivateKey)
}
