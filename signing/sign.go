package signing

import (
	"errors"

	errorsmod "cosmossdk.io/errors"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/dexloom/lloom/protocol"
)

// SignatureLength is the wire size of a recoverable signature.
const SignatureLength = 65

// Sign produces a deterministic (RFC 6979) recoverable signature over the
// digest. Output layout is [R || S || V] with V in {0,1}; S is always in
// the lower half of the group order.
func Sign(digest common.Hash, key *secp256k1.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, errors.New("nil private key")
	}
	// SignCompact yields [V+27 || R || S]; rotate V to the tail.
	compact := dcrecdsa.SignCompact(key, digest[:], false)
	sig := make([]byte, SignatureLength)
	copy(sig, compact[1:])
	sig[64] = compact[0] - 27
	return sig, nil
}

// RecoverSigner returns the address that produced the signature, or
// ErrInvalidSignature. Legacy V values 27/28 are accepted and normalized
// during parsing; a malleable (high-S) signature is rejected outright,
// never normalized into an accepted one.
func RecoverSigner(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, errorsmod.Wrapf(protocol.ErrInvalidSignature, "expected %d bytes, got %d", SignatureLength, len(sig))
	}
	v := sig[64]
	if v == 27 || v == 28 {
		v -= 27
	}
	if v > 1 {
		return common.Address{}, errorsmod.Wrapf(protocol.ErrInvalidSignature, "recovery id %d out of range", sig[64])
	}

	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(sig[:32]); overflow {
		return common.Address{}, errorsmod.Wrap(protocol.ErrInvalidSignature, "r >= group order")
	}
	if r.IsZero() {
		return common.Address{}, errorsmod.Wrap(protocol.ErrInvalidSignature, "r is zero")
	}
	if overflow := s.SetByteSlice(sig[32:64]); overflow {
		return common.Address{}, errorsmod.Wrap(protocol.ErrInvalidSignature, "s >= group order")
	}
	if s.IsZero() {
		return common.Address{}, errorsmod.Wrap(protocol.ErrInvalidSignature, "s is zero")
	}
	if s.IsOverHalfOrder() {
		return common.Address{}, errorsmod.Wrap(protocol.ErrInvalidSignature, "non-canonical high-S")
	}

	compact := make([]byte, SignatureLength)
	compact[0] = v + 27
	copy(compact[1:], sig[:64])
	pub, _, err := dcrecdsa.RecoverCompact(compact, digest[:])
	if err != nil {
		return common.Address{}, errorsmod.Wrap(protocol.ErrInvalidSignature, err.Error())
	}
	return crypto.PubkeyToAddress(*pub.ToECDSA()), nil
}

// VerifySigner recovers the signer and compares it against the claimed
// address.
func VerifySigner(digest common.Hash, sig []byte, claimed common.Address) error {
	recovered, err := RecoverSigner(digest, sig)
	if err != nil {
		return err
	}
	if recovered != claimed {
		return errorsmod.Wrapf(protocol.ErrSignerMismatch, "recovered %s, claimed %s", recovered, claimed)
	}
	return nil
}
