// Package eip712 implements EIP-712 typed structured data hashing for the
// Lloom commitment schema: domain separators, struct hashes and signable
// digests. Field encoding is the padded ABI-style form: every encoded field
// occupies 32 bytes and dynamic fields are keccak-hashed first.
package eip712

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const domainTypeString = "EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"

var domainTypeHash = crypto.Keccak256Hash([]byte(domainTypeString))

// Domain identifies one deployment. Commitments signed under one domain
// never verify under another.
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address

	separator common.Hash
}

// NewDomain builds a domain and precomputes its separator. ChainID is
// copied so later mutation of the argument cannot change the separator.
func NewDomain(name, version string, chainID *big.Int, verifyingContract common.Address) Domain {
	d := Domain{
		Name:              name,
		Version:           version,
		ChainID:           new(big.Int).Set(chainID),
		VerifyingContract: verifyingContract,
	}
	d.separator = crypto.Keccak256Hash(
		domainTypeHash.Bytes(),
		crypto.Keccak256([]byte(d.Name)),
		crypto.Keccak256([]byte(d.Version)),
		encBig(d.ChainID),
		encAddress(d.VerifyingContract),
	)
	return d
}

// Separator returns the cached domain separator.
func (d Domain) Separator() common.Hash {
	return d.separator
}
