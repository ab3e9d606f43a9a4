package eip712

import (
	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/dexloom/lloom/protocol"
)

// Type strings are part of the wire protocol. Changing a field name, type
// or position changes every hash downstream.
const (
	RequestTypeString  = "LlmRequestCommitment(address executor,string model,bytes32 promptHash,bytes32 systemPromptHash,uint32 maxTokens,uint32 temperature,uint256 inboundPrice,uint256 outboundPrice,uint64 nonce,uint64 deadline)"
	ResponseTypeString = "LlmResponseCommitment(bytes32 requestHash,address client,string model,bytes32 contentHash,uint32 inboundTokens,uint32 outboundTokens,uint256 inboundPrice,uint256 outboundPrice,uint64 timestamp,bool success)"
)

var (
	RequestTypeHash  = crypto.Keccak256Hash([]byte(RequestTypeString))
	ResponseTypeHash = crypto.Keccak256Hash([]byte(ResponseTypeString))
)

// RequestStructHash hashes a request commitment with fields encoded in
// declared order.
func RequestStructHash(c protocol.RequestCommitment) (common.Hash, error) {
	inPrice, err := encUint256(c.InboundPrice)
	if err != nil {
		return common.Hash{}, errorsmod.Wrap(err, "inboundPrice")
	}
	outPrice, err := encUint256(c.OutboundPrice)
	if err != nil {
		return common.Hash{}, errorsmod.Wrap(err, "outboundPrice")
	}
	return crypto.Keccak256Hash(
		RequestTypeHash.Bytes(),
		encAddress(c.Executor),
		encString(c.Model),
		c.PromptHash.Bytes(),
		c.SystemPromptHash.Bytes(),
		encUint32(c.MaxTokens),
		encUint32(c.Temperature),
		inPrice,
		outPrice,
		encUint64(c.Nonce),
		encUint64(c.Deadline),
	), nil
}

// ResponseStructHash hashes a response commitment with fields encoded in
// declared order.
func ResponseStructHash(c protocol.ResponseCommitment) (common.Hash, error) {
	inPrice, err := encUint256(c.InboundPrice)
	if err != nil {
		return common.Hash{}, errorsmod.Wrap(err, "inboundPrice")
	}
	outPrice, err := encUint256(c.OutboundPrice)
	if err != nil {
		return common.Hash{}, errorsmod.Wrap(err, "outboundPrice")
	}
	return crypto.Keccak256Hash(
		ResponseTypeHash.Bytes(),
		c.RequestHash.Bytes(),
		encAddress(c.Client),
		encString(c.Model),
		c.ContentHash.Bytes(),
		encUint32(c.InboundTokens),
		encUint32(c.OutboundTokens),
		inPrice,
		outPrice,
		encUint64(c.Timestamp),
		encBool(c.Success),
	), nil
}

// Digest produces the signable hash: keccak256(0x19 0x01 || separator || structHash).
func Digest(d Domain, structHash common.Hash) common.Hash {
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, d.Separator().Bytes(), structHash.Bytes())
}

// CanonicalRequestHash binds a response to one exact signed request: the
// hash covers the request struct hash and the client's full signature, so
// re-signing the same commitment yields a different canonical hash.
func CanonicalRequestHash(requestStructHash common.Hash, signature []byte) common.Hash {
	return crypto.Keccak256Hash(requestStructHash.Bytes(), signature)
}
