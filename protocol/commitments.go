package protocol

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// TemperatureScale is the fixed-point denominator for RequestCommitment.Temperature.
// A sampling temperature of 0.7 is carried on the wire as 7000.
const TemperatureScale = 10_000

// RequestCommitment is what a client signs before dispatching an inference
// request. Prices are wei-per-token and must fit in a uint256.
type RequestCommitment struct {
	Executor         common.Address `json:"executor"`
	Model            string         `json:"model"`
	PromptHash       common.Hash    `json:"prompt_hash"`
	SystemPromptHash common.Hash    `json:"system_prompt_hash"`
	MaxTokens        uint32         `json:"max_tokens"`
	Temperature      uint32         `json:"temperature"`
	InboundPrice     *big.Int       `json:"inbound_price"`
	OutboundPrice    *big.Int       `json:"outbound_price"`
	Nonce            uint64         `json:"nonce"`
	Deadline         uint64         `json:"deadline"`
}

// ResponseCommitment is the executor's attestation of delivered work.
// RequestHash binds it to one exact (request, signature) pair.
type ResponseCommitment struct {
	RequestHash    common.Hash    `json:"request_hash"`
	Client         common.Address `json:"client"`
	Model          string         `json:"model"`
	ContentHash    common.Hash    `json:"content_hash"`
	InboundTokens  uint32         `json:"inbound_tokens"`
	OutboundTokens uint32         `json:"outbound_tokens"`
	InboundPrice   *big.Int       `json:"inbound_price"`
	OutboundPrice  *big.Int       `json:"outbound_price"`
	Timestamp      uint64         `json:"timestamp"`
	Success        bool           `json:"success"`
}

// SignedRequest carries a request commitment together with the claimed
// signer and the 65-byte [R || S || V] signature over its digest.
type SignedRequest struct {
	Commitment RequestCommitment `json:"commitment"`
	Signer     common.Address    `json:"signer"`
	Signature  hexutil.Bytes     `json:"signature"`
}

// SignedResponse is the executor-side counterpart of SignedRequest.
type SignedResponse struct {
	Commitment ResponseCommitment `json:"commitment"`
	Signer     common.Address     `json:"signer"`
	Signature  hexutil.Bytes      `json:"signature"`
}
