// Package settlement answers the question "is this (request, response)
// pair a valid, attributable, consistent economic exchange?" and computes
// the cost the external ledger settles.
package settlement

import (
	"context"
	"math/big"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/dexloom/lloom/eip712"
	"github.com/dexloom/lloom/logging"
	"github.com/dexloom/lloom/nonce"
	"github.com/dexloom/lloom/protocol"
	"github.com/dexloom/lloom/signing"
	"github.com/dexloom/lloom/validation"
)

// VerifiedExchange is the verifier's output and the accounting ledger's
// input: the attributed pair plus the cost owed by the client.
type VerifiedExchange struct {
	Request  protocol.SignedRequest
	Response protocol.SignedResponse
	Client   common.Address
	Executor common.Address
	Cost     *big.Int
}

type Verifier struct {
	domain    eip712.Domain
	validator *validation.Validator
	nonces    nonce.Ledger
}

func NewVerifier(domain eip712.Domain, validator *validation.Validator, nonces nonce.Ledger) *Verifier {
	return &Verifier{domain: domain, validator: validator, nonces: nonces}
}

// VerifyExchange runs the full verification pipeline against the supplied
// verification time. The nonce is recorded last, after every other rule
// has passed, so a failed verification never advances the ledger.
func (v *Verifier) VerifyExchange(ctx context.Context, req protocol.SignedRequest, resp protocol.SignedResponse, now time.Time) (*VerifiedExchange, error) {
	reqStructHash, err := eip712.RequestStructHash(req.Commitment)
	if err != nil {
		return nil, err
	}
	if err := verifySignerOf(v.domain, reqStructHash, req.Signature, req.Signer); err != nil {
		logging.Warn("Request signature rejected", protocol.Settle, "signer", req.Signer, "error", err)
		return nil, err
	}

	respStructHash, err := eip712.ResponseStructHash(resp.Commitment)
	if err != nil {
		return nil, err
	}
	if err := verifySignerOf(v.domain, respStructHash, resp.Signature, resp.Signer); err != nil {
		logging.Warn("Response signature rejected", protocol.Settle, "signer", resp.Signer, "error", err)
		return nil, err
	}

	// Attribution: the response must come from the executor the client
	// addressed, and must name that client as its counterparty.
	if resp.Signer != req.Commitment.Executor {
		return nil, errorsmod.Wrapf(protocol.ErrSignerMismatch, "response signed by %s, request addressed executor %s", resp.Signer, req.Commitment.Executor)
	}
	if resp.Commitment.Client != req.Signer {
		return nil, errorsmod.Wrapf(protocol.ErrSignerMismatch, "response names client %s, request signed by %s", resp.Commitment.Client, req.Signer)
	}

	if err := v.validator.ValidateRequest(req.Commitment, now); err != nil {
		return nil, err
	}
	if err := v.validator.ValidateResponse(resp.Commitment); err != nil {
		return nil, err
	}
	if err := v.validator.CrossValidate(req, resp.Commitment); err != nil {
		return nil, err
	}

	cost, err := Cost(resp.Commitment)
	if err != nil {
		return nil, err
	}

	if err := v.nonces.Record(ctx, req.Signer, req.Commitment.Nonce); err != nil {
		return nil, err
	}

	logging.Info("Exchange verified", protocol.Settle,
		"client", req.Signer, "executor", resp.Signer,
		"model", req.Commitment.Model, "nonce", req.Commitment.Nonce, "cost", cost)
	return &VerifiedExchange{
		Request:  req,
		Response: resp,
		Client:   req.Signer,
		Executor: resp.Signer,
		Cost:     cost,
	}, nil
}

// Cost computes inboundTokens*inboundPrice + outboundTokens*outboundPrice.
// Prices are attacker-influenced, so the 256-bit cap fails loudly instead
// of wrapping.
func Cost(c protocol.ResponseCommitment) (*big.Int, error) {
	if c.InboundPrice == nil || c.OutboundPrice == nil {
		return nil, errorsmod.Wrap(protocol.ErrInvalidPrice, "nil price")
	}
	in := new(big.Int).Mul(new(big.Int).SetUint64(uint64(c.InboundTokens)), c.InboundPrice)
	out := new(big.Int).Mul(new(big.Int).SetUint64(uint64(c.OutboundTokens)), c.OutboundPrice)
	total := in.Add(in, out)
	if total.BitLen() > 256 {
		return nil, errorsmod.Wrapf(protocol.ErrArithmeticOverflow, "cost needs %d bits", total.BitLen())
	}
	return total, nil
}

func verifySignerOf(domain eip712.Domain, structHash common.Hash, sig []byte, claimed common.Address) error {
	return signing.VerifySigner(eip712.Digest(domain, structHash), sig, claimed)
}
