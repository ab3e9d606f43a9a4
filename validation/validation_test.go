package validation

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/dexloom/lloom/eip712"
	"github.com/dexloom/lloom/protocol"
	"github.com/dexloom/lloom/registry"
)

var now = time.Unix(1_700_000_000, 0)

func supported() *registry.Registry {
	return registry.NewFromDescriptors([]protocol.ModelDescriptor{{
		ModelID: "llama-2-7b",
		Pricing: protocol.ModelPricing{
			InboundPrice:  big.NewInt(500_000_000_000_000),
			OutboundPrice: big.NewInt(1_000_000_000_000_000),
		},
		Available: true,
	}})
}

func request() protocol.RequestCommitment {
	return protocol.RequestCommitment{
		Executor:         common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Model:            "llama-2-7b",
		PromptHash:       crypto.Keccak256Hash([]byte("prompt")),
		SystemPromptHash: crypto.Keccak256Hash([]byte("system")),
		MaxTokens:        100,
		Temperature:      7000,
		InboundPrice:     big.NewInt(500_000_000_000_000),
		OutboundPrice:    big.NewInt(1_000_000_000_000_000),
		Nonce:            1,
		Deadline:         uint64(now.Unix()) + 3600,
	}
}

func signedRequest() protocol.SignedRequest {
	sig := make([]byte, 65)
	sig[0] = 0xaa
	return protocol.SignedRequest{
		Commitment: request(),
		Signer:     common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Signature:  sig,
	}
}

func responseFor(req protocol.SignedRequest) protocol.ResponseCommitment {
	structHash, err := eip712.RequestStructHash(req.Commitment)
	if err != nil {
		panic(err)
	}
	return protocol.ResponseCommitment{
		RequestHash:    eip712.CanonicalRequestHash(structHash, req.Signature),
		Client:         req.Signer,
		Model:          req.Commitment.Model,
		ContentHash:    crypto.Keccak256Hash([]byte("content")),
		InboundTokens:  12,
		OutboundTokens: 88,
		InboundPrice:   new(big.Int).Set(req.Commitment.InboundPrice),
		OutboundPrice:  new(big.Int).Set(req.Commitment.OutboundPrice),
		Timestamp:      uint64(now.Unix()) + 5,
		Success:        true,
	}
}

func TestValidateRequestPasses(t *testing.T) {
	v := NewValidator(supported())
	require.NoError(t, v.ValidateRequest(request(), now))
}

func TestDeadlineBoundary(t *testing.T) {
	v := NewValidator(supported())

	tests := []struct {
		name     string
		deadline uint64
		wantErr  bool
	}{
		{"one second past", uint64(now.Unix()) - 1, true},
		{"exactly now", uint64(now.Unix()), false},
		{"one second left", uint64(now.Unix()) + 1, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := request()
			c.Deadline = tc.deadline
			err := v.ValidateRequest(c, now)
			if tc.wantErr {
				require.ErrorIs(t, err, protocol.ErrExpiredCommitment)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateRequestPrices(t *testing.T) {
	v := NewValidator(supported())

	tests := []struct {
		name   string
		mutate func(c *protocol.RequestCommitment)
	}{
		{"zero inbound", func(c *protocol.RequestCommitment) { c.InboundPrice = big.NewInt(0) }},
		{"zero outbound", func(c *protocol.RequestCommitment) { c.OutboundPrice = big.NewInt(0) }},
		{"negative inbound", func(c *protocol.RequestCommitment) { c.InboundPrice = big.NewInt(-5) }},
		{"nil outbound", func(c *protocol.RequestCommitment) { c.OutboundPrice = nil }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := request()
			tc.mutate(&c)
			require.ErrorIs(t, v.ValidateRequest(c, now), protocol.ErrInvalidPrice)
		})
	}
}

func TestValidateRequestUnsupportedModel(t *testing.T) {
	v := NewValidator(supported())
	c := request()
	c.Model = "gpt-neo"
	require.ErrorIs(t, v.ValidateRequest(c, now), protocol.ErrUnsupportedModel)
}

func TestValidateResponse(t *testing.T) {
	v := NewValidator(supported())
	resp := responseFor(signedRequest())
	require.NoError(t, v.ValidateResponse(resp))

	resp.Model = "gpt-neo"
	require.ErrorIs(t, v.ValidateResponse(resp), protocol.ErrUnsupportedModel)

	resp = responseFor(signedRequest())
	resp.InboundPrice = big.NewInt(0)
	require.ErrorIs(t, v.ValidateResponse(resp), protocol.ErrInvalidPrice)
}

func TestCrossValidatePasses(t *testing.T) {
	v := NewValidator(supported())
	req := signedRequest()
	require.NoError(t, v.CrossValidate(req, responseFor(req)))
}

func TestCrossValidateRequestMismatch(t *testing.T) {
	v := NewValidator(supported())
	req := signedRequest()

	t.Run("stale request hash", func(t *testing.T) {
		resp := responseFor(req)
		resp.RequestHash[0] ^= 1
		require.ErrorIs(t, v.CrossValidate(req, resp), protocol.ErrRequestMismatch)
	})

	t.Run("signature not covered", func(t *testing.T) {
		// a response linked to the same commitment under a different
		// signature must not verify against this one
		other := req
		other.Signature = append([]byte(nil), req.Signature...)
		other.Signature[1] ^= 1
		resp := responseFor(other)
		require.ErrorIs(t, v.CrossValidate(req, resp), protocol.ErrRequestMismatch)
	})
}

func TestCrossValidatePriceMismatch(t *testing.T) {
	v := NewValidator(supported())
	req := signedRequest()

	resp := responseFor(req)
	resp.OutboundPrice = new(big.Int).Add(resp.OutboundPrice, big.NewInt(1))
	require.ErrorIs(t, v.CrossValidate(req, resp), protocol.ErrPriceMismatch)

	resp = responseFor(req)
	resp.InboundPrice = new(big.Int).Sub(resp.InboundPrice, big.NewInt(1))
	require.ErrorIs(t, v.CrossValidate(req, resp), protocol.ErrPriceMismatch)
}
