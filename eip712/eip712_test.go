package eip712

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/dexloom/lloom/protocol"
)

// Vectors generated against the reference keccak/abi encoder. Any change
// to type strings or field encoding shows up here first.

func testDomain() Domain {
	return NewDomain(
		"Lloom Network",
		"1.0.0",
		big.NewInt(11155111),
		common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
	)
}

func testRequest() protocol.RequestCommitment {
	return protocol.RequestCommitment{
		Executor:         common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Model:            "llama-2-7b",
		PromptHash:       crypto.Keccak256Hash([]byte("What is the capital of France?")),
		SystemPromptHash: crypto.Keccak256Hash([]byte("You are a helpful assistant.")),
		MaxTokens:        100,
		Temperature:      7000,
		InboundPrice:     big.NewInt(500_000_000_000_000),
		OutboundPrice:    big.NewInt(1_000_000_000_000_000),
		Nonce:            1,
		Deadline:         1893456000,
	}
}

func testResponse(requestHash common.Hash) protocol.ResponseCommitment {
	return protocol.ResponseCommitment{
		RequestHash:    requestHash,
		Client:         common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Model:          "llama-2-7b",
		ContentHash:    crypto.Keccak256Hash([]byte("The capital of France is Paris.")),
		InboundTokens:  12,
		OutboundTokens: 88,
		InboundPrice:   big.NewInt(500_000_000_000_000),
		OutboundPrice:  big.NewInt(1_000_000_000_000_000),
		Timestamp:      1893452405,
		Success:        true,
	}
}

func TestTypeHashes(t *testing.T) {
	require.Equal(t,
		"0xa68b2b6629ba048ec07f256c15e70bfff746178a2ccb3c71bc31b89cadbe64c3",
		RequestTypeHash.Hex())
	require.Equal(t,
		"0x51c4db493700d089eda3dab06f28d3c639a28fc4842259b85fbbc4adb545c3e9",
		ResponseTypeHash.Hex())
}

func TestDomainSeparator(t *testing.T) {
	require.Equal(t,
		"0xf8a5087a127ce0441c0edfe42194e41c6c42cd9ec7fdc45c9badb990399df377",
		testDomain().Separator().Hex())
}

func TestDomainSeparatorDiffersAcrossDomains(t *testing.T) {
	base := testDomain()
	variants := []Domain{
		NewDomain("Lloom Network", "1.0.0", big.NewInt(1), base.VerifyingContract),
		NewDomain("Lloom Network", "2.0.0", big.NewInt(11155111), base.VerifyingContract),
		NewDomain("Other Network", "1.0.0", big.NewInt(11155111), base.VerifyingContract),
		NewDomain("Lloom Network", "1.0.0", big.NewInt(11155111), common.Address{}),
	}
	for _, v := range variants {
		require.NotEqual(t, base.Separator(), v.Separator())
	}
}

func TestRequestStructHash(t *testing.T) {
	h, err := RequestStructHash(testRequest())
	require.NoError(t, err)
	require.Equal(t,
		"0xc84f1c643b5aa794ac9493bdf68616d4f7e2c9ec461889ea93940cda054ac5e2",
		h.Hex())
}

func TestRequestDigest(t *testing.T) {
	h, err := RequestStructHash(testRequest())
	require.NoError(t, err)
	require.Equal(t,
		"0x79f9f51e01a21a8b7f0113f9c0319695f9eb63658016a01acaccfd62db8800e7",
		Digest(testDomain(), h).Hex())
}

func TestResponseStructHashAndDigest(t *testing.T) {
	reqHash, err := RequestStructHash(testRequest())
	require.NoError(t, err)
	canonical := CanonicalRequestHash(reqHash, make([]byte, 65))
	require.Equal(t,
		"0x2ab08430b9eb5ee62555bcfdc8036f8a7aafacdd96490064b7371658c650f6fa",
		canonical.Hex())

	h, err := ResponseStructHash(testResponse(canonical))
	require.NoError(t, err)
	require.Equal(t,
		"0xf8bd7d6a0035ea074a10b7b14b8bde0d4c57ddc013fb641f8bb61c723c4268fd",
		h.Hex())
	require.Equal(t,
		"0x6a409c9b7a6f1719bcfd8c3a63c22e837e4663ff31eeab77b85383b5b9cfd1d9",
		Digest(testDomain(), h).Hex())
}

func TestStructHashDeterministic(t *testing.T) {
	a, err := RequestStructHash(testRequest())
	require.NoError(t, err)
	b, err := RequestStructHash(testRequest())
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestSingleFieldPerturbationChangesHash(t *testing.T) {
	base, err := RequestStructHash(testRequest())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *protocol.RequestCommitment)
	}{
		{"executor", func(c *protocol.RequestCommitment) { c.Executor[19] ^= 1 }},
		{"model", func(c *protocol.RequestCommitment) { c.Model = "llama-2-13b" }},
		{"promptHash", func(c *protocol.RequestCommitment) { c.PromptHash[0] ^= 1 }},
		{"systemPromptHash", func(c *protocol.RequestCommitment) { c.SystemPromptHash[0] ^= 1 }},
		{"maxTokens", func(c *protocol.RequestCommitment) { c.MaxTokens++ }},
		{"temperature", func(c *protocol.RequestCommitment) { c.Temperature++ }},
		{"inboundPrice", func(c *protocol.RequestCommitment) { c.InboundPrice = big.NewInt(500_000_000_000_001) }},
		{"outboundPrice", func(c *protocol.RequestCommitment) { c.OutboundPrice = big.NewInt(1_000_000_000_000_001) }},
		{"nonce", func(c *protocol.RequestCommitment) { c.Nonce++ }},
		{"deadline", func(c *protocol.RequestCommitment) { c.Deadline++ }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := testRequest()
			tc.mutate(&c)
			h, err := RequestStructHash(c)
			require.NoError(t, err)
			require.NotEqual(t, base, h)
		})
	}
}

func TestRequestStructHashRejectsBadPrices(t *testing.T) {
	over := new(big.Int).Lsh(big.NewInt(1), 256)

	tests := []struct {
		name   string
		mutate func(c *protocol.RequestCommitment)
	}{
		{"nil inbound", func(c *protocol.RequestCommitment) { c.InboundPrice = nil }},
		{"negative outbound", func(c *protocol.RequestCommitment) { c.OutboundPrice = big.NewInt(-1) }},
		{"257-bit inbound", func(c *protocol.RequestCommitment) { c.InboundPrice = over }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := testRequest()
			tc.mutate(&c)
			_, err := RequestStructHash(c)
			require.ErrorIs(t, err, protocol.ErrInvalidPrice)
		})
	}
}

func TestCanonicalRequestHashCoversSignature(t *testing.T) {
	reqHash, err := RequestStructHash(testRequest())
	require.NoError(t, err)

	sigA := make([]byte, 65)
	sigB := make([]byte, 65)
	sigB[0] = 1
	require.NotEqual(t,
		CanonicalRequestHash(reqHash, sigA),
		CanonicalRequestHash(reqHash, sigB))
}
