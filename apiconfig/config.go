package apiconfig

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dexloom/lloom/eip712"
	"github.com/dexloom/lloom/protocol"
	"github.com/dexloom/lloom/registry"
)

type Config struct {
	Domain   DomainConfig   `koanf:"domain" json:"domain"`
	Models   []ModelConfig  `koanf:"models" json:"models"`
	Identity IdentityConfig `koanf:"identity" json:"identity"`
	Ledger   LedgerConfig   `koanf:"ledger" json:"ledger"`
}

type DomainConfig struct {
	Name              string `koanf:"name" json:"name"`
	Version           string `koanf:"version" json:"version"`
	ChainId           uint64 `koanf:"chain_id" json:"chain_id"`
	VerifyingContract string `koanf:"verifying_contract" json:"verifying_contract"`
}

// ModelConfig declares one supported model. Prices are decimal strings in
// wei per token so uint256 values survive YAML round-trips.
type ModelConfig struct {
	Id            string `koanf:"id" json:"id"`
	InboundPrice  string `koanf:"inbound_price" json:"inbound_price"`
	OutboundPrice string `koanf:"outbound_price" json:"outbound_price"`
	Available     bool   `koanf:"available" json:"available"`
}

type IdentityConfig struct {
	KeyFile string `koanf:"key_file" json:"key_file"`
}

type LedgerConfig struct {
	NoncePath string `koanf:"nonce_path" json:"nonce_path"`
	UsagePath string `koanf:"usage_path" json:"usage_path"`
}

func DefaultConfig() Config {
	return Config{
		Domain: DomainConfig{
			Name:    "Lloom Network",
			Version: "1.0.0",
		},
	}
}

// EIP712Domain builds the signing domain from configuration.
func (c Config) EIP712Domain() (eip712.Domain, error) {
	if c.Domain.Name == "" || c.Domain.Version == "" {
		return eip712.Domain{}, fmt.Errorf("domain name and version are required")
	}
	if !common.IsHexAddress(c.Domain.VerifyingContract) {
		return eip712.Domain{}, fmt.Errorf("invalid verifying contract address %q", c.Domain.VerifyingContract)
	}
	return eip712.NewDomain(
		c.Domain.Name,
		c.Domain.Version,
		new(big.Int).SetUint64(c.Domain.ChainId),
		common.HexToAddress(c.Domain.VerifyingContract),
	), nil
}

// Registry builds the supported-model registry from configuration.
func (c Config) Registry() (*registry.Registry, error) {
	descriptors := make([]protocol.ModelDescriptor, 0, len(c.Models))
	for _, m := range c.Models {
		d, err := m.descriptor()
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}
	return registry.NewFromDescriptors(descriptors), nil
}

func (m ModelConfig) descriptor() (protocol.ModelDescriptor, error) {
	if m.Id == "" {
		return protocol.ModelDescriptor{}, fmt.Errorf("model id is required")
	}
	inbound, err := parsePrice(m.InboundPrice)
	if err != nil {
		return protocol.ModelDescriptor{}, fmt.Errorf("model %s inbound_price: %w", m.Id, err)
	}
	outbound, err := parsePrice(m.OutboundPrice)
	if err != nil {
		return protocol.ModelDescriptor{}, fmt.Errorf("model %s outbound_price: %w", m.Id, err)
	}
	return protocol.ModelDescriptor{
		ModelID: m.Id,
		Pricing: protocol.ModelPricing{
			InboundPrice:  inbound,
			OutboundPrice: outbound,
		},
		Available: m.Available,
	}, nil
}

func parsePrice(raw string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("not a decimal integer: %q", raw)
	}
	if v.Sign() <= 0 {
		return nil, fmt.Errorf("price must be positive, got %s", v)
	}
	if v.BitLen() > 256 {
		return nil, fmt.Errorf("price exceeds 256 bits")
	}
	return v, nil
}
