package protocol

import "math/big"

// ModelPricing is the per-token price pair an executor announces for a model.
type ModelPricing struct {
	InboundPrice  *big.Int `json:"inbound_price"`
	OutboundPrice *big.Int `json:"outbound_price"`
}

// ModelDescriptor announces one servable model and its pricing.
type ModelDescriptor struct {
	ModelID   string       `json:"model_id"`
	Pricing   ModelPricing `json:"pricing"`
	Available bool         `json:"available"`
}
