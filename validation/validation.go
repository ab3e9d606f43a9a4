// Package validation enforces business rules on commitments: single-
// commitment checks evaluated at verification time and cross-commitment
// consistency between a signed request and the response answering it.
package validation

import (
	"math/big"
	"time"

	errorsmod "cosmossdk.io/errors"

	"github.com/dexloom/lloom/eip712"
	"github.com/dexloom/lloom/protocol"
)

// SupportedModels is the externally supplied model set, usually a
// registry.Registry.
type SupportedModels interface {
	Supports(modelID string) bool
}

type Validator struct {
	models SupportedModels
}

func NewValidator(models SupportedModels) *Validator {
	return &Validator{models: models}
}

// ValidateRequest checks the single-commitment rules against the supplied
// verification time. A deadline equal to now is still valid.
func (v *Validator) ValidateRequest(c protocol.RequestCommitment, now time.Time) error {
	if deadline := int64(c.Deadline); deadline < now.Unix() {
		return errorsmod.Wrapf(protocol.ErrExpiredCommitment, "deadline %d, now %d", c.Deadline, now.Unix())
	}
	if err := checkPrices(c.InboundPrice, c.OutboundPrice); err != nil {
		return err
	}
	if !v.models.Supports(c.Model) {
		return errorsmod.Wrapf(protocol.ErrUnsupportedModel, "model %q", c.Model)
	}
	return nil
}

// ValidateResponse checks the response-side single-commitment rules. The
// deadline rule lives on the request; responses carry only a timestamp.
func (v *Validator) ValidateResponse(c protocol.ResponseCommitment) error {
	if err := checkPrices(c.InboundPrice, c.OutboundPrice); err != nil {
		return err
	}
	if !v.models.Supports(c.Model) {
		return errorsmod.Wrapf(protocol.ErrUnsupportedModel, "model %q", c.Model)
	}
	return nil
}

// CrossValidate ties a response to the exact signed request it claims to
// answer and requires price agreement between the two.
func (v *Validator) CrossValidate(req protocol.SignedRequest, resp protocol.ResponseCommitment) error {
	structHash, err := eip712.RequestStructHash(req.Commitment)
	if err != nil {
		return err
	}
	canonical := eip712.CanonicalRequestHash(structHash, req.Signature)
	if canonical != resp.RequestHash {
		return errorsmod.Wrapf(protocol.ErrRequestMismatch, "computed %s, response references %s", canonical, resp.RequestHash)
	}
	if req.Commitment.InboundPrice.Cmp(resp.InboundPrice) != 0 {
		return errorsmod.Wrapf(protocol.ErrPriceMismatch, "inbound: request %s, response %s", req.Commitment.InboundPrice, resp.InboundPrice)
	}
	if req.Commitment.OutboundPrice.Cmp(resp.OutboundPrice) != 0 {
		return errorsmod.Wrapf(protocol.ErrPriceMismatch, "outbound: request %s, response %s", req.Commitment.OutboundPrice, resp.OutboundPrice)
	}
	return nil
}

func checkPrices(inbound, outbound *big.Int) error {
	if inbound == nil || inbound.Sign() <= 0 {
		return errorsmod.Wrapf(protocol.ErrInvalidPrice, "inbound price %s", inbound)
	}
	if outbound == nil || outbound.Sign() <= 0 {
		return errorsmod.Wrapf(protocol.ErrInvalidPrice, "outbound price %s", outbound)
	}
	return nil
}
