package settlement

import (
	"context"
	"fmt"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/google/uuid"

	"github.com/dexloom/lloom/eip712"
	"github.com/dexloom/lloom/logging"
	"github.com/dexloom/lloom/protocol"
)

type ExchangeState string

const (
	// StateCreated means the request is signed and waiting for a response.
	StateCreated ExchangeState = "created"
	// StateDelivered means a response referencing the request has arrived.
	StateDelivered ExchangeState = "delivered"
	// StateVerified means both signatures recovered and every rule passed.
	StateVerified ExchangeState = "verified"
	// StateSettled is recorded by the external ledger, not this core.
	StateSettled ExchangeState = "settled"
	// StateRejected holds the specific error that failed verification.
	StateRejected ExchangeState = "rejected"
	// StateExpired means the deadline elapsed before a response was accepted.
	StateExpired ExchangeState = "expired"
)

// Exchange tracks one request/response pair through its lifecycle.
// Created -> Delivered -> Verified -> Settled, with Rejected and Expired
// as the failure terminals. Not safe for concurrent use; each exchange
// has a single owner.
type Exchange struct {
	ID       string
	Request  protocol.SignedRequest
	Response *protocol.SignedResponse
	State    ExchangeState

	// Result is set on Verified, Failure on Rejected.
	Result  *VerifiedExchange
	Failure error
}

func NewExchange(req protocol.SignedRequest) *Exchange {
	return &Exchange{
		ID:      uuid.NewString(),
		Request: req,
		State:   StateCreated,
	}
}

// Deliver attaches the response answering this request. The response must
// reference the request's canonical hash; an unrelated response is
// rejected without consuming the exchange.
func (e *Exchange) Deliver(resp protocol.SignedResponse) error {
	if e.State != StateCreated {
		return e.invalidTransition(StateDelivered)
	}
	structHash, err := eip712.RequestStructHash(e.Request.Commitment)
	if err != nil {
		return err
	}
	canonical := eip712.CanonicalRequestHash(structHash, e.Request.Signature)
	if resp.Commitment.RequestHash != canonical {
		return errorsmod.Wrapf(protocol.ErrRequestMismatch, "response references %s, exchange is %s", resp.Commitment.RequestHash, canonical)
	}
	e.Response = &resp
	e.State = StateDelivered
	return nil
}

// Verify runs the full pipeline on a delivered exchange. Failure moves the
// exchange to Rejected and preserves the specific error kind for dispute
// resolution.
func (e *Exchange) Verify(ctx context.Context, v *Verifier, now time.Time) (*VerifiedExchange, error) {
	if e.State != StateDelivered {
		return nil, e.invalidTransition(StateVerified)
	}
	result, err := v.VerifyExchange(ctx, e.Request, *e.Response, now)
	if err != nil {
		e.State = StateRejected
		e.Failure = err
		logging.Info("Exchange rejected", protocol.Settle, "exchangeId", e.ID, "error", err)
		return nil, err
	}
	e.State = StateVerified
	e.Result = result
	return result, nil
}

// Settle marks the verified exchange as recorded by the external ledger.
func (e *Exchange) Settle() error {
	if e.State != StateVerified {
		return e.invalidTransition(StateSettled)
	}
	e.State = StateSettled
	return nil
}

// Expire closes out an exchange whose deadline elapsed before a response
// was accepted. It fails if the deadline has not actually passed.
func (e *Exchange) Expire(now time.Time) error {
	if e.State != StateCreated && e.State != StateDelivered {
		return e.invalidTransition(StateExpired)
	}
	if int64(e.Request.Commitment.Deadline) >= now.Unix() {
		return fmt.Errorf("exchange %s: deadline %d has not elapsed at %d", e.ID, e.Request.Commitment.Deadline, now.Unix())
	}
	e.State = StateExpired
	return nil
}

func (e *Exchange) invalidTransition(to ExchangeState) error {
	return fmt.Errorf("exchange %s: cannot move from %s to %s", e.ID, e.State, to)
}
