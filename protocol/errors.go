package protocol

import (
	errorsmod "cosmossdk.io/errors"
)

// Codespace for all commitment and settlement errors. Code 1 is reserved
// by cosmossdk.io/errors for internal errors.
const Codespace = "lloom"

var (
	ErrInvalidSignature   = errorsmod.Register(Codespace, 2, "invalid signature")
	ErrSignerMismatch     = errorsmod.Register(Codespace, 3, "recovered signer does not match claimed identity")
	ErrExpiredCommitment  = errorsmod.Register(Codespace, 4, "commitment deadline passed")
	ErrInvalidPrice       = errorsmod.Register(Codespace, 5, "price must be a positive uint256")
	ErrUnsupportedModel   = errorsmod.Register(Codespace, 6, "model not supported")
	ErrRequestMismatch    = errorsmod.Register(Codespace, 7, "response does not reference this request")
	ErrPriceMismatch      = errorsmod.Register(Codespace, 8, "response prices differ from request prices")
	ErrNonceReplay        = errorsmod.Register(Codespace, 9, "nonce already used")
	ErrArithmeticOverflow = errorsmod.Register(Codespace, 10, "cost exceeds 256 bits")
)
