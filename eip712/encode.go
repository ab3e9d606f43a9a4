package eip712

import (
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/dexloom/lloom/protocol"
)

func encAddress(a common.Address) []byte {
	return common.LeftPadBytes(a.Bytes(), 32)
}

// Dynamic fields contribute the hash of their contents, not the contents.
func encString(s string) []byte {
	return crypto.Keccak256([]byte(s))
}

func encUint64(v uint64) []byte {
	return encBig(new(big.Int).SetUint64(v))
}

func encUint32(v uint32) []byte {
	return encUint64(uint64(v))
}

func encBool(v bool) []byte {
	out := make([]byte, 32)
	if v {
		out[31] = 1
	}
	return out
}

// encBig assumes the value fits in 256 bits. Wire values that come from
// outside go through encUint256 instead.
func encBig(v *big.Int) []byte {
	return v.FillBytes(make([]byte, 32))
}

func encUint256(v *big.Int) ([]byte, error) {
	if v == nil {
		return nil, errorsmod.Wrap(protocol.ErrInvalidPrice, "nil value")
	}
	if v.Sign() < 0 {
		return nil, errorsmod.Wrapf(protocol.ErrInvalidPrice, "negative value %s", v)
	}
	if v.BitLen() > 256 {
		return nil, errorsmod.Wrapf(protocol.ErrInvalidPrice, "value exceeds 256 bits (%d)", v.BitLen())
	}
	return encBig(v), nil
}
