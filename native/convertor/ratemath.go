package convertor

import (
	"math/big"

	"github.com/holiman/uint256"
)

// maxUint128 bounds every balance and amount handled by the ledger.
var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// checkAmount validates that the supplied value is usable as an unsigned
// 128-bit amount.
func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 || amount.Cmp(maxUint128) > 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ConvertForward computes amount * outRate / inRate with truncating division.
// The multiplication runs at 256-bit width so a full 128-bit amount cannot
// overflow before the division; results that do not narrow back into 128 bits
// fail with ErrAmountOverflow. Truncation rounds in favour of the pool, never
// the caller.
func ConvertForward(amount *big.Int, inRate, outRate uint32) (*big.Int, error) {
	if inRate == 0 || outRate == 0 {
		return nil, ErrInvalidRate
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	wide, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, ErrInvalidAmount
	}
	wide.Mul(wide, uint256.NewInt(uint64(outRate)))
	wide.Div(wide, uint256.NewInt(uint64(inRate)))
	result := wide.ToBig()
	if result.Cmp(maxUint128) > 0 {
		return nil, ErrAmountOverflow
	}
	return result, nil
}

// ConvertReverse computes the out-token -> in-token direction by swapping the
// rate operands.
func ConvertReverse(amount *big.Int, inRate, outRate uint32) (*big.Int, error) {
	return ConvertForward(amount, outRate, inRate)
}
