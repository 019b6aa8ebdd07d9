package market

import (
	"context"
	"math/big"

	"github.com/predictx/marketd/internal/domain"
)

// CalculatePotentialWinnings previews the fee-adjusted payout for a
// hypothetical stake of amount on side, given the poll's current pools.
// Pure with respect to ledger state; no mutation. View.
//
//	gross = floor(amount * total_pool_after / side_pool_after)
//	net   = floor(gross * (BPS_DENOMINATOR - PLATFORM_FEE_BPS) / BPS_DENOMINATOR)
func (e *Engine) CalculatePotentialWinnings(
	ctx context.Context,
	pollID uint64,
	side domain.Side,
	amount int64,
) (int64, error) {
	if !side.Valid() {
		return 0, domain.ErrInvalidSide
	}

	poll, err := e.store.GetPoll(ctx, pollID)
	if err != nil {
		return 0, err
	}

	info := domain.PoolInfo{YesPool: poll.YesPool, NoPool: poll.NoPool}
	return PotentialWinnings(info, side, amount), nil
}

// PotentialWinnings computes the payout preview from a pool snapshot. The
// intermediate product amount*total_pool_after can exceed 64 bits, so the
// math runs on big.Int; all divisions truncate toward zero.
func PotentialWinnings(info domain.PoolInfo, side domain.Side, amount int64) int64 {
	sidePool := info.YesPool
	if side == domain.SideNo {
		sidePool = info.NoPool
	}

	sidePoolAfter := sidePool + amount
	if sidePoolAfter == 0 {
		return 0
	}
	totalPoolAfter := info.YesPool + info.NoPool + amount

	gross := new(big.Int).Mul(big.NewInt(amount), big.NewInt(totalPoolAfter))
	gross.Quo(gross, big.NewInt(sidePoolAfter))

	net := gross.Mul(gross, big.NewInt(BpsDenominator-PlatformFeeBps))
	net.Quo(net, big.NewInt(BpsDenominator))

	return net.Int64()
}
