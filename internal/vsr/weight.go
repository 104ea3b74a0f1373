package vsr

import (
	"fmt"
	"math/big"

	"cosmossdk.io/math"

	"github.com/vsrlabs/positions-indexer/internal/types"
)

const (
	// PrecisionFactor scales voting weights so that decay stays exact in integers.
	PrecisionFactor uint64 = 1_000_000_000_000
	// ScaledFactorBase is the unit of the scaled factors of a voting mint config.
	ScaledFactorBase uint64 = 1_000_000_000
)

var maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// WeightAt returns the precision-scaled voting weight of a position at ts.
// Cliff lockups decay linearly once inside the saturation window and drop to
// zero at their end; constant and unlocked positions never decay.
func WeightAt(rec types.PositionRecord, cfg types.VotingMintConfig, ts int64) (math.Int, error) {
	if err := ValidateConfig(cfg); err != nil {
		return math.ZeroInt(), err
	}
	if rec.Lockup.Kind == types.LockupKindCliff && ts >= rec.Lockup.EndTs {
		return math.ZeroInt(), nil
	}
	return weightWithMultiplier(rec, cfg, ts, multiplierAt(rec, cfg, ts))
}

// ScaleDown removes the precision factor, for presentation only.
func ScaleDown(w math.Int) math.Int {
	if w.IsNil() {
		return math.ZeroInt()
	}
	return w.Quo(math.NewIntFromUint64(PrecisionFactor))
}

func ValidateConfig(cfg types.VotingMintConfig) error {
	if cfg.LockupSaturationSecs == 0 {
		return fmt.Errorf("%w: lockup saturation is zero for mint %s", types.ErrInvalidVotingConfig, cfg.Mint)
	}
	return nil
}

func multiplierAt(rec types.PositionRecord, cfg types.VotingMintConfig, ts int64) uint64 {
	if ts < rec.GenesisEnd && cfg.GenesisVotePowerMultiplier > 0 {
		return uint64(cfg.GenesisVotePowerMultiplier)
	}
	return 1
}

// weightWithMultiplier evaluates the weight curve at ts with a fixed genesis
// multiplier, without the cliff expiry rule.
func weightWithMultiplier(
	rec types.PositionRecord, cfg types.VotingMintConfig, ts int64, multiplier uint64,
) (math.Int, error) {
	native := nativeAmount(rec.Amount, cfg.DigitShift)

	baseline := new(big.Int).Mul(native, new(big.Int).SetUint64(cfg.BaselineVoteWeightScaledFactor))
	baseline.Mul(baseline, new(big.Int).SetUint64(PrecisionFactor))
	baseline.Quo(baseline, new(big.Int).SetUint64(ScaledFactorBase))

	locked := lockedWeight(native, cfg, secondsLeft(rec, ts))

	w := baseline.Add(baseline, locked)
	w.Mul(w, new(big.Int).SetUint64(multiplier))

	return toU128(w)
}

func lockedWeight(native *big.Int, cfg types.VotingMintConfig, secsLeft uint64) *big.Int {
	if secsLeft == 0 || cfg.MaxExtraLockupVoteWeightScaledFactor == 0 {
		return new(big.Int)
	}
	capped := min(secsLeft, cfg.LockupSaturationSecs)

	num := new(big.Int).Mul(native, new(big.Int).SetUint64(cfg.MaxExtraLockupVoteWeightScaledFactor))
	num.Mul(num, new(big.Int).SetUint64(PrecisionFactor))
	num.Mul(num, new(big.Int).SetUint64(capped))

	den := new(big.Int).Mul(
		new(big.Int).SetUint64(cfg.LockupSaturationSecs),
		new(big.Int).SetUint64(ScaledFactorBase),
	)
	return num.Quo(num, den)
}

func secondsLeft(rec types.PositionRecord, ts int64) uint64 {
	switch rec.Lockup.Kind {
	case types.LockupKindCliff:
		if ts >= rec.Lockup.EndTs {
			return 0
		}
		return uint64(rec.Lockup.EndTs - ts)
	case types.LockupKindConstant:
		return uint64(rec.Lockup.Duration())
	default:
		return 0
	}
}

func nativeAmount(amount uint64, digitShift int8) *big.Int {
	v := new(big.Int).SetUint64(amount)
	shift := int64(digitShift)
	switch {
	case shift > 0:
		v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(shift), nil))
	case shift < 0:
		v.Quo(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(-shift), nil))
	}
	return v
}

func toU128(v *big.Int) (math.Int, error) {
	if v.Sign() < 0 || v.Cmp(maxU128) > 0 {
		return math.ZeroInt(), fmt.Errorf("%w: voting weight exceeds 128 bits", types.ErrNumericOverflow)
	}
	return math.NewIntFromBigInt(v), nil
}
