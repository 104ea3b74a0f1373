package vsr

import (
	"cosmossdk.io/math"

	"github.com/vsrlabs/positions-indexer/internal/types"
)

// Info projects the weight curve of a position from ts onwards as linear fall
// rates plus the discrete drops at the genesis boundary and at lockup end.
func Info(rec types.PositionRecord, cfg types.VotingMintConfig, ts int64) (types.WeightInfo, error) {
	info := types.ZeroWeightInfo()

	w, err := WeightAt(rec, cfg, ts)
	if err != nil {
		return info, err
	}
	info.WeightAtTs = w

	mult := multiplierAt(rec, cfg, ts)
	info.HasGenesis = mult > 1

	switch rec.Lockup.Kind {
	case types.LockupKindCliff:
		if ts >= rec.Lockup.EndTs {
			return info, nil
		}
		return cliffInfo(info, rec, cfg, ts, mult)
	default:
		if !info.HasGenesis {
			return info, nil
		}
		afterGenesis, err := weightWithMultiplier(rec, cfg, rec.GenesisEnd, 1)
		if err != nil {
			return info, err
		}
		info.GenesisEndWeightCorrection = w.Sub(afterGenesis)
		return info, nil
	}
}

func cliffInfo(
	info types.WeightInfo, rec types.PositionRecord, cfg types.VotingMintConfig, ts int64, mult uint64,
) (types.WeightInfo, error) {
	end := rec.Lockup.EndTs
	genesisEnd := rec.GenesisEnd

	if info.HasGenesis && genesisEnd < end {
		beforeGenesis, err := weightWithMultiplier(rec, cfg, genesisEnd, mult)
		if err != nil {
			return info, err
		}
		atGenesis, err := weightWithMultiplier(rec, cfg, genesisEnd, 1)
		if err != nil {
			return info, err
		}
		beforeEnd, err := weightWithMultiplier(rec, cfg, end, 1)
		if err != nil {
			return info, err
		}

		info.PreGenesisEndFallRate = fallRate(info.WeightAtTs, beforeGenesis, genesisEnd-ts)
		info.PostGenesisEndFallRate = fallRate(atGenesis, beforeEnd, end-genesisEnd)
		info.GenesisEndWeightCorrection = beforeGenesis.Sub(atGenesis)
		info.GenesisEndFallRateCorrection = info.PreGenesisEndFallRate.Sub(info.PostGenesisEndFallRate)
		info.EndWeightCorrection = beforeEnd
		info.EndFallRateCorrection = info.PostGenesisEndFallRate
		return info, nil
	}

	// multiplier, if any, outlasts the lockup
	beforeEnd, err := weightWithMultiplier(rec, cfg, end, mult)
	if err != nil {
		return info, err
	}
	rate := fallRate(info.WeightAtTs, beforeEnd, end-ts)
	info.PreGenesisEndFallRate = rate
	if !info.HasGenesis {
		info.PostGenesisEndFallRate = rate
	}
	info.EndWeightCorrection = beforeEnd
	info.EndFallRateCorrection = rate
	return info, nil
}

func fallRate(from, to math.Int, secs int64) math.Int {
	if secs <= 0 || !from.GT(to) {
		return math.ZeroInt()
	}
	return from.Sub(to).QuoRaw(secs)
}
