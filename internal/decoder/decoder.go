package decoder

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/vsrlabs/positions-indexer/internal/types"
)

const discriminatorLength = 8

var (
	PositionDiscriminator    = []byte{152, 131, 154, 46, 158, 42, 31, 233}
	DelegationDiscriminator  = []byte{251, 212, 32, 100, 102, 1, 247, 81}
	EpochInfoDiscriminator   = []byte{45, 249, 177, 20, 170, 251, 37, 37}
	RegistrarDiscriminator   = AccountDiscriminator("Registrar")
	maxVotingMintsPerAccount = 16
)

// AccountDiscriminator derives the 8-byte prefix of an Anchor account type.
func AccountDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("account:" + name))
	return sum[:discriminatorLength]
}

func checkDiscriminator(kind string, data, want []byte) (*reader, error) {
	if len(data) < discriminatorLength {
		return nil, fmt.Errorf("%w: %s account too short (%d bytes)", types.ErrDecode, kind, len(data))
	}
	if !bytes.Equal(data[:discriminatorLength], want) {
		return nil, fmt.Errorf("%w: %s discriminator mismatch", types.ErrDecode, kind)
	}
	r := newReader(data)
	r.skip(discriminatorLength)
	return r, nil
}

func DecodePosition(key types.PublicKey, data []byte) (types.PositionRecord, error) {
	r, err := checkDiscriminator("position", data, PositionDiscriminator)
	if err != nil {
		return types.PositionRecord{}, err
	}

	rec := types.PositionRecord{Key: key}
	rec.Registrar = r.pubkey()
	rec.Mint = r.pubkey()
	rec.Lockup.StartTs = r.i64()
	rec.Lockup.EndTs = r.i64()
	kind := r.u8()
	rec.Amount = r.u64()
	rec.VotingMintConfigIdx = r.u8()
	rec.NumActiveVotes = r.u16()
	rec.GenesisEnd = r.i64()
	if r.err != nil {
		return types.PositionRecord{}, fmt.Errorf("position %s: %w", key, r.err)
	}

	rec.Lockup.Kind, err = types.LockupKindFromByte(kind)
	if err != nil {
		return types.PositionRecord{}, fmt.Errorf("%w: position %s: %w", types.ErrDecode, key, err)
	}
	return rec, nil
}

func DecodeRegistrar(key types.PublicKey, data []byte) (types.Registrar, error) {
	r, err := checkDiscriminator("registrar", data, RegistrarDiscriminator)
	if err != nil {
		return types.Registrar{}, err
	}

	reg := types.Registrar{Key: key}
	r.pubkey() // governance program id
	r.pubkey() // realm
	reg.RealmGoverningTokenMint = r.pubkey()
	r.pubkey() // realm authority
	reg.TimeOffset = r.i64()
	r.optionPubkey() // position update authority
	r.pubkey()       // collection
	r.u8()           // bump
	r.u8()           // collection bump
	r.skip(4 + 3*8)  // reserved

	n := r.u32()
	if r.err == nil && int(n) > maxVotingMintsPerAccount {
		return types.Registrar{}, fmt.Errorf("%w: registrar %s declares %d voting mints", types.ErrDecode, key, n)
	}
	for i := uint32(0); i < n && r.err == nil; i++ {
		reg.VotingMints = append(reg.VotingMints, types.VotingMintConfig{
			Mint:                                   r.pubkey(),
			BaselineVoteWeightScaledFactor:         r.u64(),
			MaxExtraLockupVoteWeightScaledFactor:   r.u64(),
			GenesisVotePowerMultiplier:             r.u8(),
			GenesisVotePowerMultiplierExpirationTs: r.i64(),
			LockupSaturationSecs:                   r.u64(),
			DigitShift:                             r.i8(),
		})
	}
	if r.err != nil {
		return types.Registrar{}, fmt.Errorf("registrar %s: %w", key, r.err)
	}
	return reg, nil
}

func DecodeDelegation(key types.PublicKey, data []byte) (types.DelegationRecord, error) {
	r, err := checkDiscriminator("delegated position", data, DelegationDiscriminator)
	if err != nil {
		return types.DelegationRecord{}, err
	}

	rec := types.DelegationRecord{
		Key:              key,
		Mint:             r.pubkey(),
		PositionKey:      r.pubkey(),
		HntAmount:        r.u64(),
		SubDao:           r.pubkey(),
		LastClaimedEpoch: r.u64(),
		StartTs:          r.i64(),
		Purged:           r.bool(),
	}
	if r.err != nil {
		return types.DelegationRecord{}, fmt.Errorf("delegated position %s: %w", key, r.err)
	}
	return rec, nil
}

// DecodeEpochInfo decodes a sub-network epoch record. SubNetwork is left for
// the caller to resolve from SubDao.
func DecodeEpochInfo(key types.PublicKey, data []byte) (types.SubNetworkEpochInfo, error) {
	r, err := checkDiscriminator("epoch info", data, EpochInfoDiscriminator)
	if err != nil {
		return types.SubNetworkEpochInfo{}, err
	}

	info := types.SubNetworkEpochInfo{
		Key:                            key,
		Epoch:                          r.u64(),
		SubDao:                         r.pubkey(),
		DcBurned:                       r.u64(),
		VotingWeightAtEpochStart:       r.u64(),
		VotingWeightInClosingPositions: r.u128(),
		FallRatesFromClosingPositions:  r.u128(),
		DelegationRewardsIssued:        r.u64(),
		UtilityScore:                   r.optionU128(),
		RewardsIssuedAt:                r.optionI64(),
	}
	r.u8() // bump
	info.Initialized = r.bool()
	if r.err != nil {
		return types.SubNetworkEpochInfo{}, fmt.Errorf("epoch info %s: %w", key, r.err)
	}
	return info, nil
}

// DecodeTokenAccountOwner returns the owner of an SPL token account.
func DecodeTokenAccountOwner(data []byte) (types.PublicKey, error) {
	r := newReader(data)
	r.pubkey() // mint
	owner := r.pubkey()
	if r.err != nil {
		return types.PublicKey{}, fmt.Errorf("token account: %w", r.err)
	}
	return owner, nil
}

// DecodeTokenAccountAmount returns the raw balance of an SPL token account.
func DecodeTokenAccountAmount(data []byte) (uint64, error) {
	r := newReader(data)
	r.skip(2 * types.PublicKeyLength) // mint, owner
	amount := r.u64()
	if r.err != nil {
		return 0, fmt.Errorf("token account: %w", r.err)
	}
	return amount, nil
}
