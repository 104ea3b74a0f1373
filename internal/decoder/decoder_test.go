package decoder

import (
	"encoding/binary"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsrlabs/positions-indexer/internal/types"
	"github.com/vsrlabs/positions-indexer/testutil"
)

type writer struct {
	buf []byte
}

func (w *writer) bytes(b []byte) *writer { w.buf = append(w.buf, b...); return w }
func (w *writer) u8(v uint8) *writer     { w.buf = append(w.buf, v); return w }
func (w *writer) u16(v uint16) *writer {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
	return w
}
func (w *writer) u32(v uint32) *writer {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
	return w
}
func (w *writer) u64(v uint64) *writer {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
	return w
}
func (w *writer) i64(v int64) *writer           { return w.u64(uint64(v)) }
func (w *writer) u128(lo, hi uint64) *writer    { return w.u64(lo).u64(hi) }
func (w *writer) key(k types.PublicKey) *writer { return w.bytes(k[:]) }
func (w *writer) bool(v bool) *writer           { return w.u8(map[bool]uint8{false: 0, true: 1}[v]) }
func (w *writer) zeros(n int) *writer           { return w.bytes(make([]byte, n)) }

func TestDecodePosition(t *testing.T) {
	key := testutil.RandomPublicKey()
	registrar := testutil.RandomPublicKey()
	mint := testutil.RandomPublicKey()

	w := (&writer{}).bytes(PositionDiscriminator).
		key(registrar).key(mint).
		i64(1_700_000_000).i64(1_700_086_400).u8(1).
		u64(5_000_000_000).u8(0).u16(3).i64(1_690_000_000).
		zeros(40)

	rec, err := DecodePosition(key, w.buf)
	require.NoError(t, err)
	assert.Equal(t, key, rec.Key)
	assert.Equal(t, registrar, rec.Registrar)
	assert.Equal(t, mint, rec.Mint)
	assert.Equal(t, types.Lockup{StartTs: 1_700_000_000, EndTs: 1_700_086_400, Kind: types.LockupKindCliff}, rec.Lockup)
	assert.Equal(t, uint64(5_000_000_000), rec.Amount)
	assert.Equal(t, uint16(3), rec.NumActiveVotes)
	assert.Equal(t, int64(1_690_000_000), rec.GenesisEnd)
}

func TestDecodePositionErrors(t *testing.T) {
	key := testutil.RandomPublicKey()

	t.Run("wrong discriminator", func(t *testing.T) {
		data := (&writer{}).bytes(DelegationDiscriminator).zeros(200).buf
		_, err := DecodePosition(key, data)
		require.ErrorIs(t, err, types.ErrDecode)
	})

	t.Run("truncated", func(t *testing.T) {
		data := (&writer{}).bytes(PositionDiscriminator).zeros(40).buf
		_, err := DecodePosition(key, data)
		require.ErrorIs(t, err, types.ErrDecode)
	})

	t.Run("bad lockup kind", func(t *testing.T) {
		w := (&writer{}).bytes(PositionDiscriminator).
			key(key).key(key).i64(0).i64(0).u8(7).
			u64(1).u8(0).u16(0).i64(0)
		_, err := DecodePosition(key, w.buf)
		require.ErrorIs(t, err, types.ErrDecode)
	})
}

func TestDecodeRegistrar(t *testing.T) {
	key := testutil.RandomPublicKey()
	governingMint := testutil.RandomPublicKey()
	mint := testutil.RandomPublicKey()

	w := (&writer{}).bytes(RegistrarDiscriminator).
		zeros(64).key(governingMint).zeros(32).
		i64(42).
		bool(true).key(testutil.RandomPublicKey()).
		zeros(32).u8(255).u8(254).zeros(4 + 24).
		u32(1).
		key(mint).u64(0).u64(100_000_000_000).u8(3).i64(1_690_000_000).u64(126_144_000).u8(0xff)

	reg, err := DecodeRegistrar(key, w.buf)
	require.NoError(t, err)
	assert.Equal(t, governingMint, reg.RealmGoverningTokenMint)
	assert.Equal(t, int64(42), reg.TimeOffset)
	require.Len(t, reg.VotingMints, 1)

	cfg, ok := reg.VotingMint(0)
	require.True(t, ok)
	assert.Equal(t, types.VotingMintConfig{
		Mint:                                   mint,
		BaselineVoteWeightScaledFactor:         0,
		MaxExtraLockupVoteWeightScaledFactor:   100_000_000_000,
		GenesisVotePowerMultiplier:             3,
		GenesisVotePowerMultiplierExpirationTs: 1_690_000_000,
		LockupSaturationSecs:                   126_144_000,
		DigitShift:                             -1,
	}, cfg)

	_, ok = reg.VotingMint(1)
	assert.False(t, ok)
}

func TestDecodeRegistrarWithoutUpdateAuthority(t *testing.T) {
	w := (&writer{}).bytes(RegistrarDiscriminator).
		zeros(128).i64(0).
		bool(false).
		zeros(32).u8(0).u8(0).zeros(28).
		u32(0)

	reg, err := DecodeRegistrar(testutil.RandomPublicKey(), w.buf)
	require.NoError(t, err)
	assert.Empty(t, reg.VotingMints)
}

func TestDecodeDelegation(t *testing.T) {
	key := testutil.RandomPublicKey()
	position := testutil.RandomPublicKey()
	subDao := testutil.RandomPublicKey()

	w := (&writer{}).bytes(DelegationDiscriminator).
		key(testutil.RandomPublicKey()).key(position).
		u64(9_000).key(subDao).u64(19_500).i64(1_680_000_000).bool(false).u8(254)

	rec, err := DecodeDelegation(key, w.buf)
	require.NoError(t, err)
	assert.Equal(t, position, rec.PositionKey)
	assert.Equal(t, subDao, rec.SubDao)
	assert.Equal(t, uint64(9_000), rec.HntAmount)
	assert.Equal(t, uint64(19_500), rec.LastClaimedEpoch)
	assert.Equal(t, int64(1_680_000_000), rec.StartTs)
	assert.False(t, rec.Purged)
}

func TestDecodeEpochInfo(t *testing.T) {
	key := testutil.RandomPublicKey()
	subDao := testutil.RandomPublicKey()

	t.Run("issued", func(t *testing.T) {
		w := (&writer{}).bytes(EpochInfoDiscriminator).
			u64(19_600).key(subDao).u64(77).u64(1_000).
			u128(5, 0).u128(0, 1).u64(2_500).
			bool(true).u128(123, 0).
			bool(true).i64(1_693_440_100).
			u8(255).bool(true).u64(0).zeros(64)

		info, err := DecodeEpochInfo(key, w.buf)
		require.NoError(t, err)
		assert.Equal(t, uint64(19_600), info.Epoch)
		assert.Equal(t, subDao, info.SubDao)
		assert.Equal(t, uint64(77), info.DcBurned)
		assert.Equal(t, uint64(1_000), info.VotingWeightAtEpochStart)
		assert.True(t, math.NewInt(5).Equal(info.VotingWeightInClosingPositions))
		assert.Equal(t, "18446744073709551616", info.FallRatesFromClosingPositions.String())
		assert.Equal(t, uint64(2_500), info.DelegationRewardsIssued)
		require.NotNil(t, info.UtilityScore)
		assert.True(t, math.NewInt(123).Equal(*info.UtilityScore))
		require.NotNil(t, info.RewardsIssuedAt)
		assert.Equal(t, int64(1_693_440_100), *info.RewardsIssuedAt)
		assert.True(t, info.Initialized)
	})

	t.Run("pending", func(t *testing.T) {
		w := (&writer{}).bytes(EpochInfoDiscriminator).
			u64(19_601).key(subDao).u64(0).u64(0).
			u128(0, 0).u128(0, 0).u64(0).
			bool(false).bool(false).
			u8(255).bool(false)

		info, err := DecodeEpochInfo(key, w.buf)
		require.NoError(t, err)
		assert.Nil(t, info.UtilityScore)
		assert.Nil(t, info.RewardsIssuedAt)
		assert.False(t, info.Initialized)
	})
}

func TestDecodeTokenAccountOwner(t *testing.T) {
	owner := testutil.RandomPublicKey()
	data := (&writer{}).key(testutil.RandomPublicKey()).key(owner).u64(1).zeros(93).buf

	got, err := DecodeTokenAccountOwner(data)
	require.NoError(t, err)
	assert.Equal(t, owner, got)

	_, err = DecodeTokenAccountOwner(data[:40])
	require.ErrorIs(t, err, types.ErrDecode)
}

func TestDecodeTokenAccountAmount(t *testing.T) {
	data := (&writer{}).key(testutil.RandomPublicKey()).key(testutil.RandomPublicKey()).u64(12_345_678).zeros(93).buf

	got, err := DecodeTokenAccountAmount(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(12_345_678), got)

	_, err = DecodeTokenAccountAmount(data[:70])
	require.ErrorIs(t, err, types.ErrDecode)
}

func TestAccountDiscriminator(t *testing.T) {
	assert.Len(t, RegistrarDiscriminator, discriminatorLength)
	assert.Equal(t, RegistrarDiscriminator, AccountDiscriminator("Registrar"))
	assert.NotEqual(t, AccountDiscriminator("Registrar"), AccountDiscriminator("PositionV0"))
}
