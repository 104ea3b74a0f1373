package services

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"

	"cosmossdk.io/math"

	"github.com/vsrlabs/positions-indexer/internal/clients/chainclient"
	"github.com/vsrlabs/positions-indexer/internal/config"
	"github.com/vsrlabs/positions-indexer/internal/decoder"
	"github.com/vsrlabs/positions-indexer/internal/types"
	"github.com/vsrlabs/positions-indexer/testutil"
)

// fakeChain is an in-memory ledger answering the queries the pipeline makes.
type fakeChain struct {
	mu           sync.Mutex
	accounts     map[types.PublicKey][]byte
	programs     map[types.PublicKey][]chainclient.KeyedAccount
	holders      map[types.PublicKey]types.PublicKey // mint -> token account
	supply       map[types.PublicKey]math.Int
	holderLookup int
	scanErr      error
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		accounts: make(map[types.PublicKey][]byte),
		programs: make(map[types.PublicKey][]chainclient.KeyedAccount),
		holders:  make(map[types.PublicKey]types.PublicKey),
		supply:   make(map[types.PublicKey]math.Int),
	}
}

func (c *fakeChain) GetAccountInfo(_ context.Context, key types.PublicKey) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.accounts[key]
	if !ok {
		return nil, types.ErrAccountNotFound
	}
	return data, nil
}

func (c *fakeChain) GetMultipleAccounts(_ context.Context, keys []types.PublicKey) ([][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = c.accounts[k]
	}
	return out, nil
}

func (c *fakeChain) GetProgramAccounts(
	_ context.Context, program types.PublicKey, filters ...chainclient.Filter,
) ([]chainclient.KeyedAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scanErr != nil {
		return nil, c.scanErr
	}

	var out []chainclient.KeyedAccount
	for _, acc := range c.programs[program] {
		if matches(acc.Data, filters) {
			out = append(out, acc)
		}
	}
	return out, nil
}

func matches(data []byte, filters []chainclient.Filter) bool {
	for _, f := range filters {
		if f.Memcmp != nil {
			end := int(f.Memcmp.Offset) + len(f.Memcmp.Bytes)
			if end > len(data) || !bytes.Equal(data[f.Memcmp.Offset:end], f.Memcmp.Bytes) {
				return false
			}
			continue
		}
		if uint64(len(data)) != f.DataSize {
			return false
		}
	}
	return true
}

func (c *fakeChain) GetTokenSupply(_ context.Context, mint types.PublicKey) (math.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.supply[mint]; ok {
		return s, nil
	}
	return math.ZeroInt(), nil
}

func (c *fakeChain) GetTokenLargestAccounts(_ context.Context, mint types.PublicKey) ([]types.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holderLookup++
	if acc, ok := c.holders[mint]; ok {
		return []types.PublicKey{acc}, nil
	}
	return nil, nil
}

func (c *fakeChain) addProgramAccount(program, key types.PublicKey, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.programs[program] = append(c.programs[program], chainclient.KeyedAccount{Key: key, Data: data})
}

// addPosition stores a position account and makes owner the holder of its token.
func (c *fakeChain) addPosition(keys *config.ProgramKeys, rec types.PositionRecord, owner *types.PublicKey) {
	c.addProgramAccount(keys.VsrProgram, rec.Key, encodePosition(rec, int(keys.PositionDataSize)))
	if owner == nil {
		return
	}
	tokenAccount := testutil.RandomPublicKey()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holders[rec.Mint] = tokenAccount
	c.accounts[tokenAccount] = encodeTokenAccount(rec.Mint, *owner)
}

func (c *fakeChain) addRegistrar(reg types.Registrar) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[reg.Key] = encodeRegistrar(reg)
}

func (c *fakeChain) holderLookups() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.holderLookup
}

func testProgramKeys() *config.ProgramKeys {
	return &config.ProgramKeys{
		DaoProgram:        testutil.RandomPublicKey(),
		VsrProgram:        testutil.RandomPublicKey(),
		NetworkMint:       testutil.RandomPublicKey(),
		IotMint:           testutil.RandomPublicKey(),
		MobileMint:        testutil.RandomPublicKey(),
		IotSubDao:         testutil.RandomPublicKey(),
		MobileSubDao:      testutil.RandomPublicKey(),
		PositionDataSize:  180,
		EpochInfoDataSize: 204,
	}
}

type staticEpochs []types.EpochSummary

func (e staticEpochs) Latest() []types.EpochSummary { return e }

// borsh is a minimal little-endian writer for building account fixtures.
type borsh struct{ buf []byte }

func (b *borsh) raw(p []byte) *borsh          { b.buf = append(b.buf, p...); return b }
func (b *borsh) key(k types.PublicKey) *borsh { return b.raw(k[:]) }
func (b *borsh) u8(v uint8) *borsh            { b.buf = append(b.buf, v); return b }
func (b *borsh) u16(v uint16) *borsh          { b.buf = binary.LittleEndian.AppendUint16(b.buf, v); return b }
func (b *borsh) u32(v uint32) *borsh          { b.buf = binary.LittleEndian.AppendUint32(b.buf, v); return b }
func (b *borsh) u64(v uint64) *borsh          { b.buf = binary.LittleEndian.AppendUint64(b.buf, v); return b }
func (b *borsh) i64(v int64) *borsh           { return b.u64(uint64(v)) }
func (b *borsh) pad(size int) []byte {
	if len(b.buf) < size {
		b.buf = append(b.buf, make([]byte, size-len(b.buf))...)
	}
	return b.buf
}

func lockupKindByte(k types.LockupKind) uint8 {
	switch k {
	case types.LockupKindCliff:
		return 1
	case types.LockupKindConstant:
		return 2
	default:
		return 0
	}
}

func encodePosition(rec types.PositionRecord, size int) []byte {
	b := (&borsh{}).raw(decoder.PositionDiscriminator).
		key(rec.Registrar).key(rec.Mint).
		i64(rec.Lockup.StartTs).i64(rec.Lockup.EndTs).u8(lockupKindByte(rec.Lockup.Kind)).
		u64(rec.Amount).u8(rec.VotingMintConfigIdx).u16(rec.NumActiveVotes).i64(rec.GenesisEnd)
	return b.pad(size)
}

func encodeRegistrar(reg types.Registrar) []byte {
	b := (&borsh{}).raw(decoder.RegistrarDiscriminator).
		raw(make([]byte, 64)).key(reg.RealmGoverningTokenMint).raw(make([]byte, 32)).
		i64(reg.TimeOffset).
		u8(0).
		raw(make([]byte, 32)).u8(0).u8(0).raw(make([]byte, 28)).
		u32(uint32(len(reg.VotingMints)))
	for _, m := range reg.VotingMints {
		b.key(m.Mint).
			u64(m.BaselineVoteWeightScaledFactor).
			u64(m.MaxExtraLockupVoteWeightScaledFactor).
			u8(m.GenesisVotePowerMultiplier).
			i64(m.GenesisVotePowerMultiplierExpirationTs).
			u64(m.LockupSaturationSecs).
			u8(uint8(m.DigitShift))
	}
	return b.buf
}

func encodeDelegation(rec types.DelegationRecord) []byte {
	purged := uint8(0)
	if rec.Purged {
		purged = 1
	}
	return (&borsh{}).raw(decoder.DelegationDiscriminator).
		key(rec.Mint).key(rec.PositionKey).u64(rec.HntAmount).key(rec.SubDao).
		u64(rec.LastClaimedEpoch).i64(rec.StartTs).u8(purged).u8(255).buf
}

func encodeEpochInfo(info types.SubNetworkEpochInfo, size int) []byte {
	b := (&borsh{}).raw(decoder.EpochInfoDiscriminator).
		u64(info.Epoch).key(info.SubDao).u64(info.DcBurned).u64(info.VotingWeightAtEpochStart).
		u64(0).u64(0).u64(0).u64(0).
		u64(info.DelegationRewardsIssued)
	if info.UtilityScore != nil {
		b.u8(1).u64(info.UtilityScore.Uint64()).u64(0)
	} else {
		b.u8(0)
	}
	if info.RewardsIssuedAt != nil {
		b.u8(1).i64(*info.RewardsIssuedAt)
	} else {
		b.u8(0)
	}
	initialized := uint8(0)
	if info.Initialized {
		initialized = 1
	}
	b.u8(255).u8(initialized)
	return b.pad(size)
}

func encodeTokenAccount(mint, owner types.PublicKey) []byte {
	return (&borsh{}).key(mint).key(owner).u64(1).pad(165)
}
