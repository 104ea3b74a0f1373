package decoder

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"cosmossdk.io/math"

	"github.com/vsrlabs/positions-indexer/internal/types"
)

// reader walks a little-endian Borsh buffer. The first failure sticks, so
// callers check err once after reading a whole struct.
type reader struct {
	data []byte
	off  int
	err  error
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", types.ErrDecode, n, r.off, len(r.data))
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) skip(n int) {
	r.take(n)
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) i8() int8 {
	return int8(r.u8())
}

func (r *reader) bool() bool {
	v := r.u8()
	if v > 1 && r.err == nil {
		r.err = fmt.Errorf("%w: invalid bool %d at offset %d", types.ErrDecode, v, r.off-1)
	}
	return v == 1
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) i64() int64 {
	return int64(r.u64())
}

func (r *reader) u128() math.Int {
	lo := r.u64()
	hi := r.u64()
	v := new(big.Int).SetUint64(hi)
	v.Lsh(v, 64)
	v.Or(v, new(big.Int).SetUint64(lo))
	return math.NewIntFromBigInt(v)
}

func (r *reader) pubkey() types.PublicKey {
	var key types.PublicKey
	b := r.take(types.PublicKeyLength)
	if b != nil {
		copy(key[:], b)
	}
	return key
}

// option reads a Borsh Option tag.
func (r *reader) option() bool {
	return r.bool()
}

func (r *reader) optionU128() *math.Int {
	if !r.option() {
		return nil
	}
	v := r.u128()
	return &v
}

func (r *reader) optionI64() *int64 {
	if !r.option() {
		return nil
	}
	v := r.i64()
	return &v
}

func (r *reader) optionPubkey() *types.PublicKey {
	if !r.option() {
		return nil
	}
	v := r.pubkey()
	return &v
}
