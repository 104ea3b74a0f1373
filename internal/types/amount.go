package types

import (
	"cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

const (
	// NetworkTokenDecimals is the decimal precision of the network token.
	NetworkTokenDecimals int32 = 8
	// SubNetworkTokenDecimals is the decimal precision of the sub-network tokens.
	SubNetworkTokenDecimals int32 = 6
)

// FormatAmount renders a native integer amount with the given number of decimals.
func FormatAmount(amount math.Int, decimals int32) string {
	if amount.IsNil() {
		return "0"
	}
	return decimal.NewFromBigInt(amount.BigInt(), -decimals).String()
}

func FormatTokens(amount uint64, decimals int32) string {
	return FormatAmount(math.NewIntFromUint64(amount), decimals)
}

// Decimals returns the token precision used for a grouping's locked amounts.
func (g Grouping) Decimals() int32 {
	if g == GroupingVeHnt {
		return NetworkTokenDecimals
	}
	return SubNetworkTokenDecimals
}

// TokenBalance is a liquid token amount held in a wallet's associated token account.
type TokenBalance struct {
	Mint     PublicKey `json:"mint"`
	Amount   uint64    `json:"amount"`
	Decimals int32     `json:"decimals"`
}

func (b TokenBalance) String() string {
	return FormatTokens(b.Amount, b.Decimals)
}

// WalletBalances are the liquid balances of one owner.
type WalletBalances struct {
	Hnt    TokenBalance `json:"hnt"`
	Iot    TokenBalance `json:"iot"`
	Mobile TokenBalance `json:"mobile"`
}
