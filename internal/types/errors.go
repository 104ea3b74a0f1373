package types

import "errors"

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrDecode              = errors.New("failed to decode account data")
	ErrUnknownSubNetwork   = errors.New("unknown sub-network")
	ErrUnknownMint         = errors.New("unknown voting mint")
	ErrMissingPosition     = errors.New("delegation references missing position")
	ErrNonContiguousEpochs = errors.New("epoch history is not contiguous")
	ErrZeroEpochWeight     = errors.New("sub-network voting weight at epoch start is zero")
	ErrMissingEpochStart   = errors.New("epoch start timestamp is missing")
	ErrNumericOverflow     = errors.New("numeric overflow")
	ErrInvalidVotingConfig = errors.New("invalid voting mint config")
)
