package types

import "fmt"

type LockupKind string

const (
	LockupKindNone     LockupKind = "unlocked"
	LockupKindCliff    LockupKind = "cliff"
	LockupKindConstant LockupKind = "constant"
)

func (k LockupKind) String() string {
	return string(k)
}

// LockupKindFromByte maps the on-chain enum discriminant.
func LockupKindFromByte(b byte) (LockupKind, error) {
	switch b {
	case 0:
		return LockupKindNone, nil
	case 1:
		return LockupKindCliff, nil
	case 2:
		return LockupKindConstant, nil
	default:
		return "", fmt.Errorf("invalid lockup kind: %d", b)
	}
}

type Lockup struct {
	StartTs int64      `json:"start_ts"`
	EndTs   int64      `json:"end_ts"`
	Kind    LockupKind `json:"kind"`
}

// Duration is the total lockup length in seconds, never negative.
func (l Lockup) Duration() int64 {
	if l.EndTs <= l.StartTs {
		return 0
	}
	return l.EndTs - l.StartTs
}
