package types

import "fmt"

// SubNetwork identifies the sub-network a position is delegated to. The
// zero value is SubNetworkUnknown.
type SubNetwork uint8

const (
	SubNetworkUnknown SubNetwork = iota
	SubNetworkIot
	SubNetworkMobile
)

var subNetworkNames = map[SubNetwork]string{
	SubNetworkUnknown: "unknown",
	SubNetworkIot:     "iot",
	SubNetworkMobile:  "mobile",
}

func (s SubNetwork) String() string {
	if name, ok := subNetworkNames[s]; ok {
		return name
	}
	return fmt.Sprintf("subnetwork(%d)", uint8(s))
}

func (s SubNetwork) Validate() error {
	if _, ok := subNetworkNames[s]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSubNetwork, s)
	}
	return nil
}

func (s SubNetwork) MarshalText() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return []byte(s.String()), nil
}

func (s *SubNetwork) UnmarshalText(text []byte) error {
	parsed, err := SubNetworkFromString(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func SubNetworkFromString(name string) (SubNetwork, error) {
	for s, n := range subNetworkNames {
		if n == name {
			return s, nil
		}
	}
	return SubNetworkUnknown, fmt.Errorf("%w: %q", ErrUnknownSubNetwork, name)
}

// Grouping names a position pool inside a snapshot.
type Grouping string

const (
	// GroupingVeHnt is the network-wide stake pool, the only one carrying delegations.
	GroupingVeHnt    Grouping = "vehnt"
	GroupingVeIot    Grouping = "veiot"
	GroupingVeMobile Grouping = "vemobile"
)

func (g Grouping) String() string {
	return string(g)
}

func AllGroupings() []Grouping {
	return []Grouping{GroupingVeHnt, GroupingVeIot, GroupingVeMobile}
}

func GroupingFromString(s string) (Grouping, error) {
	switch Grouping(s) {
	case GroupingVeHnt, GroupingVeIot, GroupingVeMobile:
		return Grouping(s), nil
	default:
		return "", fmt.Errorf("invalid grouping: %s", s)
	}
}
