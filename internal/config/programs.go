package config

import (
	"fmt"

	"github.com/vsrlabs/positions-indexer/internal/types"
)

const (
	defaultDaoProgramID      = "hdaoVTCqhfHHo75XdAMxBKdUqvq1i5bF23sisBqVgGR"
	defaultVsrProgramID      = "hvsrNC3NKbcryqDs2DocYHZ9yPKEVzdSjQG6RVtK1s8"
	defaultNetworkMint       = "hntyVP6YFm1Hg25TN9WGLqM12b8TQmcknKrdu1oxWux"
	defaultIotMint           = "iotEVVZLEywoTn1QdwNPddxPWszn3zFhEot3MfL9fns"
	defaultMobileMint        = "mb1eu7TzEc71KxDpsmsKoucSSuuoGLv1drys1oP2jh6"
	defaultIotSubDao         = "39Lw1RH6zt8AJvKn3BTxmUDofzduCM2J3kSaGDZ8L7Sk"
	defaultMobileSubDao      = "Gm9xDCJawDEKDrrQW6haw94gABaYzQwCq4ZQU8h8bd22"
	defaultPositionDataSize  = 180
	defaultEpochInfoDataSize = 204
)

// ProgramsConfig holds the on-chain addresses the indexer reads from.
type ProgramsConfig struct {
	DaoProgramID      string `mapstructure:"dao-program-id"`
	VsrProgramID      string `mapstructure:"vsr-program-id"`
	NetworkMint       string `mapstructure:"network-mint"`
	IotMint           string `mapstructure:"iot-mint"`
	MobileMint        string `mapstructure:"mobile-mint"`
	IotSubDao         string `mapstructure:"iot-sub-dao"`
	MobileSubDao      string `mapstructure:"mobile-sub-dao"`
	PositionDataSize  uint64 `mapstructure:"position-data-size"`
	EpochInfoDataSize uint64 `mapstructure:"epoch-info-data-size"`
}

func DefaultProgramsConfig() *ProgramsConfig {
	return &ProgramsConfig{
		DaoProgramID:      defaultDaoProgramID,
		VsrProgramID:      defaultVsrProgramID,
		NetworkMint:       defaultNetworkMint,
		IotMint:           defaultIotMint,
		MobileMint:        defaultMobileMint,
		IotSubDao:         defaultIotSubDao,
		MobileSubDao:      defaultMobileSubDao,
		PositionDataSize:  defaultPositionDataSize,
		EpochInfoDataSize: defaultEpochInfoDataSize,
	}
}

func (cfg *ProgramsConfig) Validate() error {
	_, err := cfg.Keys()
	return err
}

// ProgramKeys is the parsed form of ProgramsConfig.
type ProgramKeys struct {
	DaoProgram        types.PublicKey
	VsrProgram        types.PublicKey
	NetworkMint       types.PublicKey
	IotMint           types.PublicKey
	MobileMint        types.PublicKey
	IotSubDao         types.PublicKey
	MobileSubDao      types.PublicKey
	PositionDataSize  uint64
	EpochInfoDataSize uint64
}

func (cfg *ProgramsConfig) Keys() (*ProgramKeys, error) {
	keys := &ProgramKeys{
		PositionDataSize:  cfg.PositionDataSize,
		EpochInfoDataSize: cfg.EpochInfoDataSize,
	}
	fields := []struct {
		name  string
		value string
		dst   *types.PublicKey
	}{
		{"dao-program-id", cfg.DaoProgramID, &keys.DaoProgram},
		{"vsr-program-id", cfg.VsrProgramID, &keys.VsrProgram},
		{"network-mint", cfg.NetworkMint, &keys.NetworkMint},
		{"iot-mint", cfg.IotMint, &keys.IotMint},
		{"mobile-mint", cfg.MobileMint, &keys.MobileMint},
		{"iot-sub-dao", cfg.IotSubDao, &keys.IotSubDao},
		{"mobile-sub-dao", cfg.MobileSubDao, &keys.MobileSubDao},
	}
	for _, f := range fields {
		key, err := types.ParsePublicKey(f.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = key
	}
	if keys.PositionDataSize == 0 {
		return nil, fmt.Errorf("position-data-size should be positive")
	}
	if keys.EpochInfoDataSize == 0 {
		return nil, fmt.Errorf("epoch-info-data-size should be positive")
	}
	return keys, nil
}

// GroupingForMint maps a voting mint onto the snapshot grouping it feeds.
func (k *ProgramKeys) GroupingForMint(mint types.PublicKey) (types.Grouping, bool) {
	switch mint {
	case k.NetworkMint:
		return types.GroupingVeHnt, true
	case k.IotMint:
		return types.GroupingVeIot, true
	case k.MobileMint:
		return types.GroupingVeMobile, true
	default:
		return "", false
	}
}

func (k *ProgramKeys) MintForGrouping(g types.Grouping) types.PublicKey {
	switch g {
	case types.GroupingVeIot:
		return k.IotMint
	case types.GroupingVeMobile:
		return k.MobileMint
	default:
		return k.NetworkMint
	}
}

func (k *ProgramKeys) SubNetworkForSubDao(subDao types.PublicKey) (types.SubNetwork, error) {
	switch subDao {
	case k.IotSubDao:
		return types.SubNetworkIot, nil
	case k.MobileSubDao:
		return types.SubNetworkMobile, nil
	default:
		return types.SubNetworkUnknown, fmt.Errorf("%w: sub-dao %s", types.ErrUnknownSubNetwork, subDao)
	}
}
