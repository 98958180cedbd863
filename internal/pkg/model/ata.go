package model

import "github.com/samber/lo"

type AtaOperationMode string

const (
	AtaModeHeat AtaOperationMode = "Heat"
	AtaModeDry  AtaOperationMode = "Dry"
	AtaModeCool AtaOperationMode = "Cool"
	AtaModeFan  AtaOperationMode = "Fan"
	AtaModeAuto AtaOperationMode = "Auto"
)

// VanePositionAuto / VanePositionSwing plus "1".."5" are the accepted
// positions for both vane axes.
const (
	VanePositionAuto  = "Auto"
	VanePositionSwing = "Swing"
)

// Safe set-point bounds for air-to-air units. The cloud reports its own
// bounds per device but those are never trusted, see AtaCapabilities.
const (
	AtaTemperatureMin = 10.0
	AtaTemperatureMax = 31.0
)

type AtaCapabilities struct {
	MinSetTemperature float64
	MaxSetTemperature float64
	SupportedModes    []AtaOperationMode
	NumberOfFanSpeeds int
	HasVaneSwing      bool
}

// AtaUnit is one air-to-air (split system) appliance. Units are
// reconstructed fresh on every poll; ID is the only stable handle.
type AtaUnit struct {
	ID              string
	Name            string
	Power           bool
	Standby         bool
	Mode            AtaOperationMode
	SetTemperature  float64
	RoomTemperature float64
	FanSpeed        int
	VaneVertical    string
	VaneHorizontal  string
	HasError        bool
	SignalStrength  int
	Capabilities    AtaCapabilities
}

func (u *AtaUnit) SupportsMode(mode AtaOperationMode) bool {
	return lo.Contains(u.Capabilities.SupportedModes, mode)
}
