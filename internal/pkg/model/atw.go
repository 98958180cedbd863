package model

// OperationStatus is what the 3-way valve is doing right now. It is either
// idle, serving the hot water tank, or serving a zone, in which case its
// value equals that zone's control mode string.
type OperationStatus string

const (
	StatusIdle     OperationStatus = "Idle"
	StatusHotWater OperationStatus = "HotWater"
)

// ZoneControlMode is how a zone should be heated whenever the valve serves
// it. It can legitimately differ from the unit status: a zone configured for
// room-temperature control is idle while the valve is on the tank.
type ZoneControlMode string

const (
	ZoneModeRoomTemperature ZoneControlMode = "HeatRoomTemperature"
	ZoneModeFlowTemperature ZoneControlMode = "HeatFlowTemperature"
	ZoneModeWeatherCurve    ZoneControlMode = "WeatherCompensation"
)

// Safe set-point bounds. The cloud reports per-device bounds but those have
// been observed to be wrong, so these are always substituted.
const (
	ZoneTemperatureMin = 10.0
	ZoneTemperatureMax = 30.0
	TankTemperatureMin = 40.0
	TankTemperatureMax = 60.0
)

// ZoneHysteresis keeps zone activity derivation from chattering around the
// set-point.
const ZoneHysteresis = 0.5

type Zone struct {
	Present           bool
	ControlMode       ZoneControlMode
	TargetTemperature float64
	RoomTemperature   float64
}

type Dhw struct {
	TargetTemperature float64
	TankTemperature   float64
	ForcedProduction  bool
}

type AtwCapabilities struct {
	HasZone2           bool
	MinZoneTemperature float64
	MaxZoneTemperature float64
	MinTankTemperature float64
	MaxTankTemperature float64
}

// AtwUnit is one combined space-heating / hot-water heat pump.
type AtwUnit struct {
	ID              string
	Name            string
	Power           bool
	Standby         bool
	Status          OperationStatus
	Zones           [2]Zone
	Dhw             Dhw
	HasError        bool
	ErrorCode       int
	SignalStrength  int
	ControllerModel int
	Capabilities    AtwCapabilities
}

// EffectiveStatus folds the forced-DHW priority override into the reported
// status: while forced production is on and the tank is below target, the
// valve serves the tank no matter what any zone wants.
func (u *AtwUnit) EffectiveStatus() OperationStatus {
	if u.Power && u.Dhw.ForcedProduction && u.Dhw.TankTemperature < u.Dhw.TargetTemperature {
		return StatusHotWater
	}
	return u.Status
}

// ZoneActive reports whether the given zone (1 or 2) is being heated right
// now. A zone only heats when the valve is actually serving it; a zone below
// set-point while the valve is on the tank or the other zone is idle.
func (u *AtwUnit) ZoneActive(zone int) bool {
	if zone < 1 || zone > 2 {
		return false
	}
	z := u.Zones[zone-1]
	if !z.Present || !u.Power {
		return false
	}
	if u.EffectiveStatus() != OperationStatus(z.ControlMode) {
		return false
	}
	return z.RoomTemperature < z.TargetTemperature-ZoneHysteresis
}

// HeatingDhw reports whether the valve is currently serving the tank.
func (u *AtwUnit) HeatingDhw() bool {
	return u.Power && u.EffectiveStatus() == StatusHotWater
}

// Zone returns the zone struct for 1-based index zone, and whether it exists
// on this unit.
func (u *AtwUnit) Zone(zone int) (Zone, bool) {
	if zone < 1 || zone > 2 {
		return Zone{}, false
	}
	z := u.Zones[zone-1]
	return z, z.Present
}
