package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func heatingUnit() AtwUnit {
	return AtwUnit{
		ID:     "1234",
		Power:  true,
		Status: OperationStatus(ZoneModeRoomTemperature),
		Zones: [2]Zone{
			{
				Present:           true,
				ControlMode:       ZoneModeRoomTemperature,
				TargetTemperature: 21.0,
				RoomTemperature:   19.0,
			},
		},
		Dhw: Dhw{
			TargetTemperature: 50.0,
			TankTemperature:   48.0,
		},
	}
}

func TestZoneActive(t *testing.T) {
	tests := []struct {
		name   string
		modify func(u *AtwUnit)
		zone   int
		active bool
	}{
		{
			name:   "zone below setpoint and valve serving it",
			modify: func(u *AtwUnit) {},
			zone:   1,
			active: true,
		},
		{
			name: "zone at setpoint",
			modify: func(u *AtwUnit) {
				u.Zones[0].RoomTemperature = 21.0
			},
			zone:   1,
			active: false,
		},
		{
			name: "within hysteresis band",
			modify: func(u *AtwUnit) {
				u.Zones[0].RoomTemperature = 20.7
			},
			zone:   1,
			active: false,
		},
		{
			name: "valve on tank while zone below setpoint",
			modify: func(u *AtwUnit) {
				u.Status = StatusHotWater
				u.Zones[0].RoomTemperature = 18.0
			},
			zone:   1,
			active: false,
		},
		{
			name: "valve on other zone while zone below setpoint",
			modify: func(u *AtwUnit) {
				u.Zones[1] = Zone{
					Present:           true,
					ControlMode:       ZoneModeFlowTemperature,
					TargetTemperature: 22.0,
					RoomTemperature:   18.0,
				}
				u.Status = OperationStatus(ZoneModeFlowTemperature)
			},
			zone:   1,
			active: false,
		},
		{
			name: "unit powered off",
			modify: func(u *AtwUnit) {
				u.Power = false
			},
			zone:   1,
			active: false,
		},
		{
			name: "unit idle",
			modify: func(u *AtwUnit) {
				u.Status = StatusIdle
			},
			zone:   1,
			active: false,
		},
		{
			name: "forced hot water suspends zone heating",
			modify: func(u *AtwUnit) {
				u.Dhw.ForcedProduction = true
				u.Zones[0].RoomTemperature = 17.0
			},
			zone:   1,
			active: false,
		},
		{
			name: "forced hot water with tank already at target",
			modify: func(u *AtwUnit) {
				u.Dhw.ForcedProduction = true
				u.Dhw.TankTemperature = 50.0
			},
			zone:   1,
			active: true,
		},
		{
			name:   "absent zone",
			modify: func(u *AtwUnit) {},
			zone:   2,
			active: false,
		},
		{
			name:   "out of range zone index",
			modify: func(u *AtwUnit) {},
			zone:   3,
			active: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u := heatingUnit()
			tc.modify(&u)
			assert.Equal(t, tc.active, u.ZoneActive(tc.zone))
		})
	}
}

func TestEffectiveStatusForcedHotWater(t *testing.T) {
	u := heatingUnit()
	u.Dhw.ForcedProduction = true

	// Tank below target: override wins regardless of zone temperature error.
	u.Zones[0].RoomTemperature = 15.0
	assert.Equal(t, StatusHotWater, u.EffectiveStatus())
	assert.True(t, u.HeatingDhw())

	// Tank reached target: override ends, reported status applies again.
	u.Dhw.TankTemperature = 50.0
	assert.Equal(t, OperationStatus(ZoneModeRoomTemperature), u.EffectiveStatus())
	assert.False(t, u.HeatingDhw())
}

func TestEffectiveStatusPoweredOff(t *testing.T) {
	u := heatingUnit()
	u.Power = false
	u.Status = StatusIdle
	u.Dhw.ForcedProduction = true
	assert.Equal(t, StatusIdle, u.EffectiveStatus())
}

func TestSupportsMode(t *testing.T) {
	u := AtaUnit{Capabilities: AtaCapabilities{
		SupportedModes: []AtaOperationMode{AtaModeHeat, AtaModeCool},
	}}
	assert.True(t, u.SupportsMode(AtaModeHeat))
	assert.False(t, u.SupportsMode(AtaModeDry))
}
