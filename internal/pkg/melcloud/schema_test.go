package melcloud

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/model"
)

func settings(pairs map[string]string) []Setting {
	out := make([]Setting, 0, len(pairs))
	for name, value := range pairs {
		v := value
		out = append(out, Setting{Name: name, Value: &v})
	}
	return out
}

func atwWire(extra map[string]string) deviceWire {
	base := map[string]string{
		"Power":                   "True",
		"InStandby":               "False",
		"OperationMode":           "HeatRoomTemperature",
		"OperationModeZone1":      "HeatRoomTemperature",
		"SetTemperatureZone1":     "21",
		"RoomTemperatureZone1":    "19.5",
		"SetTankWaterTemperature": "50",
		"TankWaterTemperature":    "47.5",
		"ForcedHotWaterMode":      "False",
		"HasZone2":                "0",
		"HasError":                "False",
		"ErrorCode":               "8000",
		"WifiSignalStrength":      "-61",
		"ControllerType":          "3",
	}
	for k, v := range extra {
		base[k] = v
	}
	return deviceWire{DeviceID: 42, Name: "Heat Pump", Settings: settings(base)}
}

func TestParseAtwUnit(t *testing.T) {
	unit, err := parseAtwUnit(atwWire(nil), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "42", unit.ID)
	assert.Equal(t, "Heat Pump", unit.Name)
	assert.True(t, unit.Power)
	assert.False(t, unit.Standby)
	assert.Equal(t, model.OperationStatus(model.ZoneModeRoomTemperature), unit.Status)
	assert.True(t, unit.Zones[0].Present)
	assert.Equal(t, model.ZoneModeRoomTemperature, unit.Zones[0].ControlMode)
	assert.Equal(t, 21.0, unit.Zones[0].TargetTemperature)
	assert.Equal(t, 19.5, unit.Zones[0].RoomTemperature)
	assert.False(t, unit.Zones[1].Present)
	assert.Equal(t, 50.0, unit.Dhw.TargetTemperature)
	assert.Equal(t, 47.5, unit.Dhw.TankTemperature)
	assert.Equal(t, 8000, unit.ErrorCode)
	assert.Equal(t, -61, unit.SignalStrength)
	assert.Equal(t, 3, unit.ControllerModel)
}

func TestParseAtwUnitZone2Complete(t *testing.T) {
	unit, err := parseAtwUnit(atwWire(map[string]string{
		"HasZone2":             "1",
		"OperationModeZone2":   "WeatherCompensation",
		"SetTemperatureZone2":  "19",
		"RoomTemperatureZone2": "18.2",
	}), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.True(t, unit.Zones[1].Present)
	assert.True(t, unit.Capabilities.HasZone2)
	assert.Equal(t, model.ZoneModeWeatherCurve, unit.Zones[1].ControlMode)
}

func TestParseAtwUnitZone2FlaggedButDataMissing(t *testing.T) {
	// Existence flag set, zone 2 data fields absent: treated as malformed,
	// zone 2 ignored for this poll.
	unit, err := parseAtwUnit(atwWire(map[string]string{"HasZone2": "1"}), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, unit.Zones[1].Present)
	assert.False(t, unit.Capabilities.HasZone2)
}

func TestParseAtwUnitSubstitutesSafeBounds(t *testing.T) {
	// The cloud reports absurd bounds; the fixed safe bounds always win.
	unit, err := parseAtwUnit(atwWire(map[string]string{
		"MinSetTemperatureZone": "5",
		"MaxSetTemperatureZone": "50",
		"MinSetTankTemperature": "20",
		"MaxSetTankTemperature": "75",
	}), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, model.ZoneTemperatureMin, unit.Capabilities.MinZoneTemperature)
	assert.Equal(t, model.ZoneTemperatureMax, unit.Capabilities.MaxZoneTemperature)
	assert.Equal(t, model.TankTemperatureMin, unit.Capabilities.MinTankTemperature)
	assert.Equal(t, model.TankTemperatureMax, unit.Capabilities.MaxTankTemperature)
}

func TestParseAtwUnitUnknownFieldIgnored(t *testing.T) {
	unit, err := parseAtwUnit(atwWire(map[string]string{"SomeNewFirmwareField": "7"}), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "42", unit.ID)
}

func TestParseAtwUnitMalformedBoolean(t *testing.T) {
	_, err := parseAtwUnit(atwWire(map[string]string{"Power": "yes"}), zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestParseAtwUnitUnknownStatus(t *testing.T) {
	_, err := parseAtwUnit(atwWire(map[string]string{"OperationMode": "Defrosting"}), zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestParseAtaUnit(t *testing.T) {
	wire := deviceWire{DeviceID: 7, Name: "Living Room", Settings: settings(map[string]string{
		"Power":              "True",
		"InStandby":          "False",
		"OperationMode":      "Heat",
		"SetTemperature":     "22",
		"RoomTemperature":    "20.5",
		"FanSpeed":           "3",
		"VaneVertical":       "Swing",
		"VaneHorizontal":     "Auto",
		"HasError":           "False",
		"WifiSignalStrength": "-48",
		"NumberOfFanSpeeds":  "5",
		"HasVaneSwing":       "True",
		"CanHeat":            "True",
		"CanCool":            "True",
		"CanDry":             "False",
		"CanFan":             "True",
		"CanAuto":            "False",
		"MinSetTemperature":  "16",
		"MaxSetTemperature":  "31",
	})}

	unit, err := parseAtaUnit(wire, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "7", unit.ID)
	assert.True(t, unit.Power)
	assert.Equal(t, model.AtaModeHeat, unit.Mode)
	assert.Equal(t, 22.0, unit.SetTemperature)
	assert.Equal(t, 3, unit.FanSpeed)
	assert.Equal(t, model.VanePositionSwing, unit.VaneVertical)
	assert.ElementsMatch(t,
		[]model.AtaOperationMode{model.AtaModeHeat, model.AtaModeCool, model.AtaModeFan},
		unit.Capabilities.SupportedModes)
	// Reported bounds never trusted.
	assert.Equal(t, model.AtaTemperatureMin, unit.Capabilities.MinSetTemperature)
	assert.Equal(t, model.AtaTemperatureMax, unit.Capabilities.MaxSetTemperature)
}

func TestParseWireBool(t *testing.T) {
	for raw, want := range map[string]bool{"True": true, "False": false, "true": true, "false": false} {
		got, err := parseWireBool(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := parseWireBool("1")
	assert.Error(t, err)
}
