package melcloud

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/model"
)

// The cloud reports device state as a flat name/value list. Each known name
// maps to a typed setter here; unknown names are logged and skipped so new
// firmware fields never break a poll.

type ataParseState struct {
	unit       model.AtaUnit
	wireMinSet *float64
	wireMaxSet *float64
	canHeat    bool
	canCool    bool
	canDry     bool
	canFan     bool
	canAuto    bool
}

var ataSchema = map[string]func(st *ataParseState, raw string) error{
	"Power": func(st *ataParseState, raw string) (err error) {
		st.unit.Power, err = parseWireBool(raw)
		return err
	},
	"InStandby": func(st *ataParseState, raw string) (err error) {
		st.unit.Standby, err = parseWireBool(raw)
		return err
	},
	"OperationMode": func(st *ataParseState, raw string) error {
		mode := model.AtaOperationMode(raw)
		if !validAtaMode(mode) {
			return fmt.Errorf("unknown operation mode %q", raw)
		}
		st.unit.Mode = mode
		return nil
	},
	"SetTemperature": func(st *ataParseState, raw string) (err error) {
		st.unit.SetTemperature, err = parseWireFloat(raw)
		return err
	},
	"RoomTemperature": func(st *ataParseState, raw string) (err error) {
		st.unit.RoomTemperature, err = parseWireFloat(raw)
		return err
	},
	"FanSpeed": func(st *ataParseState, raw string) (err error) {
		st.unit.FanSpeed, err = parseWireInt(raw)
		return err
	},
	"VaneVertical": func(st *ataParseState, raw string) error {
		st.unit.VaneVertical = raw
		return nil
	},
	"VaneHorizontal": func(st *ataParseState, raw string) error {
		st.unit.VaneHorizontal = raw
		return nil
	},
	"HasError": func(st *ataParseState, raw string) (err error) {
		st.unit.HasError, err = parseWireBool(raw)
		return err
	},
	"WifiSignalStrength": func(st *ataParseState, raw string) (err error) {
		st.unit.SignalStrength, err = parseWireInt(raw)
		return err
	},
	"NumberOfFanSpeeds": func(st *ataParseState, raw string) (err error) {
		st.unit.Capabilities.NumberOfFanSpeeds, err = parseWireInt(raw)
		return err
	},
	"HasVaneSwing": func(st *ataParseState, raw string) (err error) {
		st.unit.Capabilities.HasVaneSwing, err = parseWireBool(raw)
		return err
	},
	"MinSetTemperature": func(st *ataParseState, raw string) error {
		v, err := parseWireFloat(raw)
		if err != nil {
			return err
		}
		st.wireMinSet = &v
		return nil
	},
	"MaxSetTemperature": func(st *ataParseState, raw string) error {
		v, err := parseWireFloat(raw)
		if err != nil {
			return err
		}
		st.wireMaxSet = &v
		return nil
	},
	"CanHeat": func(st *ataParseState, raw string) (err error) {
		st.canHeat, err = parseWireBool(raw)
		return err
	},
	"CanCool": func(st *ataParseState, raw string) (err error) {
		st.canCool, err = parseWireBool(raw)
		return err
	},
	"CanDry": func(st *ataParseState, raw string) (err error) {
		st.canDry, err = parseWireBool(raw)
		return err
	},
	"CanFan": func(st *ataParseState, raw string) (err error) {
		st.canFan, err = parseWireBool(raw)
		return err
	},
	"CanAuto": func(st *ataParseState, raw string) (err error) {
		st.canAuto, err = parseWireBool(raw)
		return err
	},
}

func parseAtaUnit(d deviceWire, logger *zap.Logger) (model.AtaUnit, error) {
	st := ataParseState{}
	st.unit.ID = strconv.Itoa(d.DeviceID)
	st.unit.Name = d.Name

	if err := applySchema(d, logger, func(name, raw string) (bool, error) {
		set, ok := ataSchema[name]
		if !ok {
			return false, nil
		}
		return true, set(&st, raw)
	}); err != nil {
		return model.AtaUnit{}, err
	}

	modes := []model.AtaOperationMode{}
	for mode, can := range map[model.AtaOperationMode]bool{
		model.AtaModeHeat: st.canHeat,
		model.AtaModeCool: st.canCool,
		model.AtaModeDry:  st.canDry,
		model.AtaModeFan:  st.canFan,
		model.AtaModeAuto: st.canAuto,
	} {
		if can {
			modes = append(modes, mode)
		}
	}
	st.unit.Capabilities.SupportedModes = modes

	st.unit.Capabilities.MinSetTemperature = substituteBound(
		logger, st.unit.ID, "MinSetTemperature", st.wireMinSet, model.AtaTemperatureMin)
	st.unit.Capabilities.MaxSetTemperature = substituteBound(
		logger, st.unit.ID, "MaxSetTemperature", st.wireMaxSet, model.AtaTemperatureMax)

	return st.unit, nil
}

type atwParseState struct {
	unit        model.AtwUnit
	hasZone2    bool
	zone2Fields int
	wireBounds  map[string]*float64
}

// zone2DataFields are the per-zone data fields zone 2 must report for us to
// trust its existence flag for this poll.
const zone2DataFields = 3

var atwSchema = map[string]func(st *atwParseState, raw string) error{
	"Power": func(st *atwParseState, raw string) (err error) {
		st.unit.Power, err = parseWireBool(raw)
		return err
	},
	"InStandby": func(st *atwParseState, raw string) (err error) {
		st.unit.Standby, err = parseWireBool(raw)
		return err
	},
	"OperationMode": func(st *atwParseState, raw string) error {
		status := model.OperationStatus(raw)
		if !validAtwStatus(status) {
			return fmt.Errorf("unknown operation status %q", raw)
		}
		st.unit.Status = status
		return nil
	},
	"OperationModeZone1": func(st *atwParseState, raw string) error {
		mode := model.ZoneControlMode(raw)
		if !validZoneMode(mode) {
			return fmt.Errorf("unknown zone control mode %q", raw)
		}
		st.unit.Zones[0].ControlMode = mode
		return nil
	},
	"OperationModeZone2": func(st *atwParseState, raw string) error {
		mode := model.ZoneControlMode(raw)
		if !validZoneMode(mode) {
			return fmt.Errorf("unknown zone control mode %q", raw)
		}
		st.unit.Zones[1].ControlMode = mode
		st.zone2Fields++
		return nil
	},
	"SetTemperatureZone1": func(st *atwParseState, raw string) (err error) {
		st.unit.Zones[0].TargetTemperature, err = parseWireFloat(raw)
		return err
	},
	"RoomTemperatureZone1": func(st *atwParseState, raw string) (err error) {
		st.unit.Zones[0].RoomTemperature, err = parseWireFloat(raw)
		return err
	},
	"SetTemperatureZone2": func(st *atwParseState, raw string) (err error) {
		st.unit.Zones[1].TargetTemperature, err = parseWireFloat(raw)
		if err == nil {
			st.zone2Fields++
		}
		return err
	},
	"RoomTemperatureZone2": func(st *atwParseState, raw string) (err error) {
		st.unit.Zones[1].RoomTemperature, err = parseWireFloat(raw)
		if err == nil {
			st.zone2Fields++
		}
		return err
	},
	"SetTankWaterTemperature": func(st *atwParseState, raw string) (err error) {
		st.unit.Dhw.TargetTemperature, err = parseWireFloat(raw)
		return err
	},
	"TankWaterTemperature": func(st *atwParseState, raw string) (err error) {
		st.unit.Dhw.TankTemperature, err = parseWireFloat(raw)
		return err
	},
	"ForcedHotWaterMode": func(st *atwParseState, raw string) (err error) {
		st.unit.Dhw.ForcedProduction, err = parseWireBool(raw)
		return err
	},
	"HasZone2": func(st *atwParseState, raw string) (err error) {
		st.hasZone2, err = parseWireFlag(raw)
		return err
	},
	"HasError": func(st *atwParseState, raw string) (err error) {
		st.unit.HasError, err = parseWireBool(raw)
		return err
	},
	"ErrorCode": func(st *atwParseState, raw string) (err error) {
		st.unit.ErrorCode, err = parseWireInt(raw)
		return err
	},
	"WifiSignalStrength": func(st *atwParseState, raw string) (err error) {
		st.unit.SignalStrength, err = parseWireInt(raw)
		return err
	},
	"ControllerType": func(st *atwParseState, raw string) (err error) {
		st.unit.ControllerModel, err = parseWireInt(raw)
		return err
	},
	"MinSetTemperatureZone": func(st *atwParseState, raw string) error {
		return st.storeBound("MinSetTemperatureZone", raw)
	},
	"MaxSetTemperatureZone": func(st *atwParseState, raw string) error {
		return st.storeBound("MaxSetTemperatureZone", raw)
	},
	"MinSetTankTemperature": func(st *atwParseState, raw string) error {
		return st.storeBound("MinSetTankTemperature", raw)
	},
	"MaxSetTankTemperature": func(st *atwParseState, raw string) error {
		return st.storeBound("MaxSetTankTemperature", raw)
	},
}

func (st *atwParseState) storeBound(name, raw string) error {
	v, err := parseWireFloat(raw)
	if err != nil {
		return err
	}
	if st.wireBounds == nil {
		st.wireBounds = map[string]*float64{}
	}
	st.wireBounds[name] = &v
	return nil
}

func parseAtwUnit(d deviceWire, logger *zap.Logger) (model.AtwUnit, error) {
	st := atwParseState{}
	st.unit.ID = strconv.Itoa(d.DeviceID)
	st.unit.Name = d.Name

	if err := applySchema(d, logger, func(name, raw string) (bool, error) {
		set, ok := atwSchema[name]
		if !ok {
			return false, nil
		}
		return true, set(&st, raw)
	}); err != nil {
		return model.AtwUnit{}, err
	}

	st.unit.Zones[0].Present = true
	switch {
	case st.hasZone2 && st.zone2Fields == zone2DataFields:
		st.unit.Zones[1].Present = true
	case st.hasZone2:
		// Existence flag set but zone data missing from this response.
		// Treat as malformed and ignore zone 2 until the next poll.
		logger.Warn("zone 2 flagged but data incomplete, ignoring zone 2 for this poll",
			zap.String("device_id", st.unit.ID),
			zap.Int("fields_seen", st.zone2Fields))
		st.unit.Zones[1] = model.Zone{}
	default:
		st.unit.Zones[1] = model.Zone{}
	}

	caps := &st.unit.Capabilities
	caps.HasZone2 = st.unit.Zones[1].Present
	caps.MinZoneTemperature = substituteBound(
		logger, st.unit.ID, "MinSetTemperatureZone", st.wireBounds["MinSetTemperatureZone"], model.ZoneTemperatureMin)
	caps.MaxZoneTemperature = substituteBound(
		logger, st.unit.ID, "MaxSetTemperatureZone", st.wireBounds["MaxSetTemperatureZone"], model.ZoneTemperatureMax)
	caps.MinTankTemperature = substituteBound(
		logger, st.unit.ID, "MinSetTankTemperature", st.wireBounds["MinSetTankTemperature"], model.TankTemperatureMin)
	caps.MaxTankTemperature = substituteBound(
		logger, st.unit.ID, "MaxSetTankTemperature", st.wireBounds["MaxSetTankTemperature"], model.TankTemperatureMax)

	return st.unit, nil
}

func applySchema(d deviceWire, logger *zap.Logger, apply func(name, raw string) (bool, error)) error {
	for _, s := range d.Settings {
		if s.Value == nil {
			continue
		}
		known, err := apply(s.Name, *s.Value)
		if err != nil {
			return fmt.Errorf("device %d field %s: %w", d.DeviceID, s.Name, err)
		}
		if !known {
			logger.Debug("unknown device field",
				zap.Int("device_id", d.DeviceID), zap.String("name", s.Name))
		}
	}
	return nil
}

// substituteBound always returns the hardcoded safe bound. A disagreeing
// wire value is logged, never honored.
func substituteBound(logger *zap.Logger, deviceID, name string, wire *float64, safe float64) float64 {
	if wire != nil && *wire != safe {
		logger.Warn("ignoring reported temperature bound",
			zap.String("device_id", deviceID),
			zap.String("name", name),
			zap.Float64("reported", *wire),
			zap.Float64("using", safe))
	}
	return safe
}

func validAtaMode(mode model.AtaOperationMode) bool {
	switch mode {
	case model.AtaModeHeat, model.AtaModeDry, model.AtaModeCool, model.AtaModeFan, model.AtaModeAuto:
		return true
	}
	return false
}

func validZoneMode(mode model.ZoneControlMode) bool {
	switch mode {
	case model.ZoneModeRoomTemperature, model.ZoneModeFlowTemperature, model.ZoneModeWeatherCurve:
		return true
	}
	return false
}

func validAtwStatus(status model.OperationStatus) bool {
	if status == model.StatusIdle || status == model.StatusHotWater {
		return true
	}
	return validZoneMode(model.ZoneControlMode(status))
}
