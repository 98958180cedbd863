package coordinator

import (
	"context"

	"go.uber.org/zap"

	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/melcloud"
	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/metrics"
	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/model"
)

// CommandKind enumerates the controllable attributes. Control requests are
// explicit tagged values so the dedup / capability / retry pipeline is
// written once, not per call site.
type CommandKind int

const (
	CmdAtaPower CommandKind = iota
	CmdAtaStandby
	CmdAtaMode
	CmdAtaTemperature
	CmdAtaFanSpeed
	CmdAtaVaneVertical
	CmdAtaVaneHorizontal
	CmdAtwPower
	CmdAtwStandby
	CmdZoneTemperature
	CmdZoneMode
	CmdDhwTemperature
	CmdForcedHotWater
)

var commandNames = map[CommandKind]string{
	CmdAtaPower:          "ata_power",
	CmdAtaStandby:        "ata_standby",
	CmdAtaMode:           "ata_mode",
	CmdAtaTemperature:    "ata_temperature",
	CmdAtaFanSpeed:       "ata_fan_speed",
	CmdAtaVaneVertical:   "ata_vane_vertical",
	CmdAtaVaneHorizontal: "ata_vane_horizontal",
	CmdAtwPower:          "atw_power",
	CmdAtwStandby:        "atw_standby",
	CmdZoneTemperature:   "zone_temperature",
	CmdZoneMode:          "zone_mode",
	CmdDhwTemperature:    "dhw_temperature",
	CmdForcedHotWater:    "forced_hot_water",
}

func (k CommandKind) String() string {
	if name, ok := commandNames[k]; ok {
		return name
	}
	return "unknown"
}

// Command is one control request against one unit. Only the fields the
// kind needs are meaningful.
type Command struct {
	Kind        CommandKind
	UnitID      string
	Zone        int
	On          bool
	Temperature float64
	AtaMode     model.AtaOperationMode
	ZoneMode    model.ZoneControlMode
	FanSpeed    int
	Vane        string
}

func (cmd Command) isAta() bool {
	return cmd.Kind <= CmdAtaVaneHorizontal
}

// Apply runs the uniform control algorithm: cached lookup, dedup against
// the cached value, capability precondition, then the client write under
// the reauth-retry wrapper. It never refetches synchronously; a debounced
// refresh is armed instead so a burst of writes costs one poll.
func (c *Coordinator) Apply(ctx context.Context, cmd Command) error {
	err := c.apply(ctx, cmd)
	switch {
	case err == nil:
		metrics.ControlCommands.WithLabelValues(cmd.Kind.String(), "ok").Inc()
	case err == errDeduped:
		metrics.ControlCommands.WithLabelValues(cmd.Kind.String(), "deduped").Inc()
		return nil
	default:
		metrics.ControlCommands.WithLabelValues(cmd.Kind.String(), "error").Inc()
		c.logger.Error("control command failed",
			zap.String("kind", cmd.Kind.String()),
			zap.String("unit_id", cmd.UnitID),
			zap.Error(err))
		return err
	}

	c.armRefresh()
	return nil
}

// errDeduped is internal to Apply: the requested value already matches the
// cache, so no network call was made.
var errDeduped = &dedupedError{}

type dedupedError struct{}

func (*dedupedError) Error() string { return "value already current" }

func (c *Coordinator) apply(ctx context.Context, cmd Command) error {
	if cmd.isAta() {
		unit, ok := c.AtaUnit(cmd.UnitID)
		if !ok {
			return ErrUnitNotFound
		}
		if err := checkAtaCommand(unit, cmd); err != nil {
			return err
		}
	} else {
		unit, ok := c.AtwUnit(cmd.UnitID)
		if !ok {
			return ErrUnitNotFound
		}
		if err := checkAtwCommand(unit, cmd); err != nil {
			return err
		}
	}

	return c.withSession(ctx, func(token string) error {
		return c.dispatch(ctx, token, cmd)
	})
}

// checkAtaCommand validates capability preconditions and performs the
// dedup check against the cached unit. Both fail locally, with zero
// network calls.
func checkAtaCommand(unit *model.AtaUnit, cmd Command) error {
	switch cmd.Kind {
	case CmdAtaPower:
		if unit.Power == cmd.On {
			return errDeduped
		}
	case CmdAtaStandby:
		if unit.Standby == cmd.On {
			return errDeduped
		}
	case CmdAtaMode:
		if len(unit.Capabilities.SupportedModes) > 0 && !unit.SupportsMode(cmd.AtaMode) {
			return &melcloud.ValidationError{
				Field: "mode", Value: cmd.AtaMode, Reason: "not supported by this unit",
			}
		}
		if unit.Mode == cmd.AtaMode {
			return errDeduped
		}
	case CmdAtaTemperature:
		if unit.SetTemperature == cmd.Temperature {
			return errDeduped
		}
	case CmdAtaFanSpeed:
		if n := unit.Capabilities.NumberOfFanSpeeds; n > 0 && cmd.FanSpeed > n {
			return &melcloud.ValidationError{
				Field: "fan speed", Value: cmd.FanSpeed, Reason: "above the unit's highest speed",
			}
		}
		if unit.FanSpeed == cmd.FanSpeed {
			return errDeduped
		}
	case CmdAtaVaneVertical:
		if cmd.Vane == model.VanePositionSwing && !unit.Capabilities.HasVaneSwing {
			return &melcloud.ValidationError{
				Field: "vane position", Value: cmd.Vane, Reason: "unit has no swing support",
			}
		}
		if unit.VaneVertical == cmd.Vane {
			return errDeduped
		}
	case CmdAtaVaneHorizontal:
		if cmd.Vane == model.VanePositionSwing && !unit.Capabilities.HasVaneSwing {
			return &melcloud.ValidationError{
				Field: "vane position", Value: cmd.Vane, Reason: "unit has no swing support",
			}
		}
		if unit.VaneHorizontal == cmd.Vane {
			return errDeduped
		}
	}
	return nil
}

func checkAtwCommand(unit *model.AtwUnit, cmd Command) error {
	switch cmd.Kind {
	case CmdAtwPower:
		if unit.Power == cmd.On {
			return errDeduped
		}
	case CmdAtwStandby:
		if unit.Standby == cmd.On {
			return errDeduped
		}
	case CmdZoneTemperature:
		zone, err := requireZone(unit, cmd.Zone)
		if err != nil {
			return err
		}
		if zone.TargetTemperature == cmd.Temperature {
			return errDeduped
		}
	case CmdZoneMode:
		zone, err := requireZone(unit, cmd.Zone)
		if err != nil {
			return err
		}
		if zone.ControlMode == cmd.ZoneMode {
			return errDeduped
		}
	case CmdDhwTemperature:
		if unit.Dhw.TargetTemperature == cmd.Temperature {
			return errDeduped
		}
	case CmdForcedHotWater:
		if unit.Dhw.ForcedProduction == cmd.On {
			return errDeduped
		}
	}
	return nil
}

func requireZone(unit *model.AtwUnit, zone int) (model.Zone, error) {
	z, ok := unit.Zone(zone)
	if !ok {
		return model.Zone{}, &melcloud.ValidationError{
			Field: "zone", Value: zone, Reason: "unit has no such zone",
		}
	}
	return z, nil
}

func (c *Coordinator) dispatch(ctx context.Context, token string, cmd Command) error {
	switch cmd.Kind {
	case CmdAtaPower:
		return c.client.SetAtaPower(ctx, token, cmd.UnitID, cmd.On)
	case CmdAtaStandby:
		return c.client.SetAtaStandby(ctx, token, cmd.UnitID, cmd.On)
	case CmdAtaMode:
		return c.client.SetAtaMode(ctx, token, cmd.UnitID, cmd.AtaMode)
	case CmdAtaTemperature:
		return c.client.SetAtaTemperature(ctx, token, cmd.UnitID, cmd.Temperature)
	case CmdAtaFanSpeed:
		return c.client.SetAtaFanSpeed(ctx, token, cmd.UnitID, cmd.FanSpeed)
	case CmdAtaVaneVertical:
		return c.client.SetAtaVaneVertical(ctx, token, cmd.UnitID, cmd.Vane)
	case CmdAtaVaneHorizontal:
		return c.client.SetAtaVaneHorizontal(ctx, token, cmd.UnitID, cmd.Vane)
	case CmdAtwPower:
		return c.client.SetAtwPower(ctx, token, cmd.UnitID, cmd.On)
	case CmdAtwStandby:
		return c.client.SetAtwStandby(ctx, token, cmd.UnitID, cmd.On)
	case CmdZoneTemperature:
		return c.client.SetZoneTemperature(ctx, token, cmd.UnitID, cmd.Zone, cmd.Temperature)
	case CmdZoneMode:
		return c.client.SetZoneMode(ctx, token, cmd.UnitID, cmd.Zone, cmd.ZoneMode)
	case CmdDhwTemperature:
		return c.client.SetDhwTemperature(ctx, token, cmd.UnitID, cmd.Temperature)
	case CmdForcedHotWater:
		return c.client.SetForcedHotWater(ctx, token, cmd.UnitID, cmd.On)
	}
	return &melcloud.ValidationError{Field: "command", Value: cmd.Kind, Reason: "unknown command kind"}
}

// Per-attribute convenience surface over Apply.

func (c *Coordinator) SetAtaPower(ctx context.Context, unitID string, on bool) error {
	return c.Apply(ctx, Command{Kind: CmdAtaPower, UnitID: unitID, On: on})
}

func (c *Coordinator) SetAtaStandby(ctx context.Context, unitID string, standby bool) error {
	return c.Apply(ctx, Command{Kind: CmdAtaStandby, UnitID: unitID, On: standby})
}

func (c *Coordinator) SetAtaMode(ctx context.Context, unitID string, mode model.AtaOperationMode) error {
	return c.Apply(ctx, Command{Kind: CmdAtaMode, UnitID: unitID, AtaMode: mode})
}

func (c *Coordinator) SetAtaTemperature(ctx context.Context, unitID string, temp float64) error {
	return c.Apply(ctx, Command{Kind: CmdAtaTemperature, UnitID: unitID, Temperature: temp})
}

func (c *Coordinator) SetAtaFanSpeed(ctx context.Context, unitID string, speed int) error {
	return c.Apply(ctx, Command{Kind: CmdAtaFanSpeed, UnitID: unitID, FanSpeed: speed})
}

func (c *Coordinator) SetAtaVaneVertical(ctx context.Context, unitID, position string) error {
	return c.Apply(ctx, Command{Kind: CmdAtaVaneVertical, UnitID: unitID, Vane: position})
}

func (c *Coordinator) SetAtaVaneHorizontal(ctx context.Context, unitID, position string) error {
	return c.Apply(ctx, Command{Kind: CmdAtaVaneHorizontal, UnitID: unitID, Vane: position})
}

func (c *Coordinator) SetAtwPower(ctx context.Context, unitID string, on bool) error {
	return c.Apply(ctx, Command{Kind: CmdAtwPower, UnitID: unitID, On: on})
}

func (c *Coordinator) SetAtwStandby(ctx context.Context, unitID string, standby bool) error {
	return c.Apply(ctx, Command{Kind: CmdAtwStandby, UnitID: unitID, On: standby})
}

func (c *Coordinator) SetZoneTemperature(ctx context.Context, unitID string, zone int, temp float64) error {
	return c.Apply(ctx, Command{Kind: CmdZoneTemperature, UnitID: unitID, Zone: zone, Temperature: temp})
}

func (c *Coordinator) SetZoneMode(ctx context.Context, unitID string, zone int, mode model.ZoneControlMode) error {
	return c.Apply(ctx, Command{Kind: CmdZoneMode, UnitID: unitID, Zone: zone, ZoneMode: mode})
}

func (c *Coordinator) SetDhwTemperature(ctx context.Context, unitID string, temp float64) error {
	return c.Apply(ctx, Command{Kind: CmdDhwTemperature, UnitID: unitID, Temperature: temp})
}

func (c *Coordinator) SetForcedHotWater(ctx context.Context, unitID string, forced bool) error {
	return c.Apply(ctx, Command{Kind: CmdForcedHotWater, UnitID: unitID, On: forced})
}
