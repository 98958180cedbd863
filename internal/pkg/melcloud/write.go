package melcloud

import (
	"context"
	"fmt"
	"strconv"

	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/model"
)

// Every write carries the full controllable field set for its device
// family; untouched fields go as explicit JSON null. Field order is fixed
// so payloads are reproducible.
var ataControlFields = []string{
	"Power",
	"InStandby",
	"OperationMode",
	"SetTemperature",
	"FanSpeed",
	"VaneVertical",
	"VaneHorizontal",
}

var atwControlFields = []string{
	"Power",
	"InStandby",
	"OperationModeZone1",
	"OperationModeZone2",
	"SetTemperatureZone1",
	"SetTemperatureZone2",
	"SetTankWaterTemperature",
	"ForcedHotWaterMode",
}

func sparsePayload(fields []string, set map[string]string) writeRequest {
	req := writeRequest{Settings: make([]Setting, 0, len(fields))}
	for _, name := range fields {
		s := Setting{Name: name}
		if v, ok := set[name]; ok {
			value := v
			s.Value = &value
		}
		req.Settings = append(req.Settings, s)
	}
	return req
}

func (c *Client) writeAta(ctx context.Context, token, deviceID string, set map[string]string) error {
	return c.put(ctx, token, devicePath+"/"+deviceID+"/ata", sparsePayload(ataControlFields, set))
}

func (c *Client) writeAtw(ctx context.Context, token, deviceID string, set map[string]string) error {
	return c.put(ctx, token, devicePath+"/"+deviceID+"/atw", sparsePayload(atwControlFields, set))
}

func validateZoneIndex(zone int) error {
	if zone != 1 && zone != 2 {
		return &ValidationError{Field: "zone", Value: zone, Reason: "must be 1 or 2"}
	}
	return nil
}

func validateRange(field string, v, min, max float64) error {
	if v < min || v > max {
		return &ValidationError{
			Field:  field,
			Value:  v,
			Reason: fmt.Sprintf("outside safe range %.0f..%.0f", min, max),
		}
	}
	return nil
}

// SetAtaPower turns an air-to-air unit on or off.
func (c *Client) SetAtaPower(ctx context.Context, token, deviceID string, on bool) error {
	return c.writeAta(ctx, token, deviceID, map[string]string{"Power": formatWireBool(on)})
}

func (c *Client) SetAtaStandby(ctx context.Context, token, deviceID string, standby bool) error {
	return c.writeAta(ctx, token, deviceID, map[string]string{"InStandby": formatWireBool(standby)})
}

func (c *Client) SetAtaMode(ctx context.Context, token, deviceID string, mode model.AtaOperationMode) error {
	if !validAtaMode(mode) {
		return &ValidationError{Field: "mode", Value: mode, Reason: "unknown operation mode"}
	}
	return c.writeAta(ctx, token, deviceID, map[string]string{"OperationMode": string(mode)})
}

func (c *Client) SetAtaTemperature(ctx context.Context, token, deviceID string, temp float64) error {
	if err := validateRange("set temperature", temp, model.AtaTemperatureMin, model.AtaTemperatureMax); err != nil {
		return err
	}
	return c.writeAta(ctx, token, deviceID, map[string]string{"SetTemperature": formatWireFloat(temp)})
}

// SetAtaFanSpeed sets the fan speed, 0 meaning automatic.
func (c *Client) SetAtaFanSpeed(ctx context.Context, token, deviceID string, speed int) error {
	if speed < 0 || speed > 5 {
		return &ValidationError{Field: "fan speed", Value: speed, Reason: "outside range 0..5"}
	}
	return c.writeAta(ctx, token, deviceID, map[string]string{"FanSpeed": strconv.Itoa(speed)})
}

func (c *Client) SetAtaVaneVertical(ctx context.Context, token, deviceID, position string) error {
	if err := validateVane(position); err != nil {
		return err
	}
	return c.writeAta(ctx, token, deviceID, map[string]string{"VaneVertical": position})
}

func (c *Client) SetAtaVaneHorizontal(ctx context.Context, token, deviceID, position string) error {
	if err := validateVane(position); err != nil {
		return err
	}
	return c.writeAta(ctx, token, deviceID, map[string]string{"VaneHorizontal": position})
}

func validateVane(position string) error {
	switch position {
	case model.VanePositionAuto, model.VanePositionSwing, "1", "2", "3", "4", "5":
		return nil
	}
	return &ValidationError{Field: "vane position", Value: position, Reason: "unknown position"}
}

// SetAtwPower turns an air-to-water unit on or off.
func (c *Client) SetAtwPower(ctx context.Context, token, deviceID string, on bool) error {
	return c.writeAtw(ctx, token, deviceID, map[string]string{"Power": formatWireBool(on)})
}

func (c *Client) SetAtwStandby(ctx context.Context, token, deviceID string, standby bool) error {
	return c.writeAtw(ctx, token, deviceID, map[string]string{"InStandby": formatWireBool(standby)})
}

func (c *Client) SetZoneTemperature(ctx context.Context, token, deviceID string, zone int, temp float64) error {
	if err := validateZoneIndex(zone); err != nil {
		return err
	}
	if err := validateRange("zone temperature", temp, model.ZoneTemperatureMin, model.ZoneTemperatureMax); err != nil {
		return err
	}
	name := fmt.Sprintf("SetTemperatureZone%d", zone)
	return c.writeAtw(ctx, token, deviceID, map[string]string{name: formatWireFloat(temp)})
}

func (c *Client) SetZoneMode(ctx context.Context, token, deviceID string, zone int, mode model.ZoneControlMode) error {
	if err := validateZoneIndex(zone); err != nil {
		return err
	}
	if !validZoneMode(mode) {
		return &ValidationError{Field: "zone mode", Value: mode, Reason: "unknown control mode"}
	}
	name := fmt.Sprintf("OperationModeZone%d", zone)
	return c.writeAtw(ctx, token, deviceID, map[string]string{name: string(mode)})
}

func (c *Client) SetDhwTemperature(ctx context.Context, token, deviceID string, temp float64) error {
	if err := validateRange("tank temperature", temp, model.TankTemperatureMin, model.TankTemperatureMax); err != nil {
		return err
	}
	return c.writeAtw(ctx, token, deviceID, map[string]string{"SetTankWaterTemperature": formatWireFloat(temp)})
}

func (c *Client) SetForcedHotWater(ctx context.Context, token, deviceID string, forced bool) error {
	return c.writeAtw(ctx, token, deviceID, map[string]string{"ForcedHotWaterMode": formatWireBool(forced)})
}
