package publisher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/model"
)

var errAlreadyRegistered = errors.New("publisher already registered")

var (
	registeredPublishers = make(map[string]publisher)
	sensors              sync.Map
)

type publisher interface {
	// Write publishes the flattened sensor data to the adapter.
	Write(ctx context.Context, data []map[string]any) error
	RegisterDevice(device *model.Device) error
}

func RegisterPublisher(name string, publisher publisher) error {
	if _, ok := registeredPublishers[name]; ok {
		return errAlreadyRegistered
	}
	registeredPublishers[name] = publisher
	return nil
}

// PublishSnapshot flattens the polled buildings into per-unit sensor
// datapoints and hands the changed ones to every registered publisher.
// Values identical to the previously published ones are suppressed, so
// subscribers only see real transitions.
func PublishSnapshot(ctx context.Context, buildings []model.Building) error {
	if len(registeredPublishers) == 0 {
		return nil
	}

	count := 0
	data := make([]map[string]any, 0)
	for bi := range buildings {
		b := &buildings[bi]
		for ui := range b.AirToAir {
			u := &b.AirToAir[ui]
			device := &model.Device{ID: u.ID, Name: u.Name, Kind: model.DeviceKindAirToAir, Building: b.Name}
			registerDevice(device)
			count += collect(&data, device, ataPoints(u))
		}
		for ui := range b.AirToWater {
			u := &b.AirToWater[ui]
			device := &model.Device{ID: u.ID, Name: u.Name, Kind: model.DeviceKindAirToWater, Building: b.Name}
			registerDevice(device)
			count += collect(&data, device, atwPoints(u))
		}
	}

	for name, publisher := range registeredPublishers {
		if err := publisher.Write(ctx, data); err != nil {
			zap.L().Error("failed to publish data", zap.Error(err), zap.String("publisher", name))
			continue
		}
		zap.L().Debug("updated sensors", zap.Int("count", count), zap.String("publisher", name))
	}
	return nil
}

func registerDevice(device *model.Device) {
	for name, publisher := range registeredPublishers {
		if err := publisher.RegisterDevice(device); err != nil {
			zap.L().Error("failed to register device", zap.Error(err), zap.String("publisher", name))
			continue
		}
	}
}

func collect(data *[]map[string]any, device *model.Device, points []datapoint) int {
	identifier := Identifier(device)
	count := 0
	for _, dp := range points {
		if !shouldUpdate(identifier, dp.slug, dp.value) {
			continue
		}
		count++
		*data = append(*data, map[string]any{
			"value":               dp.value,
			"slug":                dp.slug,
			"timestamp":           time.Now(),
			"identifier":          identifier,
			"unit_of_measurement": dp.unit,
		})
	}
	return count
}

// Identifier is the stable topic-safe handle for a unit. Unit names are
// user-chosen free text, so they are slugged; the ID keeps two units with
// the same name apart.
func Identifier(device *model.Device) string {
	return slug.Make(fmt.Sprintf("%s %s", device.Name, device.ID))
}

type datapoint struct {
	slug  string
	value string
	unit  string
}

func ataPoints(u *model.AtaUnit) []datapoint {
	return []datapoint{
		{"power", onOff(u.Power), ""},
		{"standby", onOff(u.Standby), ""},
		{"operation_mode", string(u.Mode), ""},
		{"set_temperature", formatTemperature(u.SetTemperature), "°C"},
		{"room_temperature", formatTemperature(u.RoomTemperature), "°C"},
		{"fan_speed", strconv.Itoa(u.FanSpeed), ""},
		{"vane_vertical", u.VaneVertical, ""},
		{"vane_horizontal", u.VaneHorizontal, ""},
		{"signal_strength", strconv.Itoa(u.SignalStrength), "dBm"},
		{"has_error", onOff(u.HasError), ""},
	}
}

func atwPoints(u *model.AtwUnit) []datapoint {
	points := []datapoint{
		{"power", onOff(u.Power), ""},
		{"standby", onOff(u.Standby), ""},
		{"operation_status", string(u.EffectiveStatus()), ""},
		{"heating_dhw", onOff(u.HeatingDhw()), ""},
		{"tank_temperature", formatTemperature(u.Dhw.TankTemperature), "°C"},
		{"tank_target_temperature", formatTemperature(u.Dhw.TargetTemperature), "°C"},
		{"forced_hot_water", onOff(u.Dhw.ForcedProduction), ""},
		{"error_code", strconv.Itoa(u.ErrorCode), ""},
		{"signal_strength", strconv.Itoa(u.SignalStrength), "dBm"},
	}
	for i := 1; i <= 2; i++ {
		z, ok := u.Zone(i)
		if !ok {
			continue
		}
		prefix := fmt.Sprintf("zone%d", i)
		points = append(points,
			datapoint{prefix + "_control_mode", string(z.ControlMode), ""},
			datapoint{prefix + "_target_temperature", formatTemperature(z.TargetTemperature), "°C"},
			datapoint{prefix + "_room_temperature", formatTemperature(z.RoomTemperature), "°C"},
			datapoint{prefix + "_active", onOff(u.ZoneActive(i)), ""},
		)
	}
	return points
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatTemperature(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func shouldUpdate(identifier, slug, newValue string) bool {
	key := fmt.Sprintf("%s_%s", identifier, slug)
	oldValue, exists := sensors.Load(key)
	if exists && newValue == oldValue.(string) {
		return false
	}
	if !exists {
		zap.L().Info("configured sensor",
			zap.String("device", identifier),
			zap.String("sensor", slug),
			zap.String("value", newValue))
	}
	sensors.Store(key, newValue)
	return true
}
