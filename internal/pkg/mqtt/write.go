package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/model"
	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/publisher"
)

func (s *service) Write(ctx context.Context, data []map[string]any) error {
	for _, d := range data {
		if err := s.publishValue(d); err != nil {
			return err
		}
	}
	return nil
}

// RegisterDevice announces a unit to Home Assistant via the discovery
// topic. Registration is idempotent per process lifetime; the discovery
// payload is retained so HA picks it up after its own restarts too.
func (s *service) RegisterDevice(device *model.Device) error {
	if _, exists := s.configuredDevices[device.ID]; exists {
		return nil
	}
	identifier := publisher.Identifier(device)
	topic := fmt.Sprintf("homeassistant/sensor/%s/config", identifier)

	payload, err := json.Marshal(discoveryMessage(device, identifier))
	if err != nil {
		return err
	}
	token := s.client.Publish(topic, 1, true, payload)
	if err := token.Error(); err != nil {
		return err
	}
	if res := token.WaitTimeout(time.Second * 5); res {
		s.configuredDevices[device.ID] = struct{}{}
	}
	return nil
}

func (s *service) publishValue(data map[string]any) error {
	topic := fmt.Sprintf("homeassistant/sensor/%s/%s/state", data["identifier"], data["slug"])

	payload := map[string]string{
		"value": data["value"].(string),
	}
	if unit := data["unit_of_measurement"].(string); unit != "" {
		payload["unit_of_measurement"] = unit
	}

	publishData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	token := s.client.Publish(topic, 0, false, publishData)
	res := token.WaitTimeout(time.Second * 10)
	if res {
		return nil
	}
	if err := token.Error(); err != nil {
		return err
	}
	return nil
}

func discoveryMessage(device *model.Device, identifier string) model.RegisterMessage {
	deviceModel := "Air-to-Water Heat Pump"
	if device.Kind == model.DeviceKindAirToAir {
		deviceModel = "Air Conditioner"
	}

	return model.RegisterMessage{
		Tilda:      fmt.Sprintf("homeassistant/sensor/%s", identifier),
		Name:       device.Name,
		ID:         strings.ToLower(identifier),
		StateTopic: "~/state",
		Device: model.RegisterDevice{
			Name:         device.Name,
			Identifiers:  []string{identifier},
			Model:        deviceModel,
			Manufacturer: "Mitsubishi Electric",
		},
	}
}
