package server

import "github.com/andrew-blake/melcloudhome-sub001/internal/pkg/model"

type buildingView struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	TimeZone   string    `json:"time_zone"`
	AirToAir   []ataView `json:"air_to_air"`
	AirToWater []atwView `json:"air_to_water"`
}

type ataView struct {
	ID              string                   `json:"id"`
	Name            string                   `json:"name"`
	Power           bool                     `json:"power"`
	Standby         bool                     `json:"standby"`
	Mode            string                   `json:"operation_mode"`
	SetTemperature  float64                  `json:"set_temperature"`
	RoomTemperature float64                  `json:"room_temperature"`
	FanSpeed        int                      `json:"fan_speed"`
	VaneVertical    string                   `json:"vane_vertical"`
	VaneHorizontal  string                   `json:"vane_horizontal"`
	HasError        bool                     `json:"has_error"`
	SupportedModes  []model.AtaOperationMode `json:"supported_modes"`
}

type zoneView struct {
	ControlMode       string  `json:"control_mode"`
	TargetTemperature float64 `json:"target_temperature"`
	RoomTemperature   float64 `json:"room_temperature"`
	Active            bool    `json:"active"`
}

type dhwView struct {
	TargetTemperature float64 `json:"target_temperature"`
	TankTemperature   float64 `json:"tank_temperature"`
	ForcedProduction  bool    `json:"forced_production"`
	Heating           bool    `json:"heating"`
}

type atwView struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Power           bool      `json:"power"`
	Standby         bool      `json:"standby"`
	OperationStatus string    `json:"operation_status"`
	Zone1           *zoneView `json:"zone1,omitempty"`
	Zone2           *zoneView `json:"zone2,omitempty"`
	Dhw             dhwView   `json:"dhw"`
	HasError        bool      `json:"has_error"`
	ErrorCode       int       `json:"error_code"`
}

func newBuildingView(b *model.Building) buildingView {
	view := buildingView{
		ID:         b.ID,
		Name:       b.Name,
		TimeZone:   b.TimeZone,
		AirToAir:   make([]ataView, 0, len(b.AirToAir)),
		AirToWater: make([]atwView, 0, len(b.AirToWater)),
	}
	for ui := range b.AirToAir {
		view.AirToAir = append(view.AirToAir, newAtaView(&b.AirToAir[ui]))
	}
	for ui := range b.AirToWater {
		view.AirToWater = append(view.AirToWater, newAtwView(&b.AirToWater[ui]))
	}
	return view
}

func newAtaView(u *model.AtaUnit) ataView {
	return ataView{
		ID:              u.ID,
		Name:            u.Name,
		Power:           u.Power,
		Standby:         u.Standby,
		Mode:            string(u.Mode),
		SetTemperature:  u.SetTemperature,
		RoomTemperature: u.RoomTemperature,
		FanSpeed:        u.FanSpeed,
		VaneVertical:    u.VaneVertical,
		VaneHorizontal:  u.VaneHorizontal,
		HasError:        u.HasError,
		SupportedModes:  u.Capabilities.SupportedModes,
	}
}

// newAtwView exposes the derived running state, not the raw cloud fields:
// operation_status folds in the forced-DHW override and each zone carries
// its activity flag.
func newAtwView(u *model.AtwUnit) atwView {
	view := atwView{
		ID:              u.ID,
		Name:            u.Name,
		Power:           u.Power,
		Standby:         u.Standby,
		OperationStatus: string(u.EffectiveStatus()),
		Dhw: dhwView{
			TargetTemperature: u.Dhw.TargetTemperature,
			TankTemperature:   u.Dhw.TankTemperature,
			ForcedProduction:  u.Dhw.ForcedProduction,
			Heating:           u.HeatingDhw(),
		},
		HasError:  u.HasError,
		ErrorCode: u.ErrorCode,
	}
	if z, ok := u.Zone(1); ok {
		view.Zone1 = &zoneView{
			ControlMode:       string(z.ControlMode),
			TargetTemperature: z.TargetTemperature,
			RoomTemperature:   z.RoomTemperature,
			Active:            u.ZoneActive(1),
		}
	}
	if z, ok := u.Zone(2); ok {
		view.Zone2 = &zoneView{
			ControlMode:       string(z.ControlMode),
			TargetTemperature: z.TargetTemperature,
			RoomTemperature:   z.RoomTemperature,
			Active:            u.ZoneActive(2),
		}
	}
	return view
}
