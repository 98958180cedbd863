package model

// DeviceKind distinguishes the two appliance families on the publisher side.
type DeviceKind string

const (
	DeviceKindAirToAir   DeviceKind = "air_to_air"
	DeviceKindAirToWater DeviceKind = "air_to_water"
)

// Device is the publisher-facing descriptor of one unit.
type Device struct {
	ID       string
	Name     string
	Kind     DeviceKind
	Building string
}

type RegisterDevice struct {
	Name         string   `json:"name"`
	Identifiers  []string `json:"identifiers"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer"`
}

type RegisterMessage struct {
	Tilda      string         `json:"~"`
	Name       string         `json:"name"`
	ID         string         `json:"unique_id"`
	StateTopic string         `json:"state_topic"`
	Device     RegisterDevice `json:"device"`
}
