package melcloud

import (
	"fmt"
	"strconv"
	"strings"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Persist  bool   `json:"persist"`
}

type loginResponse struct {
	ContextKey string `json:"contextKey"`
}

// Setting is one entry of the flat {name,value} list the cloud uses for all
// device state. Booleans travel as the literal strings "True"/"False", the
// second-zone flag as "0"/"1". On writes a nil Value marshals to JSON null,
// which the backend requires for every untouched field.
type Setting struct {
	Name  string  `json:"name"`
	Value *string `json:"value"`
}

type deviceWire struct {
	DeviceID int       `json:"deviceId"`
	Name     string    `json:"name"`
	Settings []Setting `json:"settings"`
}

type buildingWire struct {
	ID              int          `json:"id"`
	Name            string       `json:"name"`
	TimeZone        string       `json:"timeZone"`
	AirToAirUnits   []deviceWire `json:"airToAirUnits"`
	AirToWaterUnits []deviceWire `json:"airToWaterUnits"`
}

type writeRequest struct {
	Settings []Setting `json:"settings"`
}

func parseWireBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("not a wire boolean: %q", raw)
}

// parseWireFlag parses the "0"/"1" style flags.
func parseWireFlag(raw string) (bool, error) {
	switch raw {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, fmt.Errorf("not a wire flag: %q", raw)
}

func parseWireFloat(raw string) (float64, error) {
	return strconv.ParseFloat(raw, 64)
}

func parseWireInt(raw string) (int, error) {
	return strconv.Atoi(raw)
}

func formatWireBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

func formatWireFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
