package model

// Building groups the units registered under one MELCloud home.
// A building is replaced wholesale on every poll, never mutated in place.
type Building struct {
	ID         string
	Name       string
	TimeZone   string
	AirToAir   []AtaUnit
	AirToWater []AtwUnit
}
