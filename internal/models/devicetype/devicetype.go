package devicetype

import (
	mapset "github.com/deckarep/golang-set/v2"
)

const (
	SprinklerTimer DeviceType = "sprinkler_timer"
	FloodSensor    DeviceType = "flood_sensor"
	Hub            DeviceType = "bridge"
)

var validDeviceTypes = mapset.NewSet(SprinklerTimer, FloodSensor, Hub)

type DeviceType string

func (t DeviceType) String() string { return string(t) }
func (t DeviceType) IsValid() bool  { return validDeviceTypes.Contains(t) }
