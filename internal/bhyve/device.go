package bhyve

import (
	"bytes"
	"strconv"
	"time"

	"github.com/sebr/bhyve-bridge/internal/models/devicetype"
)

// Station is a zone/station number. The cloud is not consistent about the
// type and sends both `1` and `"1"` depending on the endpoint.
type Station int

func (s Station) String() string { return strconv.Itoa(int(s)) }

func (s *Station) UnmarshalJSON(data []byte) error {
	return s.UnmarshalText(bytes.Trim(data, `"`))
}

func (s *Station) UnmarshalText(text []byte) error {
	station, err := strconv.Atoi(string(text))
	if err != nil {
		return err
	}

	*s = Station(station)

	return nil
}

// Device is a device as returned by the devices endpoint.
type Device struct {
	ID         string                `json:"id"          mapstructure:"id"`
	Name       string                `json:"name"        mapstructure:"name"`
	Type       devicetype.DeviceType `json:"type"        mapstructure:"type"`
	MacAddress string                `json:"mac_address" mapstructure:"mac_address"`

	HardwareVersion string `json:"hardware_version" mapstructure:"hardware_version"`
	FirmwareVersion string `json:"firmware_version" mapstructure:"firmware_version"`

	IsConnected bool     `json:"is_connected" mapstructure:"is_connected"`
	Battery     *Battery `json:"battery"      mapstructure:"battery"`

	Status *DeviceStatus `json:"status" mapstructure:"status"`
	Zones  []Zone        `json:"zones"  mapstructure:"zones"`

	ManualPresetRuntimeSec int `json:"manual_preset_runtime_sec" mapstructure:"manual_preset_runtime_sec"`

	// flood sensor fields
	LocationName        string             `json:"location_name"         mapstructure:"location_name"`
	AutoShutoff         bool               `json:"auto_shutoff"          mapstructure:"auto_shutoff"`
	TempAlarmThresholds map[string]float64 `json:"temp_alarm_thresholds" mapstructure:"temp_alarm_thresholds"`

	Other map[string]interface{} `json:"-" mapstructure:",remain"`
}

// Zone returns the zone with the given station number.
func (d *Device) Zone(station Station) *Zone {
	for i := range d.Zones {
		if d.Zones[i].Station == station {
			return &d.Zones[i]
		}
	}

	return nil
}

// ZoneName returns the name of the given zone. Zones of single-zone devices
// (eg. hose timers) often carry no own name and fall back to the device name.
func (d *Device) ZoneName(zone *Zone) string {
	if zone.Name != "" {
		return zone.Name
	}

	if len(d.Zones) == 1 {
		return d.Name
	}

	return "Unnamed Zone"
}

// DeviceStatus is the live status blob of a device.
type DeviceStatus struct {
	RunMode string `json:"run_mode" mapstructure:"run_mode"`

	RainDelay            int       `json:"rain_delay"              mapstructure:"rain_delay"`
	RainDelayCause       string    `json:"rain_delay_cause"        mapstructure:"rain_delay_cause"`
	RainDelayWeatherType string    `json:"rain_delay_weather_type" mapstructure:"rain_delay_weather_type"`
	RainDelayStartedAt   time.Time `json:"rain_delay_started_at"   mapstructure:"rain_delay_started_at"`

	WateringStatus *WateringStatus `json:"watering_status" mapstructure:"watering_status"`

	NextStartTime     time.Time `json:"next_start_time"     mapstructure:"next_start_time"`
	NextStartPrograms []string  `json:"next_start_programs" mapstructure:"next_start_programs"`

	// flood sensor fields
	TempF            float64 `json:"temp_f"             mapstructure:"temp_f"`
	RSSI             int     `json:"rssi"               mapstructure:"rssi"`
	FloodAlarmStatus string  `json:"flood_alarm_status" mapstructure:"flood_alarm_status"`
	TempAlarmStatus  string  `json:"temp_alarm_status"  mapstructure:"temp_alarm_status"`
}

// WateringStatus describes a currently running watering.
type WateringStatus struct {
	CurrentStation           Station          `json:"current_station"             mapstructure:"current_station"`
	Program                  string           `json:"program"                     mapstructure:"program"`
	Stations                 []StationRunTime `json:"stations"                    mapstructure:"stations"`
	StartedWateringStationAt time.Time        `json:"started_watering_station_at" mapstructure:"started_watering_station_at"`
}

type Zone struct {
	Station              Station `json:"station"                mapstructure:"station"`
	Name                 string  `json:"name"                   mapstructure:"name"`
	SmartWateringEnabled bool    `json:"smart_watering_enabled" mapstructure:"smart_watering_enabled"`
	SprinklerType        string  `json:"sprinkler_type"         mapstructure:"sprinkler_type"`
	ImageURL             string  `json:"image_url"              mapstructure:"image_url"`
}

// Battery is the battery report of battery powered devices. Some report a
// percentage directly, older firmwares only report millivolts.
type Battery struct {
	Percent  *float64 `json:"percent"  mapstructure:"percent"`
	MV       *float64 `json:"mv"       mapstructure:"mv"`
	Charging bool     `json:"charging" mapstructure:"charging"`
}

// batteryFullMV is the millivolt level considered 100% (2x 1.5V AA cells).
const batteryFullMV = 3000

// Level returns the battery level as percentage. The millivolt based
// estimate assumes 2x1.5V AA cells and is capped at 100 - chemistry
// dependent, YMMV.
func (b *Battery) Level() (float64, bool) {
	if b == nil {
		return 0, false
	}

	if b.Percent != nil {
		return *b.Percent, true
	}

	if b.MV != nil {
		return min(*b.MV/batteryFullMV*100, 100), true
	}

	return 0, false
}

// TimerProgram is a sprinkler timer program ("a", "b", "c" or the smart
// watering program "e").
type TimerProgram struct {
	ID       string `json:"id"        mapstructure:"id"`
	DeviceID string `json:"device_id" mapstructure:"device_id"`
	Program  string `json:"program"   mapstructure:"program"`
	Name     string `json:"name"      mapstructure:"name"`

	Enabled        bool `json:"enabled"          mapstructure:"enabled"`
	IsSmartProgram bool `json:"is_smart_program" mapstructure:"is_smart_program"`

	Frequency  map[string]interface{} `json:"frequency,omitempty"   mapstructure:"frequency"`
	StartTimes []string               `json:"start_times,omitempty" mapstructure:"start_times"`
	RunTimes   []StationRunTime       `json:"run_times,omitempty"   mapstructure:"run_times"`
	Budget     int                    `json:"budget,omitempty"      mapstructure:"budget"`

	WateringPlan []WateringPlan `json:"watering_plan,omitempty" mapstructure:"watering_plan"`
}

// StationRunTime is a (station, run time in minutes) pair.
type StationRunTime struct {
	Station Station `json:"station"  mapstructure:"station"`
	RunTime float64 `json:"run_time" mapstructure:"run_time"`
}

// WateringPlan is one day of a smart watering program plan.
type WateringPlan struct {
	Date       time.Time        `json:"date"        mapstructure:"date"`
	StartTimes []string         `json:"start_times" mapstructure:"start_times"`
	RunTimes   []StationRunTime `json:"run_times"   mapstructure:"run_times"`
}

// Landscape is the per-zone landscape description used by smart watering
// for soil moisture tracking.
type Landscape struct {
	ID       string  `json:"id"        mapstructure:"id"`
	DeviceID string  `json:"device_id" mapstructure:"device_id"`
	Station  Station `json:"station"   mapstructure:"station"`

	// cloud computed moisture levels: replenishment point is 0%,
	// field capacity depth is 100%
	ReplenishmentPoint float64 `json:"replenishment_point" mapstructure:"replenishment_point"`
	FieldCapacityDepth float64 `json:"field_capacity_depth" mapstructure:"field_capacity_depth"`
	CurrentWaterLevel  float64 `json:"current_water_level" mapstructure:"current_water_level"`
}

// MoistureLevel translates a user facing percentage into the cloud's
// current_water_level scale.
func (l *Landscape) MoistureLevel(percentage float64) float64 {
	return l.ReplenishmentPoint + (percentage*(l.FieldCapacityDepth-l.ReplenishmentPoint))/100.0
}

// HistoryEntry is one entry of the watering history of a device.
type HistoryEntry struct {
	Irrigation []Irrigation `json:"irrigation" mapstructure:"irrigation"`
}

// Irrigation is a single completed watering of a station.
type Irrigation struct {
	Station     Station `json:"station"          mapstructure:"station"`
	StartTime   string  `json:"start_time"       mapstructure:"start_time"`
	Budget      int     `json:"budget"           mapstructure:"budget"`
	Program     string  `json:"program"          mapstructure:"program"`
	ProgramName string  `json:"program_name"     mapstructure:"program_name"`
	RunTime     float64 `json:"run_time"         mapstructure:"run_time"`
	Status      string  `json:"status"           mapstructure:"status"`
	WaterVolume float64 `json:"water_volume_gal" mapstructure:"water_volume_gal"`
}

// Data is an immutable snapshot of everything the client knows.
type Data struct {
	Devices   []Device
	Programs  []TimerProgram
	Histories map[string][]HistoryEntry
}

// Device returns the device with the given id.
func (d *Data) Device(deviceID string) *Device {
	for i := range d.Devices {
		if d.Devices[i].ID == deviceID {
			return &d.Devices[i]
		}
	}

	return nil
}

// History returns the watering history of the given device.
func (d *Data) History(deviceID string) []HistoryEntry {
	return d.Histories[deviceID]
}

// DevicePrograms returns the programs configured on the given device.
func (d *Data) DevicePrograms(deviceID string) []TimerProgram {
	programs := make([]TimerProgram, 0)

	for _, program := range d.Programs {
		if program.DeviceID == deviceID {
			programs = append(programs, program)
		}
	}

	return programs
}

// Anonymize strips location details from a raw device payload for dumps
// shared in debug reports.
func Anonymize(rawDevice map[string]interface{}) map[string]interface{} {
	for _, key := range []string{"address", "full_location", "location"} {
		if _, ok := rawDevice[key]; ok {
			rawDevice[key] = "REDACTED"
		}
	}

	return rawDevice
}
