package bhyve

import (
	"time"

	"github.com/mitchellh/mapstructure"
)

var (
	EventChangeMode             = EventType("change_mode")
	EventDeviceIdle             = EventType("device_idle")
	EventWateringInProgress     = EventType("watering_in_progress_notification")
	EventWateringComplete       = EventType("watering_complete")
	EventRainDelay              = EventType("rain_delay")
	EventSetManualPresetRuntime = EventType("set_manual_preset_runtime")
	EventProgramChanged         = EventType("program_changed")
	EventFloodSensorStatus      = EventType("fs_status_update")
	EventBatteryStatus          = EventType("battery_status")
	EventDeviceConnected        = EventType("device_connected")
	EventDeviceDisconnected     = EventType("device_disconnected")
)

type EventType string

// Event is a push message received on the events websocket. Only the
// envelope is typed - the event specific payload stays in Data and is
// decoded on demand by the typed accessors below.
type Event struct {
	Type      EventType `json:"event"     mapstructure:"event"`
	DeviceID  string    `json:"device_id" mapstructure:"device_id"`
	Timestamp time.Time `json:"timestamp" mapstructure:"timestamp"`

	Data map[string]interface{} `mapstructure:",remain"`
}

// DecodeEvent decodes a raw websocket message into an Event.
func DecodeEvent(raw map[string]interface{}) (*Event, error) {
	var event Event

	if err := decode(raw, &event); err != nil {
		return nil, err
	}

	return &event, nil
}

// TargetDeviceID returns the device the event belongs to. Program events
// carry the device id inside the program payload instead of the envelope.
func (e *Event) TargetDeviceID() string {
	if e.DeviceID != "" {
		return e.DeviceID
	}

	if e.Type == EventProgramChanged {
		if programChanged, err := e.ProgramChanged(); err == nil && programChanged.Program != nil {
			return programChanged.Program.DeviceID
		}
	}

	return ""
}

// ChangeModeEvent reports a run mode change (auto/manual/off).
type ChangeModeEvent struct {
	Mode     string           `mapstructure:"mode"`
	Program  string           `mapstructure:"program"`
	Stations []StationRunTime `mapstructure:"stations"`
}

func (e *Event) ChangeMode() (*ChangeModeEvent, error) {
	var changeMode ChangeModeEvent

	return &changeMode, decode(e.Data, &changeMode)
}

// WateringInProgressEvent reports a station that started watering.
//
// {'event': 'watering_in_progress_notification', 'program': 'e', 'current_station': 1,
//  'run_time': 14, 'started_watering_station_at': '2020-01-09T20:29:59.000Z', ...}
type WateringInProgressEvent struct {
	Program                  string    `mapstructure:"program"`
	CurrentStation           Station   `mapstructure:"current_station"`
	RunTime                  float64   `mapstructure:"run_time"`
	StartedWateringStationAt time.Time `mapstructure:"started_watering_station_at"`
	RainSensorHold           bool      `mapstructure:"rain_sensor_hold"`
}

func (e *Event) WateringInProgress() (*WateringInProgressEvent, error) {
	var watering WateringInProgressEvent

	return &watering, decode(e.Data, &watering)
}

// RainDelayEvent reports a new rain delay in hours, 0 clears it.
type RainDelayEvent struct {
	Delay int `mapstructure:"delay"`
}

func (e *Event) RainDelay() (*RainDelayEvent, error) {
	var rainDelay RainDelayEvent

	return &rainDelay, decode(e.Data, &rainDelay)
}

// SetManualPresetRuntimeEvent reports a changed manual preset runtime.
type SetManualPresetRuntimeEvent struct {
	Seconds int `mapstructure:"seconds"`
}

func (e *Event) SetManualPresetRuntime() (*SetManualPresetRuntimeEvent, error) {
	var presetRuntime SetManualPresetRuntimeEvent

	return &presetRuntime, decode(e.Data, &presetRuntime)
}

// ProgramChangedEvent reports a created/updated/deleted timer program.
type ProgramChangedEvent struct {
	Program        *TimerProgram `mapstructure:"program"`
	LifecyclePhase string        `mapstructure:"lifecycle_phase"`
}

func (e *Event) ProgramChanged() (*ProgramChangedEvent, error) {
	var programChanged ProgramChangedEvent

	return &programChanged, decode(e.Data, &programChanged)
}

// FloodSensorStatusEvent is the periodic status report of a flood sensor.
//
// {"event":"fs_status_update","temp_f":75.2,"rssi":-60,"temp_alarm_status":"ok",
//  "flood_alarm_status":"ok","location_name":...,...}
type FloodSensorStatusEvent struct {
	TempF            float64 `mapstructure:"temp_f"`
	RSSI             int     `mapstructure:"rssi"`
	FloodAlarmStatus string  `mapstructure:"flood_alarm_status"`
	TempAlarmStatus  string  `mapstructure:"temp_alarm_status"`
}

func (e *Event) FloodSensorStatus() (*FloodSensorStatusEvent, error) {
	var floodStatus FloodSensorStatusEvent

	return &floodStatus, decode(e.Data, &floodStatus)
}

// BatteryStatusEvent reports the battery level of a battery powered device.
type BatteryStatusEvent struct {
	Battery `mapstructure:",squash"`
}

func (e *Event) BatteryStatus() (*BatteryStatusEvent, error) {
	var batteryStatus BatteryStatusEvent

	return &batteryStatus, decode(e.Data, &batteryStatus)
}

// decode maps a raw payload into a typed struct with the orbit specific
// decode hooks applied.
func decode(raw map[string]interface{}, result interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			OrbitTimeHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
		),
		Result: result,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(raw)
}
