package bhyve

import (
	"fmt"
	"strings"
	"time"

	"github.com/sebr/bhyve-bridge/internal/style"
)

// wire format of the change_mode timestamp field.
const timestampFormat = "2006-01-02T15:04:05Z"

// Message is the interface for all messages sent to the events websocket.
type Message interface {
	// EventType returns the event type of the message.
	EventType() EventType

	// String returns a string representation of the message.
	String() string
}

// baseMessage is the base struct for all messages sent to the events websocket.
type baseMessage struct {
	Event EventType `json:"event"`
}

func (m *baseMessage) EventType() EventType {
	return m.Event
}

func (m *baseMessage) framelessString() string {
	out := strings.Builder{}
	out.WriteString(style.Gray(8).Render(string(m.Event)))

	return out.String()
}

func (m *baseMessage) String() string {
	return style.OrbitBlueFrame(m.framelessString())
}

// appConnectionMsg authenticates the websocket right after dialing.
type appConnectionMsg struct {
	baseMessage
	OrbitSessionToken string `json:"orbit_session_token"`
}

func newAppConnectionMsg(token string) *appConnectionMsg {
	return &appConnectionMsg{
		baseMessage:       baseMessage{Event: "app_connection"},
		OrbitSessionToken: token,
	}
}

// pingMsg is the app level heartbeat.
type pingMsg struct {
	baseMessage
}

func newPingMsg() *pingMsg {
	return &pingMsg{baseMessage{Event: "ping"}}
}

// ManualRunMsg starts watering the given stations - or stops all watering
// when the station list is empty.
type ManualRunMsg struct {
	baseMessage
	Mode      string           `json:"mode"`
	DeviceID  string           `json:"device_id"`
	Timestamp string           `json:"timestamp"`
	Stations  []StationRunTime `json:"stations"`
}

func NewManualRunMsg(deviceID string, stations []StationRunTime) *ManualRunMsg {
	if stations == nil {
		// the cloud expects an empty list, not null
		stations = []StationRunTime{}
	}

	return &ManualRunMsg{
		baseMessage: baseMessage{Event: EventChangeMode},
		Mode:        "manual",
		DeviceID:    deviceID,
		Timestamp:   time.Now().UTC().Format(timestampFormat),
		Stations:    stations,
	}
}

func (m *ManualRunMsg) String() string {
	out := strings.Builder{}

	out.WriteString(m.framelessString())
	out.WriteString(style.ColorizeOrbitBlue(" → "))

	if len(m.Stations) == 0 {
		out.WriteString("stop all stations")
	}

	for i, station := range m.Stations {
		if i > 0 {
			out.WriteString(style.ColorizeOrbitBlue("|"))
		}

		out.WriteString(fmt.Sprintf("station %s for %.0fm", style.Bold(station.Station.String()), station.RunTime))
	}

	return style.OrbitBlueFrame(out.String())
}

// RunProgramMsg manually runs a timer program.
type RunProgramMsg struct {
	baseMessage
	Mode      string      `json:"mode"`
	DeviceID  string      `json:"device_id"`
	Timestamp string      `json:"timestamp"`
	Program   interface{} `json:"program"`
}

func NewRunProgramMsg(deviceID string, program interface{}) *RunProgramMsg {
	return &RunProgramMsg{
		baseMessage: baseMessage{Event: EventChangeMode},
		Mode:        "manual",
		DeviceID:    deviceID,
		Timestamp:   time.Now().UTC().Format(timestampFormat),
		Program:     program,
	}
}

func (m *RunProgramMsg) String() string {
	out := strings.Builder{}

	out.WriteString(m.framelessString())
	out.WriteString(style.ColorizeOrbitBlue(" → "))
	out.WriteString(fmt.Sprintf("program %v", m.Program))

	return style.OrbitBlueFrame(out.String())
}

// RainDelayMsg sets the rain delay in hours, 0 disables it.
//
// {event: "rain_delay", device_id: "abc", delay: 48}
type RainDelayMsg struct {
	baseMessage
	DeviceID string `json:"device_id"`
	Delay    int    `json:"delay"`
}

func NewRainDelayMsg(deviceID string, hours int) *RainDelayMsg {
	return &RainDelayMsg{
		baseMessage: baseMessage{Event: EventRainDelay},
		DeviceID:    deviceID,
		Delay:       hours,
	}
}

func (m *RainDelayMsg) String() string {
	out := strings.Builder{}

	out.WriteString(m.framelessString())
	out.WriteString(style.ColorizeOrbitBlue(" → "))
	out.WriteString(style.Bold(fmt.Sprintf("%dh", m.Delay)))

	return style.OrbitBlueFrame(out.String())
}

// SetManualPresetRuntimeMsg sets the default watering runtime of a device.
//
// {event: "set_manual_preset_runtime", device_id: "abc", seconds: 900}
type SetManualPresetRuntimeMsg struct {
	baseMessage
	DeviceID string `json:"device_id"`
	Seconds  int    `json:"seconds"`
}

func NewSetManualPresetRuntimeMsg(deviceID string, seconds int) *SetManualPresetRuntimeMsg {
	return &SetManualPresetRuntimeMsg{
		baseMessage: baseMessage{Event: EventSetManualPresetRuntime},
		DeviceID:    deviceID,
		Seconds:     seconds,
	}
}

func (m *SetManualPresetRuntimeMsg) String() string {
	out := strings.Builder{}

	out.WriteString(m.framelessString())
	out.WriteString(style.ColorizeOrbitBlue(" → "))
	out.WriteString(style.Bold(fmt.Sprintf("%ds", m.Seconds)))

	return style.OrbitBlueFrame(out.String())
}
