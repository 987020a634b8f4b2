package bhyve

import (
	"testing"
	"time"
)

func Test_DecodeEvent(t *testing.T) {
	raw := map[string]interface{}{
		"event":                       "watering_in_progress_notification",
		"device_id":                   "dev1",
		"timestamp":                   "2020-01-09T20:30:00.000Z",
		"program":                     "e",
		"current_station":             1,
		"run_time":                    14,
		"started_watering_station_at": "2020-01-09T20:29:59.000Z",
	}

	event, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}

	if event.Type != EventWateringInProgress {
		t.Errorf("event.Type = %v, want %v", event.Type, EventWateringInProgress)
	}

	if event.DeviceID != "dev1" {
		t.Errorf("event.DeviceID = %v, want dev1", event.DeviceID)
	}

	if event.Timestamp.IsZero() {
		t.Error("event.Timestamp is zero")
	}

	watering, err := event.WateringInProgress()
	if err != nil {
		t.Fatalf("WateringInProgress() error = %v", err)
	}

	if watering.CurrentStation != 1 {
		t.Errorf("watering.CurrentStation = %v, want 1", watering.CurrentStation)
	}

	if watering.Program != "e" {
		t.Errorf("watering.Program = %v, want e", watering.Program)
	}

	want := time.Date(2020, 1, 9, 20, 29, 59, 0, time.UTC)
	if !watering.StartedWateringStationAt.Equal(want) {
		t.Errorf("watering.StartedWateringStationAt = %v, want %v", watering.StartedWateringStationAt, want)
	}
}

func Test_DecodeEventEmptyTimestamp(t *testing.T) {
	raw := map[string]interface{}{
		"event":     "change_mode",
		"device_id": "dev1",
		"timestamp": "",
		"mode":      "auto",
	}

	event, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}

	if !event.Timestamp.IsZero() {
		t.Errorf("event.Timestamp = %v, want zero time", event.Timestamp)
	}

	changeMode, err := event.ChangeMode()
	if err != nil {
		t.Fatalf("ChangeMode() error = %v", err)
	}

	if changeMode.Mode != "auto" {
		t.Errorf("changeMode.Mode = %v, want auto", changeMode.Mode)
	}
}

func Test_TargetDeviceID(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]interface{}
		want string
	}{
		{
			name: "device id in the envelope",
			raw: map[string]interface{}{
				"event":     "device_idle",
				"device_id": "dev1",
			},
			want: "dev1",
		},
		{
			name: "program event carries the device id in the payload",
			raw: map[string]interface{}{
				"event": "program_changed",
				"program": map[string]interface{}{
					"id":        "p1",
					"device_id": "dev2",
					"program":   "a",
				},
			},
			want: "dev2",
		},
		{
			name: "no device at all",
			raw: map[string]interface{}{
				"event": "ping",
			},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := DecodeEvent(tt.raw)
			if err != nil {
				t.Fatalf("DecodeEvent() error = %v", err)
			}

			if got := event.TargetDeviceID(); got != tt.want {
				t.Errorf("TargetDeviceID() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_BatteryStatusEvent(t *testing.T) {
	raw := map[string]interface{}{
		"event":     "battery_status",
		"device_id": "dev1",
		"mv":        2550,
		"charging":  false,
	}

	event, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}

	batteryStatus, err := event.BatteryStatus()
	if err != nil {
		t.Fatalf("BatteryStatus() error = %v", err)
	}

	level, ok := batteryStatus.Level()
	if !ok {
		t.Fatal("Level() reported no battery data")
	}

	if level != 85 {
		t.Errorf("Level() = %v, want 85", level)
	}
}

func Test_ProgramChangedEvent(t *testing.T) {
	raw := map[string]interface{}{
		"event":           "program_changed",
		"lifecycle_phase": "update",
		"program": map[string]interface{}{
			"id":        "p1",
			"device_id": "dev1",
			"program":   "a",
			"name":      "Morning",
			"enabled":   true,
			"run_times": []interface{}{
				map[string]interface{}{"station": 1, "run_time": 10},
			},
		},
	}

	event, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}

	programChanged, err := event.ProgramChanged()
	if err != nil {
		t.Fatalf("ProgramChanged() error = %v", err)
	}

	if programChanged.LifecyclePhase != "update" {
		t.Errorf("LifecyclePhase = %v, want update", programChanged.LifecyclePhase)
	}

	program := programChanged.Program
	if program == nil {
		t.Fatal("Program is nil")
	}

	if program.Name != "Morning" || !program.Enabled {
		t.Errorf("Program = %+v, want enabled Morning", program)
	}

	if len(program.RunTimes) != 1 || program.RunTimes[0].Station != 1 || program.RunTimes[0].RunTime != 10 {
		t.Errorf("Program.RunTimes = %+v, want station 1 for 10m", program.RunTimes)
	}
}
