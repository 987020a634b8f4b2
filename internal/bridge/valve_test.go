package bridge

import (
	"sync"
	"testing"
	"time"

	"github.com/sebr/bhyve-bridge/internal/bhyve"
)

func pushEvent(t *testing.T, raw map[string]interface{}) *bhyve.Event {
	t.Helper()

	event, err := bhyve.DecodeEvent(raw)
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}

	return event
}

func sprinklerDevice() bhyve.Device {
	return bhyve.Device{
		ID:         "dev1",
		Name:       "Backyard",
		MacAddress: "aa:bb",
		Type:       "sprinkler_timer",
		Zones: []bhyve.Zone{
			{Station: 1, Name: "Lawn", SmartWateringEnabled: true},
			{Station: 2, Name: "Beds"},
		},
		ManualPresetRuntimeSec: 600,
		Status: &bhyve.DeviceStatus{
			RunMode: "auto",
		},
	}
}

func Test_ZoneValveIdle(t *testing.T) {
	b := newTestBridge(t)
	device := sprinklerDevice()

	valve := newZoneValve(b, device, device.Zones[0], "Lawn", nil)

	if !valve.isClosed {
		t.Error("idle valve should be closed")
	}

	if valve.attrs["zone_name"] != "Lawn" || valve.attrs["device_id"] != "dev1" {
		t.Errorf("unexpected attrs: %+v", valve.attrs)
	}

	if valve.attrs[attrManualRuntime] != 600 {
		t.Errorf("manual runtime = %v, want 600", valve.attrs[attrManualRuntime])
	}
}

func Test_ZoneValveWatering(t *testing.T) {
	b := newTestBridge(t)
	device := sprinklerDevice()

	startedAt := time.Date(2020, 1, 9, 20, 29, 59, 0, time.UTC)
	device.Status.WateringStatus = &bhyve.WateringStatus{
		CurrentStation:           1,
		Program:                  "e",
		Stations:                 []bhyve.StationRunTime{{Station: 1, RunTime: 14}},
		StartedWateringStationAt: startedAt,
	}

	watering := newZoneValve(b, device, device.Zones[0], "Lawn", nil)
	if watering.isClosed {
		t.Error("valve of the running station should be open")
	}

	if watering.attrs[attrCurrentProgram] != "e" {
		t.Errorf("current program = %v, want e", watering.attrs[attrCurrentProgram])
	}

	// the other zone stays closed
	idle := newZoneValve(b, device, device.Zones[1], "Beds", nil)
	if !idle.isClosed {
		t.Error("valve of an idle station should stay closed")
	}
}

func Test_ZoneValveProgramAttrs(t *testing.T) {
	b := newTestBridge(t)
	device := sprinklerDevice()

	programs := []bhyve.TimerProgram{
		{
			ID: "p1", DeviceID: "dev1", Program: "a", Name: "Morning", Enabled: true,
			StartTimes: []string{"06:30"},
			RunTimes:   []bhyve.StationRunTime{{Station: 1, RunTime: 10}, {Station: 2, RunTime: 5}},
		},
		{
			ID: "p2", DeviceID: "dev1", Program: "b", Name: "Disabled", Enabled: false,
			RunTimes: []bhyve.StationRunTime{{Station: 1, RunTime: 10}},
		},
	}

	valve := newZoneValve(b, device, device.Zones[0], "Lawn", programs)

	summary, ok := valve.attrs["program_a"].(map[string]interface{})
	if !ok {
		t.Fatalf("program_a attr missing: %+v", valve.attrs)
	}

	runTimes, ok := summary["run_times"].([]bhyve.StationRunTime)
	if !ok || len(runTimes) != 1 || runTimes[0].Station != 1 {
		t.Errorf("run_times = %v, want only station 1", summary["run_times"])
	}

	disabled, ok := valve.attrs["program_b"].(map[string]interface{})
	if !ok {
		t.Fatalf("program_b attr missing: %+v", valve.attrs)
	}

	if _, hasRunTimes := disabled["run_times"]; hasRunTimes {
		t.Errorf("disabled program should not list run times: %+v", disabled)
	}
}

func Test_UpcomingRunTimes(t *testing.T) {
	b := newTestBridge(t)
	device := sprinklerDevice()

	valve := newZoneValve(b, device, device.Zones[0], "Lawn", nil)

	program := &bhyve.TimerProgram{
		ID: "p1", Program: "e", IsSmartProgram: true, Enabled: true,
		WateringPlan: []bhyve.WateringPlan{
			{
				Date:       time.Date(2020, 1, 10, 0, 0, 0, 0, time.UTC),
				StartTimes: []string{"07:15"},
				RunTimes:   []bhyve.StationRunTime{{Station: 1, RunTime: 12}},
			},
			{
				// plan day without this zone
				Date:       time.Date(2020, 1, 11, 0, 0, 0, 0, time.UTC),
				StartTimes: []string{"07:15"},
				RunTimes:   []bhyve.StationRunTime{{Station: 2, RunTime: 12}},
			},
		},
	}

	upcoming := valve.upcomingRunTimes(program)

	if len(upcoming) != 1 {
		t.Fatalf("upcomingRunTimes() returned %d entries, want 1", len(upcoming))
	}

	want := time.Date(2020, 1, 10, 7, 15, 0, 0, time.UTC)
	if !upcoming[0].Equal(want) {
		t.Errorf("upcomingRunTimes()[0] = %v, want %v", upcoming[0], want)
	}
}

func Test_ZoneValveEventTransitions(t *testing.T) {
	wateringStation1 := map[string]interface{}{
		"event":           "watering_in_progress_notification",
		"device_id":       "dev1",
		"program":         "e",
		"current_station": 1,
		"run_time":        14,
	}

	tests := []struct {
		name       string
		events     []map[string]interface{}
		wantClosed bool
	}{
		{
			name:       "opens when the own station starts watering",
			events:     []map[string]interface{}{wateringStation1},
			wantClosed: false,
		},
		{
			name: "closes when another station takes over",
			events: []map[string]interface{}{
				wateringStation1,
				{"event": "watering_in_progress_notification", "device_id": "dev1", "program": "e", "current_station": 2},
			},
			wantClosed: true,
		},
		{
			name: "closes when the device goes idle",
			events: []map[string]interface{}{
				wateringStation1,
				{"event": "device_idle", "device_id": "dev1"},
			},
			wantClosed: true,
		},
		{
			name: "closes when the watering completes",
			events: []map[string]interface{}{
				wateringStation1,
				{"event": "watering_complete", "device_id": "dev1"},
			},
			wantClosed: true,
		},
		{
			name: "closes when the run mode changes to off",
			events: []map[string]interface{}{
				wateringStation1,
				{"event": "change_mode", "device_id": "dev1", "mode": "off"},
			},
			wantClosed: true,
		},
		{
			name: "closes when the run mode changes back to auto",
			events: []map[string]interface{}{
				wateringStation1,
				{"event": "change_mode", "device_id": "dev1", "mode": "auto"},
			},
			wantClosed: true,
		},
		{
			name: "stays open in manual mode",
			events: []map[string]interface{}{
				wateringStation1,
				{"event": "change_mode", "device_id": "dev1", "mode": "manual"},
			},
			wantClosed: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBridge(t)
			device := sprinklerDevice()

			valve := newZoneValve(b, device, device.Zones[0], "Lawn", nil)

			for _, raw := range tt.events {
				valve.HandleEvent(pushEvent(t, raw))
			}

			if valve.isClosed != tt.wantClosed {
				t.Errorf("isClosed = %v, want %v", valve.isClosed, tt.wantClosed)
			}

			wantState := stateOpen
			if tt.wantClosed {
				wantState = stateClosed
			}

			mq, _ := b.mq.(*fakeBroker)
			if got := mq.message("bhyve/dev1/zone_1/state"); got != wantState {
				t.Errorf("published state = %q, want %q", got, wantState)
			}
		})
	}
}

func Test_ZoneValvePresetRuntimeEvent(t *testing.T) {
	b := newTestBridge(t)
	device := sprinklerDevice()

	valve := newZoneValve(b, device, device.Zones[0], "Lawn", nil)

	valve.HandleEvent(pushEvent(t, map[string]interface{}{
		"event":     "set_manual_preset_runtime",
		"device_id": "dev1",
		"seconds":   900,
	}))

	if valve.manualPresetRuntime != 900 {
		t.Errorf("manualPresetRuntime = %v, want 900", valve.manualPresetRuntime)
	}

	if valve.attrs[attrManualRuntime] != 900 {
		t.Errorf("manual runtime attr = %v, want 900", valve.attrs[attrManualRuntime])
	}
}

func Test_ZoneValveRefreshPresetRuntime(t *testing.T) {
	b := newTestBridge(t)
	device := sprinklerDevice()

	valve := newZoneValve(b, device, device.Zones[0], "Lawn", nil)

	// preset changed while the bridge was away, only visible via REST
	device.ManualPresetRuntimeSec = 900
	valve.Refresh(&bhyve.Data{Devices: []bhyve.Device{device}})

	if valve.manualPresetRuntime != 900 {
		t.Errorf("manualPresetRuntime = %v, want 900", valve.manualPresetRuntime)
	}

	if valve.attrs[attrManualRuntime] != 900 {
		t.Errorf("manual runtime attr = %v, want 900", valve.attrs[attrManualRuntime])
	}
}

func Test_ZoneValveConcurrentUpdates(t *testing.T) {
	b := newTestBridge(t)
	device := sprinklerDevice()

	programs := []bhyve.TimerProgram{
		{
			ID: "p1", DeviceID: "dev1", Program: "a", Name: "Morning", Enabled: true,
			StartTimes: []string{"06:30"},
			RunTimes:   []bhyve.StationRunTime{{Station: 1, RunTime: 10}},
		},
	}

	valve := newZoneValve(b, device, device.Zones[0], "Lawn", programs)

	data := &bhyve.Data{
		Devices:  []bhyve.Device{device},
		Programs: programs,
	}

	programChanged := pushEvent(t, map[string]interface{}{
		"event": "program_changed",
		"program": map[string]interface{}{
			"id": "p1", "device_id": "dev1", "program": "a", "name": "Morning", "enabled": true,
		},
	})

	// refreshes and push events arrive on different goroutines
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()

			valve.Refresh(data)
		}()

		go func() {
			defer wg.Done()

			valve.HandleEvent(programChanged)
		}()
	}

	wg.Wait()
}
