package bridge

import (
	"encoding/json"
	"testing"

	"github.com/sebr/bhyve-bridge/internal/models/command"
)

func Test_CommandPayload(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantCommand command.Command
		wantValid   bool
	}{
		{
			name:        "start watering",
			raw:         `{"command": "start_watering", "station": 2, "minutes": 10}`,
			wantCommand: command.StartWatering,
			wantValid:   true,
		},
		{
			name:        "station as string",
			raw:         `{"command": "start_watering", "station": "2"}`,
			wantCommand: command.StartWatering,
			wantValid:   true,
		},
		{
			name:        "rain delay",
			raw:         `{"command": "enable_rain_delay", "hours": 48}`,
			wantCommand: command.EnableRainDelay,
			wantValid:   true,
		},
		{
			name:        "soil moisture",
			raw:         `{"command": "set_smart_watering_soil_moisture", "station": 1, "percentage": 75}`,
			wantCommand: command.SetSoilMoisture,
			wantValid:   true,
		},
		{
			name:        "unknown command",
			raw:         `{"command": "make_coffee"}`,
			wantCommand: command.Command("make_coffee"),
			wantValid:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload commandPayload
			if err := json.Unmarshal([]byte(tt.raw), &payload); err != nil {
				t.Fatalf("json.Unmarshal() error = %v", err)
			}

			if payload.Command != tt.wantCommand {
				t.Errorf("Command = %v, want %v", payload.Command, tt.wantCommand)
			}

			if payload.Command.IsValid() != tt.wantValid {
				t.Errorf("IsValid() = %v, want %v", payload.Command.IsValid(), tt.wantValid)
			}
		})
	}
}

func Test_CommandPayloadStation(t *testing.T) {
	var payload commandPayload
	if err := json.Unmarshal([]byte(`{"command": "start_watering", "station": "3"}`), &payload); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	if payload.Station == nil || *payload.Station != 3 {
		t.Errorf("Station = %v, want 3", payload.Station)
	}
}

func Test_OnOff(t *testing.T) {
	if onOff(true) != "ON" || onOff(false) != "OFF" {
		t.Error("onOff() payloads do not match the discovery defaults")
	}

	for payload, want := range map[string]bool{"ON": true, "on": true, " On ": true, "OFF": false, "": false} {
		if got := isOn(payload); got != want {
			t.Errorf("isOn(%q) = %v, want %v", payload, got, want)
		}
	}
}
