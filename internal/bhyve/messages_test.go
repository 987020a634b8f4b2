package bhyve

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func Test_ManualRunMsg(t *testing.T) {
	msg := NewManualRunMsg("dev1", []StationRunTime{{Station: 2, RunTime: 5}})

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	if payload["event"] != "change_mode" || payload["mode"] != "manual" || payload["device_id"] != "dev1" {
		t.Errorf("unexpected payload: %s", raw)
	}

	stations, ok := payload["stations"].([]interface{})
	if !ok || len(stations) != 1 {
		t.Fatalf("stations = %v, want one entry", payload["stations"])
	}

	station, _ := stations[0].(map[string]interface{})
	if station["station"] != float64(2) || station["run_time"] != float64(5) {
		t.Errorf("station = %v, want station 2 for 5m", station)
	}

	timestamp, _ := payload["timestamp"].(string)
	if _, err := time.Parse(timestampFormat, timestamp); err != nil {
		t.Errorf("timestamp %q does not match the wire format: %v", timestamp, err)
	}
}

func Test_ManualRunMsgStop(t *testing.T) {
	// stopping sends an empty station list, the cloud rejects null
	raw, err := json.Marshal(NewManualRunMsg("dev1", nil))
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	if !strings.Contains(string(raw), `"stations":[]`) {
		t.Errorf("payload = %s, want empty stations list", raw)
	}
}

func Test_RainDelayMsg(t *testing.T) {
	raw, err := json.Marshal(NewRainDelayMsg("dev1", 24))
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	if payload["event"] != "rain_delay" || payload["device_id"] != "dev1" || payload["delay"] != float64(24) {
		t.Errorf("unexpected payload: %s", raw)
	}
}

func Test_SetManualPresetRuntimeMsg(t *testing.T) {
	raw, err := json.Marshal(NewSetManualPresetRuntimeMsg("dev1", 900))
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	if payload["event"] != "set_manual_preset_runtime" || payload["seconds"] != float64(900) {
		t.Errorf("unexpected payload: %s", raw)
	}
}

func Test_RunProgramMsg(t *testing.T) {
	raw, err := json.Marshal(NewRunProgramMsg("dev1", "a"))
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	if payload["event"] != "change_mode" || payload["mode"] != "manual" || payload["program"] != "a" {
		t.Errorf("unexpected payload: %s", raw)
	}
}
