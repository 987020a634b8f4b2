package bridge

import (
	"context"
	"encoding/json"

	"github.com/sebr/bhyve-bridge/internal/bhyve"
	"github.com/sebr/bhyve-bridge/internal/icons"
	"github.com/sebr/bhyve-bridge/internal/models/command"
	"github.com/sebr/bhyve-bridge/internal/style"
)

// commandPayload is the JSON payload accepted on the device command topic.
type commandPayload struct {
	Command command.Command `json:"command"`

	Station *bhyve.Station `json:"station,omitempty"`

	Minutes    float64 `json:"minutes,omitempty"`
	Hours      int     `json:"hours,omitempty"`
	Percentage float64 `json:"percentage,omitempty"`
	Program    string  `json:"program,omitempty"`
}

// handleDeviceCommand dispatches a JSON command received on the command
// topic of a device.
func (b *Bridge) handleDeviceCommand(deviceID string, rawPayload []byte) {
	var payload commandPayload

	if err := json.Unmarshal(rawPayload, &payload); err != nil {
		b.pr.Warnf("%s undecodable command payload for %s: %s", icons.Hae, deviceID, err)

		return
	}

	if !payload.Command.IsValid() {
		b.pr.Warnf("%s unknown command: %s", icons.Hae, payload.Command)

		return
	}

	b.pr.Printf("%s received command %s for %s", icons.Plug, payload.Command.FmtString(), style.Bold(deviceID))

	switch payload.Command {
	case command.StartWatering:
		b.startWatering(deviceID, payload.Station, payload.Minutes)

	case command.StopWatering:
		b.stopWatering(deviceID)

	case command.EnableRainDelay:
		hours := payload.Hours
		if hours == 0 {
			hours = b.config.DefaultRainDelay
		}

		if sw := b.rainDelaySwitch(deviceID); sw != nil {
			sw.EnableRainDelay(hours)
		}

	case command.DisableRainDelay:
		if sw := b.rainDelaySwitch(deviceID); sw != nil {
			sw.DisableRainDelay()
		}

	case command.SetManualPresetRuntime:
		seconds := int(payload.Minutes * 60)

		if err := b.api.Send(context.Background(), bhyve.NewSetManualPresetRuntimeMsg(deviceID, seconds)); err != nil {
			b.pr.Warnf("failed to set manual preset runtime: %s", err)
		}

	case command.SetSoilMoisture:
		if payload.Station == nil {
			b.pr.Warnf("%s set soil moisture needs a station", icons.Hae)

			return
		}

		if valve := b.zoneValve(deviceID, *payload.Station); valve != nil {
			valve.SetSoilMoisture(context.Background(), payload.Percentage)
		}

	case command.StartProgram:
		if sw := b.programSwitch(deviceID, payload.Program); sw != nil {
			sw.Start()
		} else {
			b.pr.Warnf("%s no program %q on %s", icons.Hae, payload.Program, deviceID)
		}
	}
}

// startWatering opens a zone valve. Devices with a single zone may omit the
// station.
func (b *Bridge) startWatering(deviceID string, station *bhyve.Station, minutes float64) {
	valves := b.zoneValves(deviceID)

	var valve *zoneValve

	switch {
	case station != nil:
		valve = b.zoneValve(deviceID, *station)
	case len(valves) == 1:
		valve = valves[0]
	}

	if valve == nil {
		b.pr.Warnf("%s start watering needs a station on multi-zone devices", icons.Hae)

		return
	}

	if minutes == 0 {
		valve.HandleCommand(payloadOpen)

		return
	}

	valve.StartWatering(minutes)
}

// stopWatering stops all watering on a device.
func (b *Bridge) stopWatering(deviceID string) {
	valves := b.zoneValves(deviceID)

	if len(valves) == 0 {
		if err := b.api.Send(context.Background(), bhyve.NewManualRunMsg(deviceID, nil)); err != nil {
			b.pr.Warnf("failed to stop watering: %s", err)
		}

		return
	}

	for _, valve := range valves {
		valve.StopWatering()
	}
}

// typed entity lookups

func (b *Bridge) zoneValves(deviceID string) []*zoneValve {
	valves := make([]*zoneValve, 0)

	for _, ent := range b.deviceEntities[deviceID] {
		if valve, ok := ent.(*zoneValve); ok {
			valves = append(valves, valve)
		}
	}

	return valves
}

func (b *Bridge) zoneValve(deviceID string, station bhyve.Station) *zoneValve {
	for _, valve := range b.zoneValves(deviceID) {
		if valve.zone.Station == station {
			return valve
		}
	}

	return nil
}

func (b *Bridge) rainDelaySwitch(deviceID string) *rainDelaySwitch {
	for _, ent := range b.deviceEntities[deviceID] {
		if sw, ok := ent.(*rainDelaySwitch); ok {
			return sw
		}
	}

	return nil
}

func (b *Bridge) programSwitch(deviceID, program string) *programSwitch {
	for _, ent := range b.deviceEntities[deviceID] {
		if sw, ok := ent.(*programSwitch); ok && sw.program.Program == program {
			return sw
		}
	}

	return nil
}
