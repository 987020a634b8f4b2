package bridge

import (
	"context"
	"time"

	"github.com/sebr/bhyve-bridge/internal/bhyve"
	"github.com/sebr/bhyve-bridge/internal/icons"
	"github.com/sebr/bhyve-bridge/internal/style"
)

const (
	payloadOpen  = "OPEN"
	payloadClose = "CLOSE"
	stateOpen    = "open"
	stateClosed  = "closed"

	attrManualRuntime        = "manual_preset_runtime"
	attrSmartWateringEnabled = "smart_watering_enabled"
	attrSprinklerType        = "sprinkler_type"
	attrImageURL             = "image_url"
	attrStartedWateringAt    = "started_watering_station_at"
	attrSmartWateringPlan    = "watering_program"
	attrCurrentStation       = "current_station"
	attrCurrentProgram       = "current_program"
	attrCurrentRuntime       = "current_runtime"
	attrNextStartTime        = "next_start_time"
	attrNextStartPrograms    = "next_start_programs"
)

// zoneValve is a watering zone exposed as a valve: open starts a manual
// watering, close stops it.
type zoneValve struct {
	deviceEntity

	zone     bhyve.Zone
	zoneName string

	isClosed bool

	// default manual watering runtime in seconds
	manualPresetRuntime int
}

func newZoneValve(br *Bridge, device bhyve.Device, zone bhyve.Zone, zoneName string, programs []bhyve.TimerProgram) *zoneValve {
	valve := &zoneValve{
		zone:     zone,
		zoneName: zoneName,

		isClosed: true,
	}
	valve.init(br, device, "zone_"+zone.Station.String(), zoneName+" zone")

	valve.pr.Infof("%s creating valve: %s", icons.Valve, style.Bold(valve.name))

	valve.setup(&device, programs)

	return valve
}

func (v *zoneValve) Component() string { return componentValve }

func (v *zoneValve) DiscoveryConfig() discoveryConfig {
	config := v.baseDiscovery()
	config.DeviceClass = "water"
	config.CommandTopic = v.commandTopic()
	config.ReportsPosition = new(bool) // false - we only know open/closed
	config.EntityPicture = v.zone.ImageURL

	return config
}

func (v *zoneValve) Refresh(data *bhyve.Data) {
	v.Lock()
	defer v.Unlock()

	device := v.updateDevice(data)
	if device == nil {
		return
	}

	v.setup(device, data.DevicePrograms(device.ID))
	v.publish()
}

// setup derives the full valve state from a device snapshot.
func (v *zoneValve) setup(device *bhyve.Device, programs []bhyve.TimerProgram) {
	v.isClosed = true
	v.manualPresetRuntime = device.ManualPresetRuntimeSec
	v.attrs = map[string]interface{}{
		"device_name":            device.Name,
		"device_id":              device.ID,
		"zone_name":              v.zoneName,
		"station":                v.zone.Station,
		attrSmartWateringEnabled: v.zone.SmartWateringEnabled,
	}

	status := device.Status
	if status == nil {
		return
	}

	zone := device.Zone(v.zone.Station)
	if zone == nil {
		return
	}

	v.zone = *zone

	v.attrs[attrManualRuntime] = v.manualPresetRuntime

	if !status.NextStartTime.IsZero() {
		v.attrs[attrNextStartTime] = status.NextStartTime.Local().Format(time.RFC3339)
		v.attrs[attrNextStartPrograms] = status.NextStartPrograms
	}

	if zone.SprinklerType != "" {
		v.attrs[attrSprinklerType] = zone.SprinklerType
	}

	if zone.ImageURL != "" {
		v.attrs[attrImageURL] = zone.ImageURL
	}

	if watering := status.WateringStatus; watering != nil && watering.CurrentStation == v.zone.Station {
		v.isClosed = false

		var runtime interface{}
		if len(watering.Stations) > 0 {
			runtime = watering.Stations[0].RunTime
		}

		v.setWateringStarted(watering.StartedWateringStationAt, watering.CurrentStation.String(), watering.Program, runtime)
	}

	for _, program := range programs {
		v.setWateringProgram(&program)
	}
}

// setWateringStarted records the currently running watering in the attributes.
func (v *zoneValve) setWateringStarted(startedAt time.Time, station, program string, runtime interface{}) {
	v.attrs[attrCurrentStation] = station
	v.attrs[attrCurrentProgram] = program
	v.attrs[attrCurrentRuntime] = runtime

	if startedAt.IsZero() {
		v.attrs[attrStartedWateringAt] = nil
	} else {
		v.attrs[attrStartedWateringAt] = startedAt.Local().Format(time.RFC3339)
	}
}

func (v *zoneValve) clearWateringStarted() {
	v.setWateringStarted(time.Time{}, "", "", nil)
}

// setWateringProgram summarizes a timer program into a program_<x> attribute.
func (v *zoneValve) setWateringProgram(program *bhyve.TimerProgram) {
	if program == nil || program.Program == "" {
		return
	}

	programAttr := "program_" + program.Program

	// run times of this zone only
	zoneRunTimes := make([]bhyve.StationRunTime, 0)

	for _, runTime := range program.RunTimes {
		if runTime.Station == v.zone.Station {
			zoneRunTimes = append(zoneRunTimes, runTime)
		}
	}

	summary := map[string]interface{}{
		"enabled":          program.Enabled,
		"name":             program.Name,
		"is_smart_program": program.IsSmartProgram,
	}
	v.attrs[programAttr] = summary

	if !program.Enabled || (len(zoneRunTimes) == 0 && !program.IsSmartProgram) {
		v.pr.Debugf("%s zone: program %s (%s) is not enabled or has no run times, skipping", v.zoneName, program.Name, program.Program)

		return
	}

	if program.IsSmartProgram {
		summary[attrSmartWateringPlan] = v.upcomingRunTimes(program)
	} else {
		summary["start_times"] = program.StartTimes
		summary["frequency"] = program.Frequency
		summary["run_times"] = zoneRunTimes
	}
}

// upcomingRunTimes flattens the smart watering plan into the upcoming run
// times of this zone.
func (v *zoneValve) upcomingRunTimes(program *bhyve.TimerProgram) []time.Time {
	upcoming := make([]time.Time, 0)

	for _, plan := range program.WateringPlan {
		zoneScheduled := false

		for _, runTime := range plan.RunTimes {
			if runTime.Station == v.zone.Station {
				zoneScheduled = true

				break
			}
		}

		if !zoneScheduled || plan.Date.IsZero() {
			continue
		}

		for _, rawStartTime := range plan.StartTimes {
			startTime, err := time.Parse("15:04", rawStartTime)
			if err != nil {
				v.pr.Debugf("unparseable start time %q in plan of program %s", rawStartTime, program.Program)

				continue
			}

			upcoming = append(upcoming, plan.Date.Add(
				time.Duration(startTime.Hour())*time.Hour+time.Duration(startTime.Minute())*time.Minute,
			))
		}
	}

	return upcoming
}

func (v *zoneValve) HandleEvent(event *bhyve.Event) {
	v.Lock()
	defer v.Unlock()

	switch event.Type {
	case bhyve.EventDeviceIdle, bhyve.EventWateringComplete:
		v.isClosed = true
		v.clearWateringStarted()

	case bhyve.EventChangeMode:
		changeMode, err := event.ChangeMode()
		if err != nil {
			return
		}

		if changeMode.Mode == "off" || changeMode.Mode == "auto" {
			v.isClosed = true
			v.clearWateringStarted()
		}

	case bhyve.EventWateringInProgress:
		watering, err := event.WateringInProgress()
		if err != nil {
			return
		}

		if watering.CurrentStation == v.zone.Station {
			// this is *my* zone running
			v.isClosed = false
			v.setWateringStarted(watering.StartedWateringStationAt, watering.CurrentStation.String(), watering.Program, watering.RunTime)
		} else if !v.isClosed {
			// another station took over
			v.pr.Debugf("another station (%s) is watering, marking zone %s off", watering.CurrentStation, v.zone.Station)

			v.isClosed = true
			v.clearWateringStarted()
		}

	case bhyve.EventSetManualPresetRuntime:
		presetRuntime, err := event.SetManualPresetRuntime()
		if err != nil {
			return
		}

		v.manualPresetRuntime = presetRuntime.Seconds
		v.attrs[attrManualRuntime] = presetRuntime.Seconds

	case bhyve.EventProgramChanged:
		programChanged, err := event.ProgramChanged()
		if err != nil {
			return
		}

		if programChanged.LifecyclePhase == "destroy" {
			v.attrs[attrSmartWateringPlan] = nil
		} else {
			v.setWateringProgram(programChanged.Program)
		}

	default:
		return
	}

	v.publish()
}

func (v *zoneValve) publish() {
	if v.isClosed {
		v.publishState(stateClosed)
	} else {
		v.publishState(stateOpen)
	}

	v.publishAttributes()
}

func (v *zoneValve) HandleCommand(payload string) {
	v.Lock()
	defer v.Unlock()

	switch payload {
	case payloadOpen:
		runtime := time.Duration(v.manualPresetRuntime) * time.Second
		if runtime == 0 {
			runtime = v.br.config.DefaultRuntime
			v.pr.Warnf("manual preset runtime of %s is 0, defaulting to %s - set the run time on the device or use the start_watering command", v.device.Name, runtime)
		}

		v.startWatering(runtime.Minutes())

	case payloadClose:
		v.stopWatering()

	default:
		v.pr.Warnf("%s unknown valve command: %q", icons.Hae, payload)
	}
}

// StartWatering opens the valve for the given number of minutes.
func (v *zoneValve) StartWatering(minutes float64) {
	v.Lock()
	defer v.Unlock()

	v.startWatering(minutes)
}

func (v *zoneValve) startWatering(minutes float64) {
	v.isClosed = false
	v.publish()

	stations := []bhyve.StationRunTime{{Station: v.zone.Station, RunTime: minutes}}
	if err := v.br.api.Send(context.Background(), bhyve.NewManualRunMsg(v.device.ID, stations)); err != nil {
		v.pr.Warnf("failed to start watering: %s", err)
	}
}

// StopWatering closes the valve.
func (v *zoneValve) StopWatering() {
	v.Lock()
	defer v.Unlock()

	v.stopWatering()
}

func (v *zoneValve) stopWatering() {
	v.isClosed = true
	v.publish()

	if err := v.br.api.Send(context.Background(), bhyve.NewManualRunMsg(v.device.ID, nil)); err != nil {
		v.pr.Warnf("failed to stop watering: %s", err)
	}
}

// SetSoilMoisture sets the soil moisture percentage of a smart watering zone.
func (v *zoneValve) SetSoilMoisture(ctx context.Context, percentage float64) {
	v.Lock()
	deviceID := v.device.ID
	station := v.zone.Station
	smart := v.zone.SmartWateringEnabled
	v.Unlock()

	if !smart {
		v.pr.Infof("zone %s isn't smart watering enabled, cannot set soil moisture", v.zoneName)

		return
	}

	landscape, err := v.br.api.Landscape(ctx, deviceID, station, false)
	if err != nil {
		v.pr.Warnf("unable to retrieve current soil data for %s: %s", v.name, err)

		return
	}

	update := *landscape
	update.CurrentWaterLevel = landscape.MoistureLevel(percentage)

	if err := v.br.api.UpdateLandscape(ctx, update); err != nil {
		v.pr.Warnf("unable to set soil moisture level for %s: %s", v.name, err)
	}
}
