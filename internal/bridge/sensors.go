package bridge

import (
	"fmt"
	"math"
	"strings"

	"github.com/sebr/bhyve-bridge/internal/bhyve"
	"github.com/sebr/bhyve-bridge/internal/icons"
	"github.com/sebr/bhyve-bridge/internal/style"
)

// gallonsToLitres converts US gallons into litres.
const gallonsToLitres = 3.785

// stateSensor reports the run mode of a sprinkler timer (auto/manual/off).
type stateSensor struct {
	deviceEntity

	runMode string
}

func newStateSensor(br *Bridge, device bhyve.Device) *stateSensor {
	sensor := &stateSensor{}
	sensor.init(br, device, "state", device.Name+" state")

	if device.Status != nil {
		sensor.runMode = device.Status.RunMode
	}

	return sensor
}

func (s *stateSensor) Component() string { return componentSensor }

func (s *stateSensor) DiscoveryConfig() discoveryConfig {
	config := s.baseDiscovery()
	config.Icon = "mdi:information"
	config.EntityCategory = "diagnostic"

	return config
}

func (s *stateSensor) Refresh(data *bhyve.Data) {
	s.Lock()
	defer s.Unlock()

	device := s.updateDevice(data)
	if device == nil {
		return
	}

	if device.Status != nil {
		s.runMode = device.Status.RunMode
	}

	s.publish()
}

func (s *stateSensor) HandleEvent(event *bhyve.Event) {
	s.Lock()
	defer s.Unlock()

	if event.Type != bhyve.EventChangeMode {
		return
	}

	changeMode, err := event.ChangeMode()
	if err != nil || changeMode.Mode == "" {
		return
	}

	s.pr.Printf("%s %s changed mode to %s", icons.Stopwatch, style.Bold(s.device.Name), style.Bold(changeMode.Mode))

	s.runMode = changeMode.Mode
	s.publish()
}

func (s *stateSensor) publish() {
	s.publishState(s.runMode)
	s.publishAttributes()
}

// batterySensor reports the battery level of battery powered devices.
type batterySensor struct {
	deviceEntity

	battery *bhyve.Battery
}

func newBatterySensor(br *Bridge, device bhyve.Device) *batterySensor {
	sensor := &batterySensor{battery: device.Battery}
	sensor.init(br, device, "battery", device.Name+" battery")

	return sensor
}

func (s *batterySensor) Component() string { return componentSensor }

func (s *batterySensor) DiscoveryConfig() discoveryConfig {
	config := s.baseDiscovery()
	config.DeviceClass = "battery"
	config.StateClass = "measurement"
	config.UnitOfMeasurement = "%"
	config.EntityCategory = "diagnostic"

	return config
}

func (s *batterySensor) Refresh(data *bhyve.Data) {
	s.Lock()
	defer s.Unlock()

	device := s.updateDevice(data)
	if device == nil {
		return
	}

	s.battery = device.Battery
	s.publish()
}

func (s *batterySensor) HandleEvent(event *bhyve.Event) {
	s.Lock()
	defer s.Unlock()

	if event.Type != bhyve.EventBatteryStatus {
		return
	}

	batteryStatus, err := event.BatteryStatus()
	if err != nil {
		return
	}

	s.battery = &batteryStatus.Battery
	s.publish()
}

func (s *batterySensor) publish() {
	level, ok := s.battery.Level()
	if !ok {
		s.pr.Debugf("%s no battery level reported for %s", icons.Battery, s.device.Name)

		return
	}

	s.attrs["charging"] = s.battery.Charging

	s.publishState(fmt.Sprintf("%.0f", level))
	s.publishAttributes()
}

// temperatureSensor reports the ambient temperature of a flood sensor.
type temperatureSensor struct {
	deviceEntity

	tempF float64
}

func newTemperatureSensor(br *Bridge, device bhyve.Device) *temperatureSensor {
	sensor := &temperatureSensor{}
	sensor.init(br, device, "temperature", device.Name+" temperature")

	sensor.setup(&device)

	return sensor
}

func (s *temperatureSensor) Component() string { return componentSensor }

func (s *temperatureSensor) DiscoveryConfig() discoveryConfig {
	config := s.baseDiscovery()
	config.DeviceClass = "temperature"
	config.StateClass = "measurement"
	config.UnitOfMeasurement = "°F"

	return config
}

func (s *temperatureSensor) setup(device *bhyve.Device) {
	s.attrs = map[string]interface{}{
		"location": device.LocationName,
	}

	if status := device.Status; status != nil {
		s.tempF = status.TempF
		s.attrs["rssi"] = status.RSSI
		s.attrs["temperature_alarm"] = status.TempAlarmStatus
	}
}

func (s *temperatureSensor) Refresh(data *bhyve.Data) {
	s.Lock()
	defer s.Unlock()

	device := s.updateDevice(data)
	if device == nil {
		return
	}

	s.setup(device)
	s.publish()
}

func (s *temperatureSensor) HandleEvent(event *bhyve.Event) {
	s.Lock()
	defer s.Unlock()

	if event.Type != bhyve.EventFloodSensorStatus {
		return
	}

	floodStatus, err := event.FloodSensorStatus()
	if err != nil {
		return
	}

	s.tempF = floodStatus.TempF
	s.attrs["rssi"] = floodStatus.RSSI
	s.attrs["temperature_alarm"] = floodStatus.TempAlarmStatus

	s.publish()
}

func (s *temperatureSensor) publish() {
	s.publishState(fmt.Sprintf("%.1f", s.tempF))
	s.publishAttributes()
}

// floodSensor reports whether a flood sensor detects water.
type floodSensor struct {
	deviceEntity

	alarm bool
}

func newFloodSensor(br *Bridge, device bhyve.Device) *floodSensor {
	sensor := &floodSensor{}
	sensor.init(br, device, "water_detected", device.Name+" water detected")

	sensor.setup(&device)

	return sensor
}

func (s *floodSensor) Component() string { return componentBinarySensor }

func (s *floodSensor) DiscoveryConfig() discoveryConfig {
	config := s.baseDiscovery()
	config.DeviceClass = "moisture"

	return config
}

func (s *floodSensor) setup(device *bhyve.Device) {
	s.attrs = map[string]interface{}{
		"location":     device.LocationName,
		"auto_shutoff": device.AutoShutoff,
	}

	if status := device.Status; status != nil {
		s.alarm = status.FloodAlarmStatus == "alarm"
		s.attrs["rssi"] = status.RSSI
	}
}

func (s *floodSensor) Refresh(data *bhyve.Data) {
	s.Lock()
	defer s.Unlock()

	device := s.updateDevice(data)
	if device == nil {
		return
	}

	s.setup(device)
	s.publish()
}

func (s *floodSensor) HandleEvent(event *bhyve.Event) {
	s.Lock()
	defer s.Unlock()

	if event.Type != bhyve.EventFloodSensorStatus {
		return
	}

	floodStatus, err := event.FloodSensorStatus()
	if err != nil {
		return
	}

	if alarm := floodStatus.FloodAlarmStatus == "alarm"; alarm != s.alarm {
		s.pr.Printf("%s flood alarm of %s is now %s", icons.Flood, style.Bold(s.device.Name), style.Bold(floodStatus.FloodAlarmStatus))

		s.alarm = alarm
	}

	s.attrs["rssi"] = floodStatus.RSSI

	s.publish()
}

func (s *floodSensor) publish() {
	s.publishState(onOff(s.alarm))
	s.publishAttributes()
}

// tempAlertSensor reports whether the temperature of a flood sensor left the
// configured thresholds.
type tempAlertSensor struct {
	deviceEntity

	alarm bool
}

func newTempAlertSensor(br *Bridge, device bhyve.Device) *tempAlertSensor {
	sensor := &tempAlertSensor{}
	sensor.init(br, device, "temperature_alert", device.Name+" temperature alert")

	sensor.setup(&device)

	return sensor
}

func (s *tempAlertSensor) Component() string { return componentBinarySensor }

func (s *tempAlertSensor) DiscoveryConfig() discoveryConfig {
	config := s.baseDiscovery()
	config.DeviceClass = "heat"

	return config
}

func (s *tempAlertSensor) setup(device *bhyve.Device) {
	s.attrs = map[string]interface{}{
		"location": device.LocationName,
	}

	for threshold, value := range device.TempAlarmThresholds {
		s.attrs["threshold_"+threshold] = value
	}

	if status := device.Status; status != nil {
		s.alarm = tempAlarmActive(status.TempAlarmStatus)
	}
}

// tempAlarmActive reports whether a temp_alarm_status means an active alarm.
// The cloud sends "ok", "low_temp_alarm" or "high_temp_alarm".
func tempAlarmActive(status string) bool {
	return strings.Contains(status, "alarm")
}

func (s *tempAlertSensor) Refresh(data *bhyve.Data) {
	s.Lock()
	defer s.Unlock()

	device := s.updateDevice(data)
	if device == nil {
		return
	}

	s.setup(device)
	s.publish()
}

func (s *tempAlertSensor) HandleEvent(event *bhyve.Event) {
	s.Lock()
	defer s.Unlock()

	if event.Type != bhyve.EventFloodSensorStatus {
		return
	}

	floodStatus, err := event.FloodSensorStatus()
	if err != nil {
		return
	}

	s.alarm = tempAlarmActive(floodStatus.TempAlarmStatus)

	s.publish()
}

func (s *tempAlertSensor) publish() {
	s.publishState(onOff(s.alarm))
	s.publishAttributes()
}

// zoneHistorySensor reports the most recent completed watering of a zone.
type zoneHistorySensor struct {
	deviceEntity

	zone     bhyve.Zone
	zoneName string

	lastWatering *bhyve.Irrigation
}

func newZoneHistorySensor(br *Bridge, device bhyve.Device, zone bhyve.Zone, zoneName string, history []bhyve.HistoryEntry) *zoneHistorySensor {
	sensor := &zoneHistorySensor{
		zone:     zone,
		zoneName: zoneName,
	}
	sensor.init(br, device, "zone_"+zone.Station.String()+"_history", zoneName+" zone history")

	sensor.setup(history)

	return sensor
}

func (s *zoneHistorySensor) Component() string { return componentSensor }

func (s *zoneHistorySensor) DiscoveryConfig() discoveryConfig {
	config := s.baseDiscovery()
	config.DeviceClass = "timestamp"
	config.Icon = "mdi:history"
	config.EntityCategory = "diagnostic"

	return config
}

// setup finds the latest irrigation of this zone in the watering history.
// Entries are returned newest first.
func (s *zoneHistorySensor) setup(history []bhyve.HistoryEntry) {
	s.lastWatering = nil

	for _, entry := range history {
		for i := range entry.Irrigation {
			if entry.Irrigation[i].Station == s.zone.Station {
				s.lastWatering = &entry.Irrigation[i]

				return
			}
		}
	}
}

func (s *zoneHistorySensor) Refresh(data *bhyve.Data) {
	s.Lock()
	defer s.Unlock()

	device := s.updateDevice(data)
	if device == nil {
		return
	}

	s.setup(data.History(device.ID))
	s.publish()
}

// HandleEvent is a no-op, the history only changes via REST refreshes. A
// watering_complete triggers a forced refresh in the bridge instead.
func (s *zoneHistorySensor) HandleEvent(_ *bhyve.Event) {}

func (s *zoneHistorySensor) publish() {
	if s.lastWatering == nil {
		return
	}

	watering := s.lastWatering

	gallons := watering.WaterVolume
	litres := math.Round(gallons*gallonsToLitres*100) / 100

	s.attrs = map[string]interface{}{
		"device_name": s.device.Name,
		"zone_name":   s.zoneName,
		"station":     s.zone.Station,

		"budget":       watering.Budget,
		"program":      watering.Program,
		"program_name": watering.ProgramName,
		"run_time":     watering.RunTime,
		"status":       watering.Status,
		"start_time":   watering.StartTime,

		"consumption_gallons": gallons,
		"consumption_litres":  litres,
	}

	s.publishState(orbitTimeToLocal(watering.StartTime, s.pr))
	s.publishAttributes()
}
