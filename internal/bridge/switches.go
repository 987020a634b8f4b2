package bridge

import (
	"context"
	"time"

	"github.com/sebr/bhyve-bridge/internal/bhyve"
	"github.com/sebr/bhyve-bridge/internal/icons"
	"github.com/sebr/bhyve-bridge/internal/style"
)

const (
	attrRainDelay            = "delay"
	attrRainDelayCause       = "cause"
	attrRainDelayWeatherType = "weather_type"
	attrRainDelayStartedAt   = "started_at"
)

// rainDelaySwitch exposes the rain delay of a sprinkler timer. Turning it on
// sets the configured default delay, turning it off clears the delay.
type rainDelaySwitch struct {
	deviceEntity

	isOn bool
}

func newRainDelaySwitch(br *Bridge, device bhyve.Device) *rainDelaySwitch {
	sw := &rainDelaySwitch{}
	sw.init(br, device, "rain_delay", device.Name+" rain delay")

	sw.pr.Infof("%s creating rain delay switch: %s", icons.Rain, style.Bold(sw.name))

	sw.setup(&device)

	return sw
}

func (s *rainDelaySwitch) Component() string { return componentSwitch }

func (s *rainDelaySwitch) DiscoveryConfig() discoveryConfig {
	config := s.baseDiscovery()
	config.CommandTopic = s.commandTopic()
	config.EntityCategory = "config"
	config.Icon = "mdi:weather-rainy"

	return config
}

func (s *rainDelaySwitch) Refresh(data *bhyve.Data) {
	s.Lock()
	defer s.Unlock()

	device := s.updateDevice(data)
	if device == nil {
		return
	}

	s.setup(device)
	s.publish()
}

func (s *rainDelaySwitch) setup(device *bhyve.Device) {
	s.isOn = false
	s.attrs = map[string]interface{}{
		"device_name": device.Name,
		"device_id":   device.ID,
	}

	status := device.Status
	if status == nil {
		return
	}

	s.setDelay(status.RainDelay)

	if status.RainDelay == 0 {
		return
	}

	if status.RainDelayCause != "" {
		s.attrs[attrRainDelayCause] = status.RainDelayCause
	}

	if status.RainDelayWeatherType != "" {
		s.attrs[attrRainDelayWeatherType] = status.RainDelayWeatherType
	}

	if !status.RainDelayStartedAt.IsZero() {
		s.attrs[attrRainDelayStartedAt] = status.RainDelayStartedAt.Local().Format(time.RFC3339)
	}
}

func (s *rainDelaySwitch) setDelay(hours int) {
	s.isOn = hours > 0
	s.attrs[attrRainDelay] = hours

	if hours == 0 {
		delete(s.attrs, attrRainDelayCause)
		delete(s.attrs, attrRainDelayWeatherType)
		delete(s.attrs, attrRainDelayStartedAt)
	}
}

func (s *rainDelaySwitch) HandleEvent(event *bhyve.Event) {
	s.Lock()
	defer s.Unlock()

	if event.Type != bhyve.EventRainDelay {
		return
	}

	rainDelay, err := event.RainDelay()
	if err != nil {
		return
	}

	s.pr.Printf("%s rain delay of %s set to %s", icons.Rain, style.Bold(s.device.Name), style.Bold((time.Duration(rainDelay.Delay) * time.Hour).String()))

	s.setDelay(rainDelay.Delay)
	s.publish()

	// the cause and started_at only show up in the device status,
	// fetch it once the cloud had a moment to settle
	s.br.scheduleRefetch()
}

func (s *rainDelaySwitch) publish() {
	s.publishState(onOff(s.isOn))
	s.publishAttributes()
}

func (s *rainDelaySwitch) HandleCommand(payload string) {
	s.Lock()
	defer s.Unlock()

	if isOn(payload) {
		s.setRainDelay(s.br.config.DefaultRainDelay)
	} else {
		s.setRainDelay(0)
	}
}

// EnableRainDelay suspends watering for the given number of hours.
func (s *rainDelaySwitch) EnableRainDelay(hours int) {
	s.Lock()
	defer s.Unlock()

	s.setRainDelay(hours)
}

// DisableRainDelay resumes watering.
func (s *rainDelaySwitch) DisableRainDelay() {
	s.Lock()
	defer s.Unlock()

	s.setRainDelay(0)
}

func (s *rainDelaySwitch) setRainDelay(hours int) {
	s.setDelay(hours)
	s.publish()

	if err := s.br.api.Send(context.Background(), bhyve.NewRainDelayMsg(s.device.ID, hours)); err != nil {
		s.pr.Warnf("failed to set rain delay: %s", err)
	}
}

// programSwitch exposes a timer program. Turning it on or off flips the
// enabled flag of the program via REST.
type programSwitch struct {
	deviceEntity

	program bhyve.TimerProgram
}

func newProgramSwitch(br *Bridge, device bhyve.Device, program bhyve.TimerProgram) *programSwitch {
	sw := &programSwitch{program: program}
	sw.init(br, device, "program_"+program.Program, device.Name+" "+program.Name+" program")

	sw.pr.Infof("%s creating program switch: %s", icons.Program, style.Bold(sw.name))

	sw.setup()

	return sw
}

func (s *programSwitch) Component() string { return componentSwitch }

func (s *programSwitch) DiscoveryConfig() discoveryConfig {
	config := s.baseDiscovery()
	// programs can be recreated under a new device slot, their own id is
	// the only stable identity
	config.UniqueID = "bhyve:program:" + s.program.ID
	config.CommandTopic = s.commandTopic()
	config.Icon = "mdi:calendar-clock"

	return config
}

func (s *programSwitch) setup() {
	s.attrs = map[string]interface{}{
		"device_id":        s.program.DeviceID,
		"program":          s.program.Program,
		"is_smart_program": s.program.IsSmartProgram,
	}

	if !s.program.IsSmartProgram {
		s.attrs["frequency"] = s.program.Frequency
		s.attrs["start_times"] = s.program.StartTimes
		s.attrs["run_times"] = s.program.RunTimes
		s.attrs["budget"] = s.program.Budget
	}
}

func (s *programSwitch) Refresh(data *bhyve.Data) {
	s.Lock()
	defer s.Unlock()

	for _, program := range data.DevicePrograms(s.device.ID) {
		if program.ID == s.program.ID {
			s.program = program

			break
		}
	}

	s.setup()
	s.publish()
}

func (s *programSwitch) HandleEvent(event *bhyve.Event) {
	s.Lock()
	defer s.Unlock()

	if event.Type != bhyve.EventProgramChanged {
		return
	}

	programChanged, err := event.ProgramChanged()
	if err != nil || programChanged.Program == nil || programChanged.Program.ID != s.program.ID {
		return
	}

	s.program = *programChanged.Program

	s.setup()
	s.publish()
}

func (s *programSwitch) publish() {
	s.publishState(onOff(s.program.Enabled))
	s.publishAttributes()
}

func (s *programSwitch) HandleCommand(payload string) {
	s.Lock()
	defer s.Unlock()

	s.setEnabled(isOn(payload))
}

// SetEnabled flips the enabled flag of the program.
func (s *programSwitch) SetEnabled(enabled bool) {
	s.Lock()
	defer s.Unlock()

	s.setEnabled(enabled)
}

func (s *programSwitch) setEnabled(enabled bool) {
	program := s.program
	program.Enabled = enabled

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := s.br.api.UpdateProgram(ctx, program.ID, program); err != nil {
		s.pr.Warnf("failed to update program %s: %s", s.program.Program, err)

		return
	}

	s.program = program
	s.publish()
}

// Start manually runs the program now.
func (s *programSwitch) Start() {
	s.Lock()
	program := s.program
	deviceID := s.device.ID
	deviceName := s.device.Name
	s.Unlock()

	s.pr.Printf("%s starting program %s on %s", icons.Program, style.Bold(program.Name), style.Bold(deviceName))

	if err := s.br.api.Send(context.Background(), bhyve.NewRunProgramMsg(deviceID, program.Program)); err != nil {
		s.pr.Warnf("failed to start program %s: %s", program.Program, err)
	}
}
