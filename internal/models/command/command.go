package command

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sebr/bhyve-bridge/internal/style"
)

type Command string

const (
	StartWatering          Command = "start_watering"
	StopWatering           Command = "stop_watering"
	EnableRainDelay        Command = "enable_rain_delay"
	DisableRainDelay       Command = "disable_rain_delay"
	SetManualPresetRuntime Command = "set_manual_preset_runtime"
	SetSoilMoisture        Command = "set_smart_watering_soil_moisture"
	StartProgram           Command = "start_program"
)

var validCommands = mapset.NewSet(
	StartWatering, StopWatering,
	EnableRainDelay, DisableRainDelay,
	SetManualPresetRuntime, SetSoilMoisture,
	StartProgram,
)

func (c Command) String() string { return string(c) }
func (c Command) IsValid() bool  { return validCommands.Contains(c) }

func (c Command) FmtString() string {
	commandName := c.String()

	if nameParts := strings.SplitN(commandName, "_", 2); len(nameParts) > 1 {
		commandName = nameParts[0] + style.LightGray.Render("_") + nameParts[1]
	}

	return lipgloss.NewStyle().Italic(true).SetString(style.Gray(6).Render("…") + commandName).String()
}
