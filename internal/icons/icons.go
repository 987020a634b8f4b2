package icons

import "github.com/charmbracelet/lipgloss"

const (
	// watering related messages.
	Sprinkler = "💦"
	Valve     = "🚰"
	Drop      = "💧"
	Rain      = "🌧️"
	Flood     = "🌊"

	// device related messages.
	Battery     = "🔋"
	Thermometer = "🌡️"
	Program     = "📋"
	Plug        = "🔌"

	// connection related messages.
	ConnectionFailed = "🔴"
	ConnectionOK     = "🟢"
	ConnectionChain  = "🔗"
	ReconnectCircle  = "↻"

	// other messages.
	Cross   = "✖️"
	Tick    = "✔"
	Glasses = "👓"
	Key     = "🔑"
	Shrug   = "🤷‍♀️"
	Home    = "🏠"
	Call    = "📞"
	Hae     = "⁉️ ‽"

	Stopwatch = "⏱️"
	Sub       = "🚇"
	Watchdog  = "🐕"

	// go stylecheck linter ST1018.
	WeightLift = "🏋️‍"
)

var (
	GreenTick = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).SetString(" " + Tick)
	RedCross  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).SetString(Cross)
)
