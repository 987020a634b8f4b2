package style

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	Gray = func(shade int) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(fmt.Sprintf("#%x%x%x", shade, shade, shade)))
	}

	BoldStyle = Gray(238).Bold(true) // #eeeeee
	Bold      = BoldStyle.Render

	LightGray = Gray(9)

	// OrbitBlue is the vendor brand color used to frame cloud traffic.
	OrbitBlue  = lipgloss.Color("#00A7E1")
	OrbitStyle = lipgloss.NewStyle().Foreground(OrbitBlue)

	DarkDivider        = Gray(5).SetString("⁞")
	DarkerDivider      = Gray(3).SetString("|")
	DarkIndicatorLeft  = LightGray.SetString("←")
	DarkIndicatorRight = LightGray.SetString("→")
)

func ColorizeOrbitBlue(text string) string {
	return OrbitStyle.SetString(text).Render()
}

func OrbitBlueFrame(text string) string {
	return ColorizeOrbitBlue("<") + text + ColorizeOrbitBlue(">")
}
