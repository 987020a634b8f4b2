package bridge

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sebr/bhyve-bridge/internal/bhyve"
)

// FmtDeviceConfig renders a device with its zones and programs, used by the
// devices command.
func FmtDeviceConfig(device *bhyve.Device, programs []bhyve.TimerProgram) string {
	deviceStyle := lipgloss.NewStyle().Foreground(generateColorFromString(device.Name))

	out := strings.Builder{}

	//
	// zones
	zonesList := make([]string, 0)

	var currentStation bhyve.Station
	if device.Status != nil && device.Status.WateringStatus != nil {
		currentStation = device.Status.WateringStatus.CurrentStation
	}

	for _, zone := range device.Zones {
		name := fmt.Sprintf("%s | station %s", device.ZoneName(&zone), zone.Station)

		if zone.Station == currentStation && currentStation != 0 {
			zonesList = append(zonesList, listItemWatering(name))
		} else {
			zonesList = append(zonesList, listItemStyle.UnsetWidth().Render(name))
		}
	}

	fmtZonesList := list.Render(
		lipgloss.JoinHorizontal(
			lipgloss.Top,
			listHeader(deviceStyle.Align(lipgloss.Right).Faint(true).Render("zones")),
			lipgloss.JoinVertical(lipgloss.Left, zonesList...),
		),
	)

	//
	// programs
	programsList := make([]string, 0)

	for _, program := range programs {
		name := fmt.Sprintf("%s | %s", program.Name, program.Program)
		if !program.Enabled {
			name += " (disabled)"
		}

		programsList = append(programsList, listItem(name))
	}

	fmtProgramsList := list.Render(
		lipgloss.JoinHorizontal(
			lipgloss.Top,
			listHeader(deviceStyle.Align(lipgloss.Right).Faint(true).Render("programs")),
			lipgloss.JoinVertical(lipgloss.Left, programsList...),
		),
	)

	out.WriteString(deviceStyle.Bold(true).Render(device.Name))
	out.WriteString(" " + listItemStyle.Render(fmt.Sprintf("[%s | %s]", device.Type, device.MacAddress)))
	out.WriteString("\n")
	out.WriteString(lipgloss.JoinVertical(lipgloss.Left, fmtZonesList, fmtProgramsList))
	out.WriteString("\n")

	return out.String()
}
