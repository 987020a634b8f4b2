package bridge

import (
	"fmt"
	"math/rand"

	"github.com/charmbracelet/lipgloss"
)

var (
	// style configuration for the device listing printed by the devices command.

	// list general.
	list = lipgloss.NewStyle().
		MarginLeft(0).
		MarginRight(0).
		PaddingTop(1)

	listHeader = lipgloss.NewStyle().
			MarginLeft(1).
			MarginRight(2).
			Width(10).
			Align(lipgloss.Right).
			AlignVertical(lipgloss.Top).
			Foreground(lipgloss.Color("#333555")).
			Render

	listItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#969B86", Dark: "#ccc"})

	listItem = listItemStyle.Render

	// watering lists.
	wateringIndicator = lipgloss.NewStyle().SetString("💦").
				PaddingLeft(1).
				String()
	listItemWatering = func(s string) string {
		return lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Dark: "#eee", Light: "#111"}).
			UnsetWidth().
			Render(s) + wateringIndicator
	}
)

const ASCIIHeader = `
     ___                         ___           ___           ___
    /\  \          ___          /\__\         /\__\         /\  \
    \:\  \        /\  \        /:/  /        /:/  /        /::\  \
     \:\  \       \:\  \      /:/__/        /:/  /        /:/\:\  \
 ___ /::\  \      /::\__\    /::\  \ ___   /:/__/  ___   /::\~\:\  \
/\  /:/\:\__\  __/:/\/__/   /:/\:\  /\__\  |:|  | /\__\ /:/\:\ \:\__\
\:\/:/  \/__/ /\/:/  /      \/__\:\/:/  /  |:|  |/:/  / \:\~\:\ \/__/
 \::/__/      \::/__/            \::/  /   |:|__/:/  /   \:\ \:\__\
  \:\  \       \:\__\            /:/  /     \::::/__/     \:\ \/__/
   \:\__\       \/__/           /:/  /       ~~~~          \:\__\
    \/__/                       \/__/                       \/__/`

// generateColorFromString generates a color based on the given seed.
func generateColorFromString(seedPhrase string) lipgloss.Color {
	// initial magic color seed
	magicSeedNumber := int64(17)

	// convert the seed phrase to runes (Unicode characters)
	runes := []rune(seedPhrase)

	// get something like the faculty of the seed number
	for i := range runes {
		magicSeedNumber *= int64(runes[i])
	}

	// deterministic color per seed phrase
	rng := rand.New(rand.NewSource(magicSeedNumber)) //nolint:gosec

	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", rng.Intn(256), rng.Intn(256), rng.Intn(256)))
}
