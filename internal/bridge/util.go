package bridge

import (
	"time"

	"github.com/charmbracelet/log"
)

// orbitTimeToLocal converts a cloud timestamp into a local RFC3339 one.
// Unparseable timestamps pass through unchanged.
func orbitTimeToLocal(timestamp string, pr *log.Logger) string {
	parsed, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		pr.Debugf("unparseable cloud timestamp %q", timestamp)

		return timestamp
	}

	return parsed.Local().Format(time.RFC3339)
}
