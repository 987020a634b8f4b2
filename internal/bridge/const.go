package bridge

import "github.com/sebr/bhyve-bridge/internal/models"

// AppIcon is the icon shown in the cli help.
const AppIcon = models.AppIcon

// build info, set via ldflags.
var (
	AppVersion = "dev"
	Commit     = "none"
	CommitDate = "unknown"
)

// LogoHeader holds the startup logos, one is picked at random.
var LogoHeader = []string{ASCIIHeader, blockHeader}

const blockHeader = `
██████        ██   ██ ██    ██ ██    ██ ███████
██   ██       ██   ██  ██  ██  ██    ██ ██
██████  █████ ███████   ████   ██    ██ █████
██   ██       ██   ██    ██     ██  ██  ██
██████        ██   ██    ██      ████   ███████`
