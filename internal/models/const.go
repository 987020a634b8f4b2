package models

import (
	"github.com/charmbracelet/log"
	"github.com/sebr/bhyve-bridge/internal/icons"
)

const (
	AppName    = "B-Hyve Bridge"
	AppVersion = "dev"
	AppIcon    = icons.Sprinkler
)

var Printer *log.Logger
