package cmd

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/google/gops/agent"
	"github.com/muesli/termenv"
	"github.com/sebr/bhyve-bridge/internal/bridge"
	"github.com/sebr/bhyve-bridge/internal/models"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runCmd represents the run command.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: bridge.AppIcon + " run the bridge",

	Run: func(_ *cobra.Command, _ []string) {
		// print header/logo
		randHeaderID, _ := rand.Int(rand.Reader, big.NewInt(int64(len(bridge.LogoHeader))))
		headerLogo := bridge.LogoHeader[randHeaderID.Int64()]

		fmt.Println(lipgloss.NewStyle().Padding(2, 4).Render(headerLogo))

		// general log settings & style
		var logLevel log.Level

		switch {
		case viper.GetBool("bridge.debug"):
			logLevel = log.DebugLevel

		case viper.GetBool("bridge.verbose"):
			logLevel = log.InfoLevel

		default:
			logLevel = log.WarnLevel
		}

		// force colors even without a tty, eg. when running in a container
		if viper.GetBool("bridge.force_colors") {
			lipgloss.SetColorProfile(termenv.TrueColor)
		}

		models.Printer = log.NewWithOptions(os.Stdout, log.Options{
			ReportTimestamp: false,
			TimeFormat:      " " + "15:04:05",
			ReportCaller:    logLevel < log.InfoLevel,
			Level:           logLevel,
		})

		// diagnostics via gops
		if err := agent.Listen(agent.Options{}); err != nil {
			models.Printer.Warnf("failed to start gops agent: %s", err)
		}

		// run the bridge
		br, err := bridge.New(context.Background())
		if err != nil {
			models.Printer.Error(err)

			os.Exit(1)
		}
		defer br.Stop()

		// loopy mcLoopface 😵‍💫
		select {}
	},
}

func init() { //nolint:gochecknoinits
	rootCmd.AddCommand(runCmd)

	// logging
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "show more output")
	_ = viper.BindPFlag("bridge.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "show debug output")
	_ = viper.BindPFlag("bridge.debug", rootCmd.PersistentFlags().Lookup("debug"))

	// cloud defaults
	viper.SetDefault("bhyve.api_url", "https://api.orbitbhyve.com")
	viper.SetDefault("bhyve.ws_url", "wss://api.orbitbhyve.com/v1/events")
	viper.SetDefault("bhyve.defaults.watchdog_check_every", 30*time.Second)
	viper.SetDefault("bhyve.defaults.watchdog_max_age", 5*time.Minute)
	viper.SetDefault("bhyve.defaults.reconnect_delay", 5*time.Second)
	viper.SetDefault("bhyve.defaults.heartbeat_interval", 25*time.Second)

	// bridge defaults
	viper.SetDefault("bridge.topic_prefix", "bhyve")
	viper.SetDefault("bridge.discovery_prefix", "homeassistant")
	viper.SetDefault("bridge.default_rain_delay", 24)
	viper.SetDefault("bridge.default_runtime", 5*time.Minute)
	viper.SetDefault("bridge.refresh_interval", 5*time.Minute)
	viper.SetDefault("bridge.stats_every", "13m37s")

	// mqtt defaults
	viper.SetDefault("mqtt.client_id", "bhyve-bridge")
}
