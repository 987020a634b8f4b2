package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/kr/pretty"
	"github.com/sebr/bhyve-bridge/internal/bhyve"
	"github.com/sebr/bhyve-bridge/internal/bridge"
	"github.com/sebr/bhyve-bridge/internal/models"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rawDump bool

// devicesCmd lists the devices of the account without starting the bridge.
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: bridge.AppIcon + " list the devices of the account",

	Run: func(cmd *cobra.Command, _ []string) {
		models.Printer = log.NewWithOptions(os.Stdout, log.Options{Level: log.WarnLevel})

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		client, err := bhyve.New(viper.GetString("bhyve.username"), viper.GetString("bhyve.password"), nil)
		if err != nil {
			models.Printer.Error(err)

			os.Exit(1)
		}

		if err := client.Login(ctx); err != nil {
			models.Printer.Error(err)

			os.Exit(1)
		}

		if rawDump {
			rawDevices, err := client.RawDevices(ctx)
			if err != nil {
				models.Printer.Error(err)

				os.Exit(1)
			}

			for _, rawDevice := range rawDevices {
				pretty.Println(bhyve.Anonymize(rawDevice))
			}

			return
		}

		data, err := client.Data(ctx, true)
		if err != nil {
			models.Printer.Error(err)

			os.Exit(1)
		}

		for _, device := range data.Devices {
			fmt.Println(bridge.FmtDeviceConfig(&device, data.DevicePrograms(device.ID)))
		}
	},
}

func init() { //nolint:gochecknoinits
	rootCmd.AddCommand(devicesCmd)

	devicesCmd.Flags().BoolVar(&rawDump, "raw", false, "dump the raw device payloads (location data redacted)")
}
