package bridge

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-co-op/gocron"
	"github.com/sebr/bhyve-bridge/internal/bhyve"
	"github.com/sebr/bhyve-bridge/internal/icons"
	"github.com/sebr/bhyve-bridge/internal/models"
	"github.com/sebr/bhyve-bridge/internal/models/devicetype"
	"github.com/sebr/bhyve-bridge/internal/mqtt"
	"github.com/sebr/bhyve-bridge/internal/style"
	"github.com/spf13/viper"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// commandTimeout bounds REST calls triggered by incoming commands.
const commandTimeout = 30 * time.Second

// refetchDelay is the pause before a forced refresh triggered by an event.
// The cloud needs a moment until the device status reflects the event.
const refetchDelay = 2 * time.Second

// bridgedTypes are the device types translated into entities.
var bridgedTypes = mapset.NewSet(devicetype.SprinklerTimer, devicetype.FloodSensor)

// broker is the surface of the mqtt connection the bridge uses, split out so
// entity tests can run against a recording fake.
type broker interface {
	PublishString(topic, payload string, retain bool) error
	PublishJSON(topic string, payload interface{}, retain bool) error
	Subscribe(topic string, handler mqtt.MessageHandler)
	Close()
}

// Bridge translates between the Orbit cloud and the mqtt broker.
type Bridge struct {
	config *Config

	pr *log.Logger

	// api is the Orbit cloud client.
	api *bhyve.Client

	// mq is the connection to the mqtt broker.
	mq broker

	// channel for incoming events from the cloud
	events chan *bhyve.Event

	// entities per device id
	deviceEntities map[string][]entity

	// periodic REST refresher
	refresher *gocron.Scheduler

	// counter
	eventsReceivedTotal atomic.Uint64

	// time when the bridge was started
	startTime time.Time
}

// New connects to the cloud and the broker, discovers all devices and
// starts the push event loop.
func New(ctx context.Context) (*Bridge, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}

	b := &Bridge{
		config: config,

		events:         make(chan *bhyve.Event),
		deviceEntities: make(map[string][]entity),

		refresher: gocron.NewScheduler(time.UTC),

		pr: models.Printer.WithPrefix(lipgloss.NewStyle().Foreground(style.OrbitBlue).Faint(true).Render(models.AppName)),

		startTime: time.Now(),
	}

	// create the cloud client & log in
	b.api, err = bhyve.New(viper.GetString("bhyve.username"), viper.GetString("bhyve.password"), b.events)
	if err != nil {
		return nil, err
	}

	if err := b.api.Login(ctx); err != nil {
		return nil, err
	}

	// connect to the broker
	b.mq, err = mqtt.New(
		viper.GetString("mqtt.broker"),
		viper.GetString("mqtt.client_id"),
		viper.GetString("mqtt.username"),
		viper.GetString("mqtt.password"),
		b.availabilityTopic(),
	)
	if err != nil {
		return nil, err
	}

	// initial snapshot
	data, err := b.api.Data(ctx, true)
	if err != nil {
		return nil, err
	}

	b.buildEntities(data)

	if len(b.deviceEntities) == 0 {
		return nil, models.ErrNoDevicesReceived
	}

	b.printIntro(data)

	// announce the entities & their current state
	b.publishDiscovery()
	b.refreshEntities(data)

	// entity command topics: <prefix>/<device_id>/<key>/set
	b.mq.Subscribe(b.config.TopicPrefix+"/+/+/set", b.handleEntityCommand)

	// device command topics: <prefix>/device/<device_id>/command
	b.mq.Subscribe(b.config.TopicPrefix+"/device/+/command", b.handleDeviceCommandMessage)

	// start event handler
	go b.eventHandler(ctx)

	// start stats ticker
	go b.statsTicker()

	// periodic REST refresh to catch up on everything the push channel missed
	if _, err := b.refresher.Every(b.config.RefreshInterval).Do(func() { b.refresh(ctx, false) }); err != nil {
		return nil, fmt.Errorf("failed to schedule refresher: %w", err)
	}

	b.refresher.StartAsync()

	// start listening for push events
	go func() {
		if err := b.api.Listen(ctx); err != nil {
			b.pr.Errorf("%s event listener died: %s", icons.ConnectionFailed, err)
		}
	}()

	return b, nil
}

// Stop disconnects from the cloud and the broker.
func (b *Bridge) Stop() {
	b.refresher.Stop()
	b.api.Stop()
	b.mq.Close()
}

// buildEntities creates the entities of all bridged devices.
func (b *Bridge) buildEntities(data *bhyve.Data) {
	for _, device := range data.Devices {
		if !b.config.bridged(&device) {
			b.pr.Infof("%s skipping %s, not in the configured device list", icons.Glasses, style.Bold(device.Name))

			continue
		}

		if !bridgedTypes.Contains(device.Type) {
			b.pr.Debugf("%s skipping %s, unsupported type %s", icons.Glasses, style.Bold(device.Name), device.Type)

			continue
		}

		entities := make([]entity, 0)

		switch device.Type {
		case devicetype.SprinklerTimer:
			if device.Status == nil {
				b.pr.Warnf("%s skipping %s, the cloud reports no status for it", icons.Hae, style.Bold(device.Name))

				continue
			}

			entities = append(entities,
				newStateSensor(b, device),
				newRainDelaySwitch(b, device),
			)

			programs := data.DevicePrograms(device.ID)

			for _, zone := range device.Zones {
				zoneName := device.ZoneName(&zone)

				entities = append(entities,
					newZoneValve(b, device, zone, zoneName, programs),
					newZoneHistorySensor(b, device, zone, zoneName, data.History(device.ID)),
				)
			}

			for _, program := range programs {
				entities = append(entities, newProgramSwitch(b, device, program))
			}

		case devicetype.FloodSensor:
			entities = append(entities,
				newFloodSensor(b, device),
				newTemperatureSensor(b, device),
				newTempAlertSensor(b, device),
			)
		}

		if device.Battery != nil {
			entities = append(entities, newBatterySensor(b, device))
		}

		b.deviceEntities[device.ID] = entities
	}
}

// printIntro prints the discovered devices and entities.
func (b *Bridge) printIntro(data *bhyve.Data) {
	entityCount := 0
	for _, entities := range b.deviceEntities {
		entityCount += len(entities)
	}

	intro := strings.Builder{}
	intro.WriteString(icons.Sprinkler + " ")
	intro.WriteString(style.Bold(strconv.Itoa(len(b.deviceEntities))))
	intro.WriteString(" devices | ")
	intro.WriteString(icons.Valve + " ")
	intro.WriteString(style.Bold(strconv.Itoa(entityCount)))
	intro.WriteString(" entities | ")
	intro.WriteString(icons.Program + " ")
	intro.WriteString(style.Bold(strconv.Itoa(len(data.Programs))))
	intro.WriteString(" programs ")
	intro.WriteString(style.DarkDivider.String() + style.DarkDivider.String() + " ")
	intro.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("#CC99CC")).Render(time.Now().Format("15:04:05")))
	intro.WriteString(" 🕰️")
	intro.WriteString("\n")
	b.pr.Print(intro.String())
}

//
// topic layout

// availabilityTopic is the last will topic of the bridge itself.
func (b *Bridge) availabilityTopic() string {
	return b.config.TopicPrefix + "/bridge/availability"
}

// deviceAvailabilityTopic reflects the cloud connectivity of one device.
func (b *Bridge) deviceAvailabilityTopic(deviceID string) string {
	return b.config.TopicPrefix + "/device/" + deviceID + "/availability"
}

// entityTopic builds a state/attributes/set topic of an entity.
func (b *Bridge) entityTopic(deviceID, key, suffix string) string {
	return strings.Join([]string{b.config.TopicPrefix, deviceID, key, suffix}, "/")
}

// discoveryTopic is where home assistant expects the entity config.
func (b *Bridge) discoveryTopic(deviceID string, ent entity) string {
	return strings.Join([]string{b.config.DiscoveryPrefix, ent.Component(), "bhyve_" + deviceID, ent.Key(), "config"}, "/")
}

// devicePrinter returns a printer prefixed with the colored device name.
func (b *Bridge) devicePrinter(device *bhyve.Device) *log.Logger {
	deviceStyle := lipgloss.NewStyle().Foreground(generateColorFromString(device.Name))

	return models.Printer.WithPrefix(deviceStyle.Render(device.Name))
}

// publishDiscovery announces all entities to home assistant.
func (b *Bridge) publishDiscovery() {
	for deviceID, entities := range b.deviceEntities {
		for _, ent := range entities {
			if err := b.mq.PublishJSON(b.discoveryTopic(deviceID, ent), ent.DiscoveryConfig(), true); err != nil {
				b.pr.Warnf("failed to publish discovery config for %s: %s", ent.Key(), err)
			}
		}
	}
}

// publishDeviceAvailability mirrors the cloud connectivity of a device.
func (b *Bridge) publishDeviceAvailability(deviceID string, connected bool) {
	payload := mqtt.PayloadOffline
	if connected {
		payload = mqtt.PayloadOnline
	}

	if err := b.mq.PublishString(b.deviceAvailabilityTopic(deviceID), payload, true); err != nil {
		b.pr.Warnf("failed to publish availability of %s: %s", deviceID, err)
	}
}

//
// refresh

// refresh fetches a new snapshot and updates all entities from it.
func (b *Bridge) refresh(ctx context.Context, force bool) {
	data, err := b.api.Data(ctx, force)
	if err != nil {
		b.pr.Warnf("%s refresh failed: %s", icons.RedCross, err)

		return
	}

	b.refreshEntities(data)
}

func (b *Bridge) refreshEntities(data *bhyve.Data) {
	for deviceID, entities := range b.deviceEntities {
		if device := data.Device(deviceID); device != nil {
			b.publishDeviceAvailability(deviceID, device.IsConnected)
		}

		for _, ent := range entities {
			ent.Refresh(data)
		}
	}
}

// scheduleRefetch triggers a forced refresh shortly after an event, used
// when the interesting details only show up in the REST resources.
func (b *Bridge) scheduleRefetch() {
	time.AfterFunc(refetchDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		b.refresh(ctx, true)
	})
}

//
// incoming

// eventHandler forwards incoming push events to the entities of the device
// they belong to.
func (b *Bridge) eventHandler(ctx context.Context) {
	b.pr.Infof("event handler started | channel: %+v", b.events)

	for {
		select {
		case <-ctx.Done():
			return

		case event := <-b.events:
			// count events
			b.eventsReceivedTotal.Add(1)

			b.dispatchEvent(event)
		}
	}
}

func (b *Bridge) dispatchEvent(event *bhyve.Event) {
	switch event.Type {
	case bhyve.EventDeviceConnected, bhyve.EventDeviceDisconnected:
		b.pr.Printf("%s device %s is now %s", icons.ConnectionChain, style.Bold(event.DeviceID), style.Bold(string(event.Type)))

		b.publishDeviceAvailability(event.DeviceID, event.Type == bhyve.EventDeviceConnected)

		return

	case bhyve.EventWateringComplete:
		// the history sensor only updates via REST
		b.scheduleRefetch()
	}

	deviceID := event.TargetDeviceID()
	if deviceID == "" {
		b.pr.Debugf("%s event without a device: %s", icons.Hae, event.Type)

		return
	}

	entities, ok := b.deviceEntities[deviceID]
	if !ok {
		b.pr.Debugf("%s no entities for device %s", icons.Hae, deviceID)

		return
	}

	for _, ent := range entities {
		ent.HandleEvent(event)
	}
}

// handleEntityCommand dispatches a plain payload received on an entity
// command topic: <prefix>/<device_id>/<key>/set
func (b *Bridge) handleEntityCommand(topic string, payload []byte) {
	parts := strings.Split(strings.TrimPrefix(topic, b.config.TopicPrefix+"/"), "/")
	if len(parts) != 3 || parts[2] != "set" {
		b.pr.Debugf("%s unexpected command topic: %s", icons.Hae, topic)

		return
	}

	deviceID, key := parts[0], parts[1]

	for _, ent := range b.deviceEntities[deviceID] {
		if ent.Key() != key {
			continue
		}

		if cmd, ok := ent.(commandable); ok {
			cmd.HandleCommand(string(payload))
		} else {
			b.pr.Warnf("%s entity %s does not take commands", icons.Hae, key)
		}

		return
	}

	b.pr.Warnf("%s no entity %s on device %s", icons.Hae, key, deviceID)
}

// handleDeviceCommandMessage unwraps the device id from a command topic:
// <prefix>/device/<device_id>/command
func (b *Bridge) handleDeviceCommandMessage(topic string, payload []byte) {
	parts := strings.Split(strings.TrimPrefix(topic, b.config.TopicPrefix+"/device/"), "/")
	if len(parts) != 2 || parts[1] != "command" {
		b.pr.Debugf("%s unexpected command topic: %s", icons.Hae, topic)

		return
	}

	b.handleDeviceCommand(parts[0], payload)
}

// statsTicker prints the event stats in a regular interval.
func (b *Bridge) statsTicker() {
	if b.config.StatsInterval <= 0 {
		return
	}

	b.pr.Info(icons.Stopwatch + " event counter started")

	ticker := time.NewTicker(b.config.StatsInterval)

	fmtUnit := style.LightGray.Render("/m")

	for range ticker.C {
		totalEvents := b.eventsReceivedTotal.Load()
		totalEventsPerTime := float64(totalEvents) / time.Since(b.startTime).Minutes()

		deviceIDs := maps.Keys(b.deviceEntities)
		slices.Sort(deviceIDs)

		out := strings.Builder{}
		out.WriteString(fmt.Sprintf("%d%s%s", totalEvents, style.BoldStyle.Render("|"), fmt.Sprintf("%3.1f", totalEventsPerTime)+fmtUnit))
		out.WriteString(style.Gray(6).Render(" | "))
		out.WriteString(fmt.Sprintf("%d devices", len(deviceIDs)))
		out.WriteString(style.Gray(6).Render(" | up "))
		out.WriteString(style.Bold(time.Since(b.startTime).Round(time.Second).String()))

		fmt.Println()
		b.pr.Print(out.String())
		fmt.Println()
	}
}
