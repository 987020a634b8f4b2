package bridge

import (
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sebr/bhyve-bridge/internal/bhyve"
	"github.com/sebr/bhyve-bridge/internal/models"
	"github.com/sebr/bhyve-bridge/internal/mqtt"
)

// fakeBroker records published payloads per topic.
type fakeBroker struct {
	mu       sync.Mutex
	messages map[string]string
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{messages: make(map[string]string)}
}

func (f *fakeBroker) PublishString(topic, payload string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.messages[topic] = payload

	return nil
}

func (f *fakeBroker) PublishJSON(topic string, payload interface{}, _ bool) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.messages[topic] = string(raw)

	return nil
}

func (f *fakeBroker) Subscribe(_ string, _ mqtt.MessageHandler) {}

func (f *fakeBroker) Close() {}

func (f *fakeBroker) message(topic string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.messages[topic]
}

func newTestBridge(t *testing.T) *Bridge {
	t.Helper()

	models.Printer = log.New(io.Discard)

	return &Bridge{
		config: &Config{
			TopicPrefix:      "bhyve",
			DiscoveryPrefix:  "homeassistant",
			DefaultRainDelay: 24,
			DefaultRuntime:   5 * time.Minute,
		},
		mq:             newFakeBroker(),
		deviceEntities: make(map[string][]entity),
		pr:             models.Printer,
	}
}

func Test_Topics(t *testing.T) {
	b := newTestBridge(t)

	if got := b.availabilityTopic(); got != "bhyve/bridge/availability" {
		t.Errorf("availabilityTopic() = %v", got)
	}

	if got := b.deviceAvailabilityTopic("dev1"); got != "bhyve/device/dev1/availability" {
		t.Errorf("deviceAvailabilityTopic() = %v", got)
	}

	if got := b.entityTopic("dev1", "zone_1", "state"); got != "bhyve/dev1/zone_1/state" {
		t.Errorf("entityTopic() = %v", got)
	}
}

func Test_DiscoveryTopic(t *testing.T) {
	b := newTestBridge(t)

	device := bhyve.Device{ID: "dev1", Name: "Backyard", MacAddress: "aa:bb"}
	sensor := newStateSensor(b, device)

	if got := b.discoveryTopic("dev1", sensor); got != "homeassistant/sensor/bhyve_dev1/state/config" {
		t.Errorf("discoveryTopic() = %v", got)
	}
}

func Test_UniqueID(t *testing.T) {
	b := newTestBridge(t)

	device := bhyve.Device{ID: "dev1", Name: "Backyard", MacAddress: "aa:bb"}
	sensor := newStateSensor(b, device)

	config := sensor.DiscoveryConfig()
	if config.UniqueID != "aa:bb:dev1:state" {
		t.Errorf("UniqueID = %v, want aa:bb:dev1:state", config.UniqueID)
	}

	if len(config.Availability) != 2 || config.AvailabilityMode != "all" {
		t.Errorf("availability config = %+v, want bridge and device topic", config)
	}
}

func Test_ProgramSwitchUniqueID(t *testing.T) {
	b := newTestBridge(t)

	device := bhyve.Device{ID: "dev1", Name: "Backyard", MacAddress: "aa:bb"}
	program := bhyve.TimerProgram{ID: "p1", DeviceID: "dev1", Program: "a", Name: "Morning"}

	sw := newProgramSwitch(b, device, program)

	// programs keep their identity when recreated on another slot
	if config := sw.DiscoveryConfig(); config.UniqueID != "bhyve:program:p1" {
		t.Errorf("UniqueID = %v, want bhyve:program:p1", config.UniqueID)
	}
}

func Test_ConfigBridged(t *testing.T) {
	tests := []struct {
		name    string
		devices []string
		device  bhyve.Device
		want    bool
	}{
		{name: "empty list bridges everything", devices: nil, device: bhyve.Device{Name: "Backyard"}, want: true},
		{name: "listed device", devices: []string{"Backyard"}, device: bhyve.Device{Name: "Backyard"}, want: true},
		{name: "unlisted device", devices: []string{"Backyard"}, device: bhyve.Device{Name: "Front"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{Devices: tt.devices}

			if got := config.bridged(&tt.device); got != tt.want {
				t.Errorf("bridged() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_GenerateColorFromString(t *testing.T) {
	first := generateColorFromString("Backyard")
	second := generateColorFromString("Backyard")
	other := generateColorFromString("Front")

	if first != second {
		t.Errorf("generateColorFromString() is not deterministic: %v != %v", first, second)
	}

	if first == other {
		t.Errorf("generateColorFromString() collides for different seeds: %v", first)
	}
}
