package bridge

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/sebr/bhyve-bridge/internal/bhyve"
)

// state payloads for switches and binary sensors.
const (
	payloadOn  = "ON"
	payloadOff = "OFF"
)

// entity is one home assistant entity derived from a cloud device.
type entity interface {
	// Key returns the entity key, unique within its device.
	Key() string
	// Component returns the home assistant discovery component.
	Component() string
	// DiscoveryConfig returns the discovery payload of the entity.
	DiscoveryConfig() discoveryConfig
	// Refresh updates the entity from a REST snapshot and republishes it.
	Refresh(data *bhyve.Data)
	// HandleEvent applies a push event to the entity.
	HandleEvent(event *bhyve.Event)
}

// commandable is an entity with a command topic.
type commandable interface {
	entity

	// HandleCommand applies a payload received on the command topic.
	HandleCommand(payload string)
}

// deviceEntity is the base of all entities bound to a cloud device. The
// embedded mutex serializes refreshes, push events and commands, which all
// arrive on their own goroutines.
type deviceEntity struct {
	sync.Mutex

	br *Bridge
	pr *log.Logger

	device bhyve.Device
	key    string
	name   string

	attrs map[string]interface{}
}

// init fills the base fields in place, the embedded mutex must not be copied.
func (e *deviceEntity) init(br *Bridge, device bhyve.Device, key, name string) {
	e.br = br
	e.pr = br.devicePrinter(&device)

	e.device = device
	e.key = key
	e.name = name

	e.attrs = make(map[string]interface{})
}

func (e *deviceEntity) Key() string { return e.key }

// uniqueID returns a unique, unchanging id for the entity.
func (e *deviceEntity) uniqueID() string {
	return fmt.Sprintf("%s:%s:%s", e.device.MacAddress, e.device.ID, e.key)
}

func (e *deviceEntity) stateTopic() string {
	return e.br.entityTopic(e.device.ID, e.key, "state")
}

func (e *deviceEntity) attributesTopic() string {
	return e.br.entityTopic(e.device.ID, e.key, "attributes")
}

func (e *deviceEntity) commandTopic() string {
	return e.br.entityTopic(e.device.ID, e.key, "set")
}

// baseDiscovery fills the discovery fields shared by all device entities.
func (e *deviceEntity) baseDiscovery() discoveryConfig {
	return discoveryConfig{
		Name:     e.name,
		UniqueID: e.uniqueID(),

		StateTopic:          e.stateTopic(),
		JSONAttributesTopic: e.attributesTopic(),

		Availability: []availability{
			{Topic: e.br.availabilityTopic()},
			{Topic: e.br.deviceAvailabilityTopic(e.device.ID)},
		},
		AvailabilityMode: "all",

		Device: newDiscoveryDevice(&e.device),
	}
}

// publishState publishes the state of the entity.
func (e *deviceEntity) publishState(state string) {
	if err := e.br.mq.PublishString(e.stateTopic(), state, true); err != nil {
		e.pr.Warnf("failed to publish state for %s: %s", e.key, err)
	}
}

// publishAttributes publishes the extra state attributes of the entity.
func (e *deviceEntity) publishAttributes() {
	e.attrs["attribution"] = attribution

	if err := e.br.mq.PublishJSON(e.attributesTopic(), e.attrs, true); err != nil {
		e.pr.Warnf("failed to publish attributes for %s: %s", e.key, err)
	}
}

// updateDevice replaces the cached device after a REST refresh.
func (e *deviceEntity) updateDevice(data *bhyve.Data) *bhyve.Device {
	device := data.Device(e.device.ID)
	if device == nil {
		e.pr.Warnf("device %s vanished from the cloud", e.device.ID)

		return nil
	}

	e.device = *device

	return device
}

// onOff converts a bool into the switch/binary sensor payload.
func onOff(on bool) string {
	if on {
		return payloadOn
	}

	return payloadOff
}

// isOn reports whether a command payload means "turn on".
func isOn(payload string) bool {
	return strings.EqualFold(strings.TrimSpace(payload), payloadOn)
}
