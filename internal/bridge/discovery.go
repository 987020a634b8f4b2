package bridge

import (
	"fmt"

	"github.com/sebr/bhyve-bridge/internal/bhyve"
)

// home assistant discovery components used by the bridge.
const (
	componentSensor       = "sensor"
	componentBinarySensor = "binary_sensor"
	componentSwitch       = "switch"
	componentValve        = "valve"
)

const (
	manufacturer = "Orbit BHyve"
	attribution  = "Data provided by api.orbitbhyve.com"

	deviceSupportURL = "https://techsupport.orbitbhyve.com/dashboard/support/device/%s"
)

// discoveryDevice is the device block shared by all entities of a device.
type discoveryDevice struct {
	Identifiers      []string `json:"identifiers"`
	Manufacturer     string   `json:"manufacturer"`
	Name             string   `json:"name"`
	Model            string   `json:"model,omitempty"`
	HWVersion        string   `json:"hw_version,omitempty"`
	SWVersion        string   `json:"sw_version,omitempty"`
	ConfigurationURL string   `json:"configuration_url,omitempty"`
}

type availability struct {
	Topic string `json:"topic"`
}

// discoveryConfig is a home assistant MQTT discovery entity config.
type discoveryConfig struct {
	Name     string `json:"name"`
	UniqueID string `json:"unique_id"`

	StateTopic          string `json:"state_topic"`
	JSONAttributesTopic string `json:"json_attributes_topic,omitempty"`
	CommandTopic        string `json:"command_topic,omitempty"`

	Availability     []availability `json:"availability,omitempty"`
	AvailabilityMode string         `json:"availability_mode,omitempty"`

	DeviceClass       string `json:"device_class,omitempty"`
	StateClass        string `json:"state_class,omitempty"`
	UnitOfMeasurement string `json:"unit_of_measurement,omitempty"`
	EntityCategory    string `json:"entity_category,omitempty"`
	Icon              string `json:"icon,omitempty"`
	EntityPicture     string `json:"entity_picture,omitempty"`

	// valve specific
	ReportsPosition *bool `json:"reports_position,omitempty"`

	Device discoveryDevice `json:"device"`
}

// newDiscoveryDevice builds the shared device block for a cloud device.
func newDiscoveryDevice(device *bhyve.Device) discoveryDevice {
	return discoveryDevice{
		Identifiers:      []string{device.ID},
		Manufacturer:     manufacturer,
		Name:             device.Name,
		Model:            device.HardwareVersion,
		HWVersion:        device.HardwareVersion,
		SWVersion:        device.FirmwareVersion,
		ConfigurationURL: fmt.Sprintf(deviceSupportURL, device.ID),
	}
}
