package devicetype

import "testing"

func Test_IsValid(t *testing.T) {
	tests := []struct {
		name       string
		deviceType DeviceType
		want       bool
	}{
		{name: "sprinkler timer", deviceType: SprinklerTimer, want: true},
		{name: "flood sensor", deviceType: FloodSensor, want: true},
		{name: "hub", deviceType: Hub, want: true},
		{name: "unknown", deviceType: DeviceType("toaster"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.deviceType.IsValid(); got != tt.want {
				t.Errorf("devicetype.DeviceType.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}
