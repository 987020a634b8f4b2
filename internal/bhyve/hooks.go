package bhyve

import (
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// OrbitTimeHookFunc decodes the cloud's RFC3339 timestamps into time.Time.
// Empty strings and nulls show up in several payloads and decode to the
// zero time instead of failing the whole message.
func OrbitTimeHookFunc() mapstructure.DecodeHookFunc { //nolint:ireturn
	return func(f reflect.Type, targetType reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}

		if targetType != reflect.TypeOf(time.Time{}) {
			return data, nil
		}

		rawTime, ok := data.(string)
		if !ok || rawTime == "" {
			return time.Time{}, nil
		}

		return time.Parse(time.RFC3339, rawTime)
	}
}
