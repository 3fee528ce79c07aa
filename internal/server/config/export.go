package config

import (
	"reflect"
	"time"
)

// ToMap renders the config as nested maps keyed by koanf tags, the same
// shape as the YAML file. Durations are rendered as strings ("30s").
func ToMap(cfg *ServerConfig) map[string]any {
	return structToMap(reflect.ValueOf(cfg).Elem())
}

var durationType = reflect.TypeOf(time.Duration(0))

func structToMap(v reflect.Value) map[string]any {
	t := v.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := field.Tag.Get("koanf")
		if key == "" || key == "-" || !field.IsExported() {
			continue
		}

		fv := v.Field(i)
		switch {
		case field.Type == durationType:
			out[key] = time.Duration(fv.Int()).String()
		case fv.Kind() == reflect.Struct:
			out[key] = structToMap(fv)
		default:
			out[key] = fv.Interface()
		}
	}
	return out
}
