package omitnil

import (
	"reflect"
)

// Fields returns a copy of fields without nil values. Non-nil pointers are replaced by the
// values they point to.
func Fields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		if value == nil {
			continue
		}

		v := reflect.ValueOf(value)
		if v.Kind() != reflect.Ptr {
			out[key] = value
			continue
		}

		if v.IsNil() {
			continue
		}
		out[key] = v.Elem().Interface()
	}

	return out
}
