package request

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"

	"github.com/spf13/cast"
)

// encodeParams renders Descriptor.Params as a query string. Nil values are
// skipped, slices repeat the key, everything else goes through cast.
func encodeParams(params map[string]any) (string, error) {
	if len(params) == 0 {
		return "", nil
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make(url.Values, len(params))
	for _, k := range keys {
		v := params[k]
		if isNil(v) {
			continue
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
			for i := 0; i < rv.Len(); i++ {
				s, err := cast.ToStringE(rv.Index(i).Interface())
				if err != nil {
					return "", fmt.Errorf("param %q[%d]: %w", k, i, err)
				}
				values.Add(k, s)
			}
			continue
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return "", fmt.Errorf("param %q: %w", k, err)
		}
		values.Set(k, s)
	}
	return values.Encode(), nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
