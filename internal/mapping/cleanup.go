package mapping

import (
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
)

// Cleanup removes undefined values and containers that end up empty, walking
// maps and slices recursively. It mutates v in place and returns the cleaned
// value. Running it twice yields the same structure.
func Cleanup(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			cleaned := Cleanup(child)
			if isEmpty(cleaned) {
				delete(t, k)
				continue
			}
			t[k] = cleaned
		}
		return t
	case []any:
		kept := t[:0]
		for _, child := range t {
			cleaned := Cleanup(child)
			if !isEmpty(cleaned) {
				kept = append(kept, cleaned)
			}
		}
		for i := len(kept); i < len(t); i++ {
			t[i] = nil
		}
		return kept
	default:
		return v
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// Decode copies an evaluated result into out, a pointer to a struct tagged
// with mapstructure names.
func Decode(result map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if err := decoder.Decode(result); err != nil {
		return fmt.Errorf("decode mapped result: %w", err)
	}
	return nil
}
