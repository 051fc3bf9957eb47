package helpers

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// AsJSON is just a shortcut for calling json.Marshal and taking only the first result.
func AsJSON(value interface{}) []byte {
	ret, _ := json.Marshal(value)
	return ret
}

// CanonicalizedJSONString reformats a JSON value so that object properties are alphabetized,
// which keeps failure details stable no matter how the relay ordered its fields.
func CanonicalizedJSONString(value ldvalue.Value) string {
	switch value.Type() {
	case ldvalue.ArrayType:
		items := make([]string, 0, value.Count())
		for i := 0; i < value.Count(); i++ {
			items = append(items, CanonicalizedJSONString(value.GetByIndex(i)))
		}
		return "[" + strings.Join(items, ",") + "]"
	case ldvalue.ObjectType:
		keys := value.Keys(nil)
		sort.Strings(keys)
		items := make([]string, 0, len(keys))
		for _, k := range keys {
			items = append(items, string(AsJSON(k))+":"+CanonicalizedJSONString(value.GetByKey(k)))
		}
		return "{" + strings.Join(items, ",") + "}"
	default:
		return value.JSONString()
	}
}

// CanonicalizedRawJSON is CanonicalizedJSONString for JSON text. Text that is not valid JSON
// comes back unchanged, since it is only ever shown to a human.
func CanonicalizedRawJSON(data []byte) string {
	if !json.Valid(data) {
		return string(data)
	}
	return CanonicalizedJSONString(ldvalue.Parse(data))
}
