package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

type Parameter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Flatten turns nested params into dotted key/value pairs, sorted by key.
func (p Params) Flatten() []Parameter {
	var out []Parameter
	flattenInto(&out, "", map[string]any(p))
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func flattenInto(out *[]Parameter, prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flattenInto(out, key, val)
		case Params:
			flattenInto(out, key, val)
		case string:
			*out = append(*out, Parameter{Key: key, Value: val})
		case []any:
			b, err := json.Marshal(val)
			if err != nil {
				b = []byte(fmt.Sprint(val))
			}
			*out = append(*out, Parameter{Key: key, Value: string(b)})
		default:
			*out = append(*out, Parameter{Key: key, Value: fmt.Sprint(val)})
		}
	}
}
