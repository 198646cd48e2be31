package utils

import (
	"encoding/json"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// DecodeLenient decodes hand-edited JSON into v.
// Order of attempts:
// 1. Standard JSON
// 2. Hjson (comments, unquoted keys, optional commas)
// 3. JSON repair (trailing commas, single quotes, unclosed objects)
func DecodeLenient(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err == nil {
		return nil
	}

	if normalized, err := HJSONToJSON(data); err == nil {
		if err := json.Unmarshal(normalized, v); err == nil {
			return nil
		}
	}

	repaired, err := jsonrepair.RepairJSON(string(data))
	if err != nil {
		return fmt.Errorf("LENIENT_DECODE_FAILED: repair: %v", err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("LENIENT_DECODE_FAILED: %v", err)
	}
	return nil
}

// HJSONToJSON converts Hjson into standard JSON so that json struct tags and
// custom unmarshalers apply.
func HJSONToJSON(data []byte) ([]byte, error) {
	var generic interface{}
	if err := hjson.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("HJSON_PARSE_ERROR: %v", err)
	}
	out, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("JSON_MARSHAL_ERROR: %v", err)
	}
	return out, nil
}
