package source

import (
	"encoding/json"
	"log"
)

// DecodeArray unmarshals a JSON array element-by-element so that one
// malformed record is skipped (and logged) instead of aborting the whole
// batch. A payload that is not a JSON array at all is a ParseError.
func DecodeArray[T any](name string, data []byte) ([]T, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Name: name, Err: err}
	}

	out := make([]T, 0, len(raw))
	for i, msg := range raw {
		var v T
		if err := json.Unmarshal(msg, &v); err != nil {
			log.Printf("%s: skipping record %d: %v", name, i, err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}
