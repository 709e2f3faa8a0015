package protocol

import (
	"github.com/goccy/go-json"

	"github.com/kbukum/mrstream/errors"
)

// JSON is the JSON backend. Numbers decode as float64, objects as
// map[string]any and arrays as []any.
type JSON struct{}

// Name returns "json".
func (JSON) Name() string { return "json" }

// Marshal encodes v as compact JSON. The output never contains raw tabs or
// newlines.
func (j JSON) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.EncodeError(j.Name(), err)
	}
	return data, nil
}

// Unmarshal decodes one JSON document.
func (j JSON) Unmarshal(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.DecodeError(j.Name(), err)
	}
	return v, nil
}
