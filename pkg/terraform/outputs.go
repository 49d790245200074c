package terraform

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
)

// DecodeOutputs converts the payload of `terraform output -json` into display strings.
// String values are used verbatim. Any other value keeps its compact JSON text as
// printed by the tool, so numbers are not normalized (1.50 stays 1.50). Entries whose
// wrapper is not an object or has no "value" field are dropped. The payload itself must
// be a JSON object.
func DecodeOutputs(data []byte) (Outputs, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if raw == nil {
		return nil, &DecodeError{Err: errors.New("expected a JSON object, got null")}
	}

	outputs := make(Outputs, len(raw))
	for name, entry := range raw {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(entry, &wrapper); err != nil {
			continue
		}
		value, ok := wrapper["value"]
		if !ok {
			continue
		}
		display, err := displayString(value)
		if err != nil {
			return nil, &DecodeError{Err: err}
		}
		outputs[name] = display
	}
	return outputs, nil
}

func displayString(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	}

	// Compact keeps numbers exactly as the tool printed them
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Names returns the output names in sorted order
func (o Outputs) Names() []string {
	names := make([]string, 0, len(o))
	for name := range o {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
