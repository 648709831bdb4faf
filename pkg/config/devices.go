package config

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DeviceEntry is a device ID with its configuration.
type DeviceEntry struct {
	ID string
	DeviceConfig
}

// Devices is encoded as a JSON object keyed by device ID.
// Unlike a map it keeps the order of the keys in the file.
type Devices []DeviceEntry

// MarshalJSON implements json.Marshaler.
func (d Devices) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.ID)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.DeviceConfig)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Devices) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*d = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("devices: expected object, got %v", tok)
	}

	var out Devices
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := tok.(string)
		if !ok {
			return fmt.Errorf("devices: expected key, got %v", tok)
		}
		if seen[id] {
			return fmt.Errorf("devices: duplicate device %q", id)
		}
		seen[id] = true

		var cfg DeviceConfig
		if err := dec.Decode(&cfg); err != nil {
			return fmt.Errorf("devices: %s: %w", id, err)
		}
		out = append(out, DeviceEntry{ID: id, DeviceConfig: cfg})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*d = out
	return nil
}
