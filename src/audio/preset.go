package audio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ----- Presets ----- //

type presetJSON struct {
	Frequency float64         `json:"frequency"`
	Envelope  json.RawMessage `json:"envelope"`
	FM        json.RawMessage `json:"fm,omitempty"`
}

type presetMetaJSON struct {
	Name string `json:"name"`
}

type presetMetaListJSON struct {
	Items []presetMetaJSON `json:"items"`
}

// MarshalJSON ...
func (c *VoiceConfig) MarshalJSON() ([]byte, error) {
	j := presetJSON{
		Frequency: c.Frequency,
		Envelope:  c.Envelope.toJSON(),
	}
	if c.FM != nil {
		j.FM = c.FM.toJSON()
	}
	return json.Marshal(&j)
}

// UnmarshalJSON ...
func (c *VoiceConfig) UnmarshalJSON(data []byte) error {
	var j presetJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	c.Frequency = j.Frequency
	if len(j.Envelope) > 0 {
		if err := c.Envelope.applyJSON(j.Envelope); err != nil {
			return err
		}
	}
	c.FM = nil
	if len(j.FM) > 0 && string(j.FM) != "null" {
		c.FM = &FMParams{}
		if err := c.FM.applyJSON(j.FM); err != nil {
			return err
		}
	}
	return nil
}

// LoadPreset reads dir/name.json into a voice configuration. It is not validated;
// NewVoice does that.
func LoadPreset(dir string, name string) (VoiceConfig, error) {
	var cfg VoiceConfig
	bytes, err := os.ReadFile(filepath.Join(dir, name+".json"))
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(bytes, &cfg); err != nil {
		return cfg, fmt.Errorf("preset %q: %w", name, err)
	}
	return cfg, nil
}

// SavePreset ...
func SavePreset(dir string, name string, cfg *VoiceConfig) error {
	bytes, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name+".json"), bytes, 0644)
}

// ListPresets reads the preset names listed in dir/_list.json.
func ListPresets(dir string) ([]string, error) {
	bytes, err := os.ReadFile(filepath.Join(dir, "_list.json"))
	if err != nil {
		return nil, err
	}
	var list presetMetaListJSON
	if err := json.Unmarshal(bytes, &list); err != nil {
		return nil, err
	}
	names := make([]string, len(list.Items))
	for i, item := range list.Items {
		names[i] = item.Name
	}
	return names, nil
}
