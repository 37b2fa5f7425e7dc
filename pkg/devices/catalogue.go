package devices

import (
	"fmt"
	"os"

	"github.com/ogulcanaydogan/pulse-guardian/pkg/model"
	"gopkg.in/yaml.v3"
)

type catalogueEntry struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type catalogue struct {
	Devices []catalogueEntry `yaml:"devices"`
}

// LoadFile reads a YAML device catalogue.
func LoadFile(path string) ([]model.Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read device file %s: %w", path, err)
	}

	devices, err := LoadFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("device file %s: %w", path, err)
	}
	return devices, nil
}

// LoadFromBytes parses YAML catalogue data.
func LoadFromBytes(data []byte) ([]model.Device, error) {
	var cat catalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse device catalogue: %w", err)
	}
	if len(cat.Devices) == 0 {
		return nil, fmt.Errorf("no devices defined")
	}

	out := make([]model.Device, 0, len(cat.Devices))
	for i, e := range cat.Devices {
		if e.ID == "" {
			return nil, fmt.Errorf("device %d: missing id", i)
		}
		t := model.DeviceType(e.Type)
		switch t {
		case model.DeviceSmartwatch, model.DeviceBPMonitor, model.DeviceFitnessBand, model.DeviceOther:
		case "":
			t = model.DeviceOther
		default:
			return nil, fmt.Errorf("device %q: unknown type %q", e.ID, e.Type)
		}
		name := e.Name
		if name == "" {
			name = e.ID
		}
		out = append(out, model.Device{ID: e.ID, Name: name, Type: t})
	}
	return out, nil
}

// DefaultDevices is the demo catalogue used when no file is configured.
func DefaultDevices() []model.Device {
	return []model.Device{
		{ID: "00:11:22:33:44:55", Name: "AfyaPulse Monitor", Type: model.DeviceBPMonitor},
		{ID: "66:77:88:99:AA:BB", Name: "Sankofa Fitband", Type: model.DeviceFitnessBand},
		{ID: "CC:DD:EE:FF:00:11", Name: "Zuri Health Tracker", Type: model.DeviceSmartwatch},
	}
}
