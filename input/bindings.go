package input

import (
	"os"

	"gopkg.in/yaml.v3"
)

// BindingSet is a human-editable export/import unit: every binding a
// user has configured across all their devices, keyed by device id
// for readability in the exported YAML (SPEC_FULL supplement: bindings
// are opaque in the application's own settings format, but the pack's
// yaml.v3 dependency otherwise has no home and hand-editable bindings
// are a natural companion to the CLI remotes of spec §6).
type BindingSet struct {
	Devices map[DeviceID][]Binding `yaml:"devices"`
}

// ExportBindings marshals bindings (keyed by device id) to YAML.
func ExportBindings(bindings map[DeviceID][]Binding) ([]byte, error) {
	return yaml.Marshal(BindingSet{Devices: bindings})
}

// ImportBindings unmarshals a BindingSet previously produced by
// ExportBindings.
func ImportBindings(data []byte) (map[DeviceID][]Binding, error) {
	var set BindingSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, err
	}
	return set.Devices, nil
}

// SaveBindingsFile writes bindings to path as YAML.
func SaveBindingsFile(path string, bindings map[DeviceID][]Binding) error {
	data, err := ExportBindings(bindings)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadBindingsFile reads and parses a bindings YAML file previously
// written by SaveBindingsFile.
func LoadBindingsFile(path string) (map[DeviceID][]Binding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ImportBindings(data)
}
