package openxr

import (
	"fmt"
	"os"
	"path/filepath"
)

// ManifestsInDir lists every *.json file directly under dir, treating
// each as an OpenXR API layer manifest (spec §6's "a directory
// argument containing the layer JSON manifests").
func ManifestsInDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("openxr: read manifest directory: %w", err)
	}
	var manifests []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		manifests = append(manifests, filepath.Join(dir, e.Name()))
	}
	return manifests, nil
}

// ApplyDirectory enables (or disables) every manifest in dir under
// hive/view, stopping at the first failure.
func ApplyDirectory(hive Hive, view View, dir string, enable bool) error {
	manifests, err := ManifestsInDir(dir)
	if err != nil {
		return err
	}
	for _, m := range manifests {
		if enable {
			err = EnableLayer(hive, view, m)
		} else {
			err = DisableLayer(hive, view, m)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
