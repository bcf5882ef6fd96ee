// Package openxr implements the registry helper for OpenXR implicit
// API layers (spec §6): enabling or disabling the layer under
// HKCU|HKLM\Software\Khronos\OpenXR\1\ApiLayers\Implicit for every
// manifest JSON file in a given directory.
package openxr

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/windows/registry"
)

// implicitLayersPath is the OpenXR loader's well-known implicit-layer
// enumeration key, per spec §6.
const implicitLayersPath = `SOFTWARE\Khronos\OpenXR\1\ApiLayers\Implicit`

// Hive selects which registry root to operate under, per spec §6's
// "HKCU|HKLM".
type Hive int

const (
	HKLM Hive = iota
	HKCU
)

func (h Hive) key() registry.Key {
	if h == HKCU {
		return registry.CURRENT_USER
	}
	return registry.LOCAL_MACHINE
}

// View selects the 32- or 64-bit registry redirection view, per
// spec §6's "-64"/"-32" command suffixes.
type View int

const (
	View64 View = iota
	View32
)

func (v View) access() uint32 {
	if v == View32 {
		return registry.WOW64_32KEY
	}
	return registry.WOW64_64KEY
}

// openImplicitLayersKey opens (creating if absent) the implicit-layer
// enumeration key under hive/view with write access.
func openImplicitLayersKey(hive Hive, view View) (registry.Key, error) {
	k, _, err := registry.CreateKey(hive.key(), implicitLayersPath,
		registry.SET_VALUE|registry.QUERY_VALUE|view.access())
	if err != nil {
		return 0, fmt.Errorf("openxr: open implicit layers key: %w", err)
	}
	return k, nil
}

// EnableLayer registers manifestPath as an enabled implicit API
// layer: the OpenXR loader convention is a DWORD value named after
// the manifest's absolute path, with data 0 meaning "enabled".
func EnableLayer(hive Hive, view View, manifestPath string) error {
	k, err := openImplicitLayersKey(hive, view)
	if err != nil {
		return err
	}
	defer k.Close()

	abs, err := filepath.Abs(manifestPath)
	if err != nil {
		return fmt.Errorf("openxr: resolve manifest path: %w", err)
	}
	if err := k.SetDWordValue(abs, 0); err != nil {
		return fmt.Errorf("openxr: enable layer %q: %w", abs, err)
	}
	return nil
}

// DisableLayer removes manifestPath's value from the implicit-layer
// key, so the OpenXR loader no longer enumerates it. Missing values
// are not an error: disabling an already-disabled layer is a no-op.
func DisableLayer(hive Hive, view View, manifestPath string) error {
	k, err := openImplicitLayersKey(hive, view)
	if err != nil {
		return err
	}
	defer k.Close()

	abs, err := filepath.Abs(manifestPath)
	if err != nil {
		return fmt.Errorf("openxr: resolve manifest path: %w", err)
	}
	if err := k.DeleteValue(abs); err != nil && err != registry.ErrNotExist {
		return fmt.Errorf("openxr: disable layer %q: %w", abs, err)
	}
	return nil
}
