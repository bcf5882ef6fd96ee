package input

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindingsExportImportRoundTrip(t *testing.T) {
	in := map[DeviceID][]Binding{
		"pad1": {{Device: "pad1", Buttons: 0b11, Action: "NextPage"}},
	}
	data, err := ExportBindings(in)
	require.NoError(t, err)

	out, err := ImportBindings(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestBindingsFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bindings.yaml")
	in := map[DeviceID][]Binding{
		"tablet1": {{Device: "tablet1", Buttons: 0b1, Action: "ToggleBookmark"}},
	}
	require.NoError(t, SaveBindingsFile(path, in))

	out, err := LoadBindingsFile(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
