package openxr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunRejectsUnknownVerb(t *testing.T) {
	err := Run([]string{"enable-HKCU-64", t.TempDir()})
	assert.Error(t, err)
}

func TestRunRejectsWrongArgCount(t *testing.T) {
	err := Run([]string{"enable-HKLM-64"})
	assert.Error(t, err)
}
