package kneeboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserActionStringParseRoundTrip(t *testing.T) {
	for _, a := range AllUserActions() {
		parsed, ok := ParseUserAction(a.String())
		assert.True(t, ok)
		assert.Equal(t, a, parsed)
	}
}

func TestParseUserActionUnknown(t *testing.T) {
	_, ok := ParseUserAction("NotARealAction")
	assert.False(t, ok)
}
