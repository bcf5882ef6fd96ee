package shm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBroadcastSeenTracksPerClient(t *testing.T) {
	w := &Writer{}
	w.BroadcastSeen(1, 5)
	w.BroadcastSeen(2, 7)
	w.BroadcastSeen(1, 9) // update existing entry, not a new row

	found := 0
	for _, e := range w.clientSeen {
		if e.ClientPID != 0 {
			found++
		}
	}
	assert.Equal(t, 2, found)

	for i := range w.clientSeen {
		if w.clientSeen[i].ClientPID == 1 {
			assert.Equal(t, uint64(9), w.clientSeen[i].LastSeenSeq)
		}
	}
}

func TestRegionAndMutexNamesIncludeVersion(t *testing.T) {
	assert.Contains(t, regionName("com.example.kneeboard"), "shm.v2")
	assert.Contains(t, mutexName("com.example.kneeboard"), "shm.v2")
}
