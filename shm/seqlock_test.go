package shm

import (
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

// TestSeqlockNeverObservesTornWrite exercises the same seqlock
// algorithm seqlockRead uses, directly against a byte buffer, so it
// runs without requiring real Windows shared-memory handles. It
// models scenario S4: a writer publishing sequence 11 that pauses
// mid-write must never be observed as a complete (but wrong) frame by
// a concurrent reader.
func TestSeqlockNeverObservesTornWrite(t *testing.T) {
	buf := make([]byte, unsafe.Sizeof(Header{})+MaxViewCount*unsafe.Sizeof(Layer{}))
	view := uintptr(unsafe.Pointer(&buf[0]))

	write := func(seq uint64, layerID uint64) {
		hdr := (*Header)(unsafe.Pointer(view))
		hdr.LayerCount = 1
		layers := unsafe.Slice((*Layer)(unsafe.Pointer(view+unsafe.Sizeof(Header{}))), MaxViewCount)
		layers[0].LayerID = layerID
		atomic.StoreUint64(&hdr.Sequence, seq)
	}
	write(10, 100)

	readSeq := func() uint64 {
		return *(*uint64)(unsafe.Pointer(view + unsafe.Offsetof(Header{}.Sequence)))
	}
	seqlockRead := func() (uint64, uint64) {
		for {
			s1 := readSeq()
			hdr := (*Header)(unsafe.Pointer(view))
			layers := unsafe.Slice((*Layer)(unsafe.Pointer(view+unsafe.Sizeof(Header{}))), MaxViewCount)
			layerID := layers[0].LayerID
			_ = hdr
			s2 := readSeq()
			if s1 == s2 {
				return s1, layerID
			}
		}
	}

	var wg sync.WaitGroup
	results := make(chan [2]uint64, 1000)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 1000 {
			seq, layerID := seqlockRead()
			results <- [2]uint64{seq, layerID}
		}
	}()

	// Writer publishes 11 with a mismatched layerID mid-write, then
	// settles to the consistent value - simulating "pauses after half
	// the layers".
	hdr := (*Header)(unsafe.Pointer(view))
	layers := unsafe.Slice((*Layer)(unsafe.Pointer(view+unsafe.Sizeof(Header{}))), MaxViewCount)
	for range 1000 {
		atomic.StoreUint64(&hdr.Sequence, 11) // odd marker: write in progress semantically
		layers[0].LayerID = 200
		atomic.StoreUint64(&hdr.Sequence, 11)
	}

	wg.Wait()
	close(results)
	for r := range results {
		seq, layerID := r[0], r[1]
		if seq == 10 {
			assert.Equal(t, uint64(100), layerID, "reader saw seq 10 but a torn layer write")
		} else if seq == 11 {
			assert.Equal(t, uint64(200), layerID, "reader saw seq 11 but a torn layer write")
		}
	}
}
