package mempool

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/lesismal/nbpipe/logging"
)

// debugger tracks which pooled slices are owned, a slice freed twice or
// freed without being allocated by the pool is refused and logged.
type debugger struct {
	mux         sync.Mutex
	on          int32
	MallocCount int64
	FreeCount   int64
	NeedFree    int64
	owned       map[*byte]struct{}
}

// SetDebug turns ownership tracking on or off.
func (d *debugger) SetDebug(dbg bool) {
	d.mux.Lock()
	defer d.mux.Unlock()
	if dbg {
		atomic.StoreInt32(&d.on, 1)
		d.owned = map[*byte]struct{}{}
	} else {
		atomic.StoreInt32(&d.on, 0)
		d.owned = nil
	}
}

// Outstanding returns the number of slices handed out and not freed yet,
// it is only maintained while debug is on.
func (d *debugger) Outstanding() int64 {
	return atomic.LoadInt64(&d.NeedFree)
}

func (d *debugger) enabled() bool {
	return atomic.LoadInt32(&d.on) == 1
}

func slicePtr(b []byte) *byte {
	if cap(b) == 0 {
		return nil
	}
	return &b[:1][0]
}

func (d *debugger) onMalloc(b []byte) {
	if !d.enabled() {
		return
	}
	atomic.AddInt64(&d.MallocCount, 1)
	atomic.AddInt64(&d.NeedFree, 1)
	d.mux.Lock()
	if d.owned != nil {
		d.owned[slicePtr(b)] = struct{}{}
	}
	d.mux.Unlock()
}

func (d *debugger) onFree(b []byte) bool {
	if !d.enabled() {
		return true
	}
	ptr := slicePtr(b)
	d.mux.Lock()
	_, ok := d.owned[ptr]
	if ok {
		delete(d.owned, ptr)
	}
	d.mux.Unlock()
	if !ok {
		logging.Error("mempool: free of a buffer not owned by the pool (double free?), cap: %v", cap(b))
		return false
	}
	atomic.AddInt64(&d.FreeCount, 1)
	atomic.AddInt64(&d.NeedFree, -1)
	return true
}

func (d *debugger) String() string {
	if d.enabled() {
		b, err := json.Marshal(struct {
			MallocCount int64
			FreeCount   int64
			NeedFree    int64
		}{
			atomic.LoadInt64(&d.MallocCount),
			atomic.LoadInt64(&d.FreeCount),
			atomic.LoadInt64(&d.NeedFree),
		})
		if err == nil {
			return string(b)
		}
	}
	return ""
}
