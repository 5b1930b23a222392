// Package blocking implements the registries BLPOP and blocking XREAD
// enroll waiters in, and the deadline sweep that expires them. All of the
// mutation here happens under the dispatcher's single global lock (see
// internal/dispatch), so none of these types do their own locking —
// they are plain data structures, not concurrency-safe on their own.
package blocking

import (
	"github.com/qinran6271/minikv/internal/client"
	"github.com/qinran6271/minikv/internal/respcodec"
)

// ListWaiter is a client blocked on BLPOP against a specific list key.
type ListWaiter struct {
	Client     client.Handle
	DeadlineMs int64 // 0 = no timeout
}

// StreamWaiter is a client blocked on XREAD against one stream key.
type StreamWaiter struct {
	Client     client.Handle
	DeadlineMs int64
	StreamKey  string
	LastID     []byte
}

// Registry owns the list-wait FIFOs and the flat stream-wait list.
type Registry struct {
	listWaiters   map[string][]*ListWaiter
	streamWaiters []*StreamWaiter
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{listWaiters: make(map[string][]*ListWaiter)}
}

// EnqueueListWaiter adds w to the tail of key's FIFO.
func (r *Registry) EnqueueListWaiter(key string, w *ListWaiter) {
	r.listWaiters[key] = append(r.listWaiters[key], w)
}

// PopFrontListWaiter removes and returns the head waiter for key, if any.
func (r *Registry) PopFrontListWaiter(key string) (*ListWaiter, bool) {
	q := r.listWaiters[key]
	if len(q) == 0 {
		return nil, false
	}
	w := q[0]
	q = q[1:]
	if len(q) == 0 {
		delete(r.listWaiters, key)
	} else {
		r.listWaiters[key] = q
	}
	return w, true
}

// HasListWaiters reports whether key currently has any BLPOP waiter.
func (r *Registry) HasListWaiters(key string) bool {
	return len(r.listWaiters[key]) > 0
}

// AddStreamWaiter registers w.
func (r *Registry) AddStreamWaiter(w *StreamWaiter) {
	r.streamWaiters = append(r.streamWaiters, w)
}

// StreamWaitersFor returns, without removing, every waiter currently
// registered against streamKey.
func (r *Registry) StreamWaitersFor(streamKey string) []*StreamWaiter {
	var out []*StreamWaiter
	for _, w := range r.streamWaiters {
		if w.StreamKey == streamKey {
			out = append(out, w)
		}
	}
	return out
}

// RemoveStreamWaiter drops w from the registry. It is a no-op if w is
// not present (e.g. already removed by a prior wake or sweep).
func (r *Registry) RemoveStreamWaiter(w *StreamWaiter) {
	for i, x := range r.streamWaiters {
		if x == w {
			r.streamWaiters = append(r.streamWaiters[:i], r.streamWaiters[i+1:]...)
			return
		}
	}
}

// writeOrDrop best-effort writes b to h; a write error just means the
// peer is gone, so the waiter is dropped either way by the caller. This
// is OQ1's resolution: no explicit disconnect detection, write failure
// during wake-up/sweep is treated as "waiter gone".
func writeOrDrop(h client.Handle, b []byte) {
	_, _ = h.Write(b)
}

// CheckTimeouts expires every waiter (list or stream) whose deadline has
// passed as of nowMs, writing *-1\r\n to each. It scans every waiter in
// every FIFO (not just the head), which is the safe fix for mixed
// timeouts within a single list's queue (SPEC_FULL.md's resolution of
// OQ2). The reactor is expected to call this no less often than every
// 50ms.
func (r *Registry) CheckTimeouts(nowMs int64) {
	nullArray := respcodec.NullArray()

	for key, q := range r.listWaiters {
		kept := q[:0:0]
		for _, w := range q {
			if w.DeadlineMs != 0 && w.DeadlineMs <= nowMs {
				writeOrDrop(w.Client, nullArray)
				continue
			}
			kept = append(kept, w)
		}
		if len(kept) == 0 {
			delete(r.listWaiters, key)
		} else {
			r.listWaiters[key] = kept
		}
	}

	live := r.streamWaiters[:0:0]
	for _, w := range r.streamWaiters {
		if w.DeadlineMs != 0 && w.DeadlineMs <= nowMs {
			writeOrDrop(w.Client, nullArray)
			continue
		}
		live = append(live, w)
	}
	r.streamWaiters = live
}
