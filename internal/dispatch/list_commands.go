package dispatch

import (
	"strconv"

	"github.com/qinran6271/minikv/internal/blocking"
	"github.com/qinran6271/minikv/internal/client"
	"github.com/qinran6271/minikv/internal/respcodec"
	"github.com/qinran6271/minikv/internal/store"
)

func cmdRPush(d *Dispatcher, args [][]byte, c client.Handle) []byte {
	if len(args) < 3 {
		return wrongArgs("RPUSH")
	}
	key := string(args[1])
	l := d.store.GetOrCreateList(key)
	n := l.PushBack(copyAll(args[2:])...)
	d.wakeListWaiters(key)
	return respcodec.Integer(int64(n))
}

func cmdLPush(d *Dispatcher, args [][]byte, c client.Handle) []byte {
	if len(args) < 3 {
		return wrongArgs("LPUSH")
	}
	key := string(args[1])
	l := d.store.GetOrCreateList(key)
	n := l.PushFront(copyAll(args[2:])...)
	d.wakeListWaiters(key)
	return respcodec.Integer(int64(n))
}

// listOrAbsent reads key as a List without creating or replacing
// anything; a wrong-typed key is treated as if it were absent, per
// spec.md §7's Type mismatch policy for GET/LLEN/LPOP/LRANGE.
func (d *Dispatcher) listOrAbsent(key string) *store.List {
	obj, ok := d.store.GetObject(key)
	if !ok || obj.Kind != store.KindList {
		return nil
	}
	return obj.List
}

func cmdLRange(d *Dispatcher, args [][]byte, c client.Handle) []byte {
	if len(args) != 4 {
		return wrongArgs("LRANGE")
	}
	start, err1 := strconv.Atoi(string(args[2]))
	end, err2 := strconv.Atoi(string(args[3]))
	if err1 != nil || err2 != nil {
		return notIntegerError()
	}
	l := d.listOrAbsent(string(args[1]))
	if l == nil {
		return respcodec.ArrayOfBulks(nil)
	}
	return respcodec.ArrayOfBulks(l.Range(start, end))
}

func cmdLLen(d *Dispatcher, args [][]byte, c client.Handle) []byte {
	if len(args) != 2 {
		return wrongArgs("LLEN")
	}
	l := d.listOrAbsent(string(args[1]))
	if l == nil {
		return respcodec.Integer(0)
	}
	return respcodec.Integer(int64(l.Len()))
}

func cmdLPop(d *Dispatcher, args [][]byte, c client.Handle) []byte {
	if len(args) != 2 && len(args) != 3 {
		return wrongArgs("LPOP")
	}
	single := len(args) == 2
	count := 1
	if !single {
		n, err := strconv.Atoi(string(args[2]))
		if err != nil || n < 0 {
			return notIntegerError()
		}
		count = n
	}
	l := d.listOrAbsent(string(args[1]))
	if l == nil || l.Len() == 0 {
		if single {
			return respcodec.NullBulk()
		}
		return respcodec.NullBulk()
	}
	popped := l.PopFront(count)
	if single {
		return respcodec.BulkString(popped[0])
	}
	return respcodec.ArrayOfBulks(popped)
}

func cmdBLPop(d *Dispatcher, args [][]byte, c client.Handle) []byte {
	if len(args) != 3 {
		return wrongArgs("BLPOP")
	}
	key := string(args[1])
	timeoutSec, err := strconv.ParseFloat(string(args[2]), 64)
	if err != nil || timeoutSec < 0 {
		return respcodec.Error("ERR invalid timeout")
	}

	if l := d.listOrAbsent(key); l != nil && l.Len() > 0 {
		v := l.PopFront(1)[0]
		return respcodec.ArrayOfBulks([][]byte{[]byte(key), v})
	}

	var deadline int64
	if timeoutSec != 0 {
		deadline = d.clock.MonotonicMillis() + int64(timeoutSec*1000+0.5)
	}
	d.waiters.EnqueueListWaiter(key, &blocking.ListWaiter{Client: c, DeadlineMs: deadline})
	return nil
}

// wakeListWaiters delivers queued values to BLPOP waiters after a push.
// It must be called after the push has fully applied, so waiters observe
// the final list state, and it keeps delivering while both the list and
// the FIFO are non-empty — a single RPUSH of N values can satisfy up to
// N waiters.
func (d *Dispatcher) wakeListWaiters(key string) {
	for {
		obj, ok := d.store.GetObject(key)
		if !ok || obj.Kind != store.KindList || obj.List.Len() == 0 {
			return
		}
		if !d.waiters.HasListWaiters(key) {
			return
		}
		w, _ := d.waiters.PopFrontListWaiter(key)
		v := obj.List.PopFront(1)[0]
		reply := respcodec.ArrayOfBulks([][]byte{[]byte(key), v})
		_, _ = w.Client.Write(reply)
	}
}

func copyAll(bs [][]byte) [][]byte {
	out := make([][]byte, len(bs))
	for i, b := range bs {
		out[i] = copyBytes(b)
	}
	return out
}
