package dispatch

import (
	"strconv"
	"strings"

	"github.com/qinran6271/minikv/internal/blocking"
	"github.com/qinran6271/minikv/internal/client"
	"github.com/qinran6271/minikv/internal/respcodec"
	"github.com/qinran6271/minikv/internal/store"
)

func toEncodingEntries(entries []store.StreamEntry) []respcodec.StreamEntryForEncoding {
	out := make([]respcodec.StreamEntryForEncoding, len(entries))
	for i, e := range entries {
		fields := make([]respcodec.FieldPair, len(e.Fields))
		for j, f := range e.Fields {
			fields[j] = respcodec.FieldPair{Name: f.Name, Value: f.Value}
		}
		out[i] = respcodec.StreamEntryForEncoding{ID: e.ID, Fields: fields}
	}
	return out
}

func cmdXAdd(d *Dispatcher, args [][]byte, c client.Handle) []byte {
	if len(args) < 3 {
		return wrongArgs("XADD")
	}
	key := string(args[1])
	id := args[2]
	pairArgs := args[3:]

	if len(pairArgs) == 0 {
		return respcodec.Error("ERR XADD requires field-value pairs")
	}
	if len(pairArgs)%2 != 0 {
		return respcodec.Error("ERR XADD field-value pairs are incomplete")
	}
	fields := make([]store.FieldPair, 0, len(pairArgs)/2)
	for i := 0; i < len(pairArgs); i += 2 {
		name, value := pairArgs[i], pairArgs[i+1]
		if len(name) == 0 || len(value) == 0 {
			return respcodec.Error("ERR XADD fields cannot be empty")
		}
		fields = append(fields, store.FieldPair{Name: copyBytes(name), Value: copyBytes(value)})
	}

	s, err := d.store.GetOrCreateStream(key)
	if err != nil {
		return respcodec.Error(err.Error())
	}
	resolvedID, err := s.Append(id, fields, d.clock.WallMillis())
	if err != nil {
		return respcodec.Error(err.Error())
	}
	d.wakeStreamWaiters(key)
	return respcodec.BulkString(resolvedID)
}

func cmdXRange(d *Dispatcher, args [][]byte, c client.Handle) []byte {
	if len(args) != 4 {
		return wrongArgs("XRANGE")
	}
	obj, ok := d.store.GetObject(string(args[1]))
	if !ok {
		return respcodec.StreamRangeArray(nil)
	}
	if obj.Kind != store.KindStream {
		return respcodec.Error(store.ErrWrongType.Error())
	}
	lo, okLo := store.ParseRangeBound(args[2])
	if !okLo {
		return respcodec.Error("ERR invalid stream ID for XRANGE start")
	}
	hi, okHi := store.ParseRangeBound(args[3])
	if !okHi {
		return respcodec.Error("ERR invalid stream ID for XRANGE end")
	}
	entries := obj.Stream.Range(lo, hi)
	return respcodec.StreamRangeArray(toEncodingEntries(entries))
}

func cmdXRead(d *Dispatcher, args [][]byte, c client.Handle) []byte {
	idx := 1
	blockPresent := false
	var blockMs int64
	if idx < len(args) && strings.EqualFold(string(args[idx]), "BLOCK") {
		if idx+1 >= len(args) {
			return syntaxError()
		}
		ms, err := strconv.ParseInt(string(args[idx+1]), 10, 64)
		if err != nil || ms < 0 {
			return syntaxError()
		}
		blockMs = ms
		blockPresent = true
		idx += 2
	}
	if idx >= len(args) || !strings.EqualFold(string(args[idx]), "STREAMS") {
		return syntaxError()
	}
	idx++
	rest := args[idx:]
	if len(rest) == 0 || len(rest)%2 != 0 {
		return respcodec.Error("ERR XREAD requires equal number of streams and IDs")
	}
	n := len(rest) / 2
	keys := rest[:n]
	ids := rest[n:]

	blocks := d.collectXReadBlocks(keys, ids)
	if len(blocks) > 0 {
		return respcodec.XReadOuter(blocks)
	}
	if !blockPresent {
		return respcodec.NullBulk()
	}

	var deadline int64
	if blockMs != 0 {
		deadline = d.clock.MonotonicMillis() + blockMs
	}
	for i, key := range keys {
		d.waiters.AddStreamWaiter(&blocking.StreamWaiter{
			Client:     c,
			DeadlineMs: deadline,
			StreamKey:  string(key),
			LastID:     copyBytes(ids[i]),
		})
	}
	return nil
}

// collectXReadBlocks gathers, for each (key,id) pair, the entries
// strictly after id — via IncrementID, per SPEC_FULL.md's unified
// resolution of OQ3 — skipping streams that contribute nothing.
func (d *Dispatcher) collectXReadBlocks(keys, ids [][]byte) []respcodec.XReadBlock {
	var blocks []respcodec.XReadBlock
	for i, key := range keys {
		obj, ok := d.store.GetObject(string(key))
		if !ok || obj.Kind != store.KindStream {
			continue
		}
		ms, seq, ok := store.IncrementID(ids[i])
		if !ok {
			continue
		}
		entries := obj.Stream.Range(store.Bound{Ms: ms, Seq: seq}, store.Bound{UnboundedHi: true})
		if len(entries) == 0 {
			continue
		}
		blocks = append(blocks, respcodec.XReadBlock{Key: key, Entries: toEncodingEntries(entries)})
	}
	return blocks
}

// wakeStreamWaiters delivers newly appended entries to every XREAD
// waiter registered against key, using the same strictly-after cursor
// semantics as an immediate read (OQ3).
func (d *Dispatcher) wakeStreamWaiters(key string) {
	obj, ok := d.store.GetObject(key)
	if !ok || obj.Kind != store.KindStream {
		return
	}
	for _, w := range d.waiters.StreamWaitersFor(key) {
		ms, seq, ok := store.IncrementID(w.LastID)
		if !ok {
			continue
		}
		entries := obj.Stream.Range(store.Bound{Ms: ms, Seq: seq}, store.Bound{UnboundedHi: true})
		if len(entries) == 0 {
			continue
		}
		block := respcodec.XReadBlock{Key: []byte(key), Entries: toEncodingEntries(entries)}
		outer := respcodec.XReadOuter([]respcodec.XReadBlock{block})
		_, _ = w.Client.Write(outer)
		d.waiters.RemoveStreamWaiter(w)
	}
}
