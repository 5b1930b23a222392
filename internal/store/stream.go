package store

import (
	"errors"
	"sort"
	"strconv"
)

// Canonical XADD error messages. Byte-exact (minus the leading '-' and
// trailing CRLF, which the dispatcher's RESP encoding adds).
var (
	ErrStreamIDNotGreater = errors.New("ERR The ID specified in XADD is equal or smaller than the target stream top item")
	ErrStreamIDZero       = errors.New("ERR The ID specified in XADD must be greater than 0-0")
)

// FieldPair is one (name, value) pair of a stream entry. Order is
// significant and equals XADD's argument order.
type FieldPair struct {
	Name  []byte
	Value []byte
}

// StreamEntry is one appended record.
type StreamEntry struct {
	ID     []byte
	Ms     uint64
	Seq    uint64
	Fields []FieldPair
}

// Stream is an append-only log of entries plus an id->index map, ordered
// strictly increasing by (Ms, Seq).
type Stream struct {
	entries []StreamEntry
	idIndex map[string]int
}

func newStream() *Stream {
	return &Stream{idIndex: make(map[string]int)}
}

// idClass classifies an ID argument as given to XADD.
type idClass int

const (
	classInvalid idClass = iota
	classAutoGenerated
	classAutoSequence
	classExplicit
)

func classify(id []byte) idClass {
	if len(id) == 0 {
		return classInvalid
	}
	if string(id) == "*" || string(id) == "*-*" {
		return classAutoGenerated
	}
	dash := -1
	for i, c := range id {
		if c == '-' {
			dash = i
			break
		}
	}
	if dash < 0 {
		return classInvalid
	}
	msPart := id[:dash]
	seqPart := id[dash+1:]
	if !isDigits(msPart) {
		return classInvalid
	}
	if string(seqPart) == "*" {
		return classAutoSequence
	}
	if isDigits(seqPart) {
		return classExplicit
	}
	return classInvalid
}

func isDigits(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ParseID parses "<ms>-<seq>" as two nonnegative decimal integers.
func ParseID(id []byte) (ms, seq uint64, ok bool) {
	dash := -1
	for i, c := range id {
		if c == '-' {
			dash = i
			break
		}
	}
	if dash < 0 {
		return 0, 0, false
	}
	msPart := id[:dash]
	seqPart := id[dash+1:]
	if !isDigits(msPart) || !isDigits(seqPart) {
		return 0, 0, false
	}
	msv, err := strconv.ParseUint(string(msPart), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	seqv, err := strconv.ParseUint(string(seqPart), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return msv, seqv, true
}

// FormatID renders (ms,seq) as "<ms>-<seq>".
func FormatID(ms, seq uint64) []byte {
	return []byte(strconv.FormatUint(ms, 10) + "-" + strconv.FormatUint(seq, 10))
}

// Last returns the most recently appended entry's (ms,seq), ok=false if
// the stream is empty.
func (s *Stream) Last() (ms, seq uint64, ok bool) {
	if len(s.entries) == 0 {
		return 0, 0, false
	}
	last := s.entries[len(s.entries)-1]
	return last.Ms, last.Seq, true
}

func less(aMs, aSeq, bMs, bSeq uint64) bool {
	if aMs != bMs {
		return aMs < bMs
	}
	return aSeq < bSeq
}

// Append resolves idSpec against the stream's last entry per the three
// XADD ID modes, and on success appends {id, fields}. wallMs is the wall
// clock reading used only for the "*" AutoGenerated mode.
func (s *Stream) Append(idSpec []byte, fields []FieldPair, wallMs int64) ([]byte, error) {
	lms, lseq, hasLast := s.Last()

	var ms, seq uint64
	switch classify(idSpec) {
	case classAutoGenerated:
		w := uint64(wallMs)
		if !hasLast || w > lms {
			ms, seq = w, 0
		} else {
			ms, seq = lms, lseq+1
		}
	case classAutoSequence:
		dash := indexByte(idSpec, '-')
		msv, err := strconv.ParseUint(string(idSpec[:dash]), 10, 64)
		if err != nil {
			return nil, ErrStreamIDNotGreater
		}
		if !hasLast {
			ms, seq = msv, 1
		} else if msv < lms {
			return nil, ErrStreamIDNotGreater
		} else if msv > lms {
			ms, seq = msv, 0
		} else {
			ms, seq = msv, lseq+1
		}
	case classExplicit:
		msv, seqv, ok := ParseID(idSpec)
		if !ok {
			return nil, ErrStreamIDNotGreater
		}
		if !hasLast {
			if msv == 0 && seqv == 0 {
				return nil, ErrStreamIDZero
			}
			ms, seq = msv, seqv
		} else {
			if !less(lms, lseq, msv, seqv) {
				return nil, ErrStreamIDNotGreater
			}
			ms, seq = msv, seqv
		}
	default: // classInvalid
		return nil, ErrStreamIDNotGreater
	}

	if ms == 0 && seq == 0 {
		return nil, ErrStreamIDZero
	}

	id := FormatID(ms, seq)
	s.entries = append(s.entries, StreamEntry{ID: id, Ms: ms, Seq: seq, Fields: fields})
	s.idIndex[string(id)] = len(s.entries) - 1
	return id, nil
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

// Bound is an inclusive Range endpoint; infinite bounds are represented
// by the Unbounded/UnboundedHi flags rather than a sentinel (ms,seq)
// pair, so callers that already have numeric ms/seq (e.g. the dispatcher
// converting an XREAD cursor via IncrementID) can build one directly.
type Bound struct {
	Ms, Seq     uint64
	Unbounded   bool
	UnboundedHi bool
}

// ParseRangeBound parses a XRANGE/XREAD endpoint: "-" means -infinity,
// "+" means +infinity, anything else must be a valid "<ms>-<seq>" or a
// bare "<ms>" (seq defaults to 0).
func ParseRangeBound(raw []byte) (b Bound, ok bool) {
	if string(raw) == "-" {
		return Bound{Unbounded: true}, true
	}
	if string(raw) == "+" {
		return Bound{UnboundedHi: true}, true
	}
	if isDigits(raw) {
		v, err := strconv.ParseUint(string(raw), 10, 64)
		if err != nil {
			return Bound{}, false
		}
		return Bound{Ms: v, Seq: 0}, true
	}
	ms, seq, good := ParseID(raw)
	if !good {
		return Bound{}, false
	}
	return Bound{Ms: ms, Seq: seq}, true
}

// Range returns entries with start <= (ms,seq) <= end, inclusive, in
// ascending order, via binary search over the append-only log.
func (s *Stream) Range(start, end Bound) []StreamEntry {
	lo := 0
	if !start.Unbounded {
		lo = sort.Search(len(s.entries), func(i int) bool {
			e := s.entries[i]
			return !less(e.Ms, e.Seq, start.Ms, start.Seq)
		})
	}
	hi := len(s.entries)
	if !end.UnboundedHi {
		hi = sort.Search(len(s.entries), func(i int) bool {
			e := s.entries[i]
			return less(end.Ms, end.Seq, e.Ms, e.Seq)
		})
	}
	if lo >= hi {
		return []StreamEntry{}
	}
	out := make([]StreamEntry, hi-lo)
	copy(out, s.entries[lo:hi])
	return out
}

// IncrementID turns a client-supplied "strictly after id" cursor into
// the canonical "id immediately after id", used by XREAD to convert
// after-semantics into an inclusive lower Range bound.
func IncrementID(id []byte) (ms, seq uint64, ok bool) {
	ms, seq, ok = ParseID(id)
	if !ok {
		return 0, 0, false
	}
	return ms, seq + 1, true
}
