// Package store implements the typed, TTL-aware object store (C5) and its
// two container value types, List (C3) and Stream (C4). TTL is evaluated
// lazily on access; there is no background expirer, matching a strictly
// serialized dispatcher where a second clock source would buy nothing.
package store

import (
	"errors"

	"github.com/qinran6271/minikv/internal/clock"
)

// ErrWrongType signals a typed accessor was used against a key whose
// object is a different variant. Callers decide how to surface it —
// WRONGTYPE for XRANGE, "as if absent" for GET/LLEN/LPOP/LRANGE.
var ErrWrongType = errors.New("WRONGTYPE Key is not a stream")

// Kind tags which variant an Object currently holds.
type Kind int

const (
	KindString Kind = iota
	KindList
	KindStream
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindStream:
		return "stream"
	default:
		return "none"
	}
}

// Object is the tagged variant every key maps to.
type Object struct {
	Kind   Kind
	Str    []byte
	List   *List
	Stream *Stream
}

// Store is key -> Object plus the parallel key -> absolute-deadline-ms
// map. Absence from the deadline map means "no TTL".
type Store struct {
	clock     clock.Clock
	objects   map[string]*Object
	deadlines map[string]int64
}

// New returns an empty Store driven by clk.
func New(clk clock.Clock) *Store {
	return &Store{
		clock:     clk,
		objects:   make(map[string]*Object),
		deadlines: make(map[string]int64),
	}
}

func (s *Store) expireIfDue(key string) {
	deadline, hasTTL := s.deadlines[key]
	if !hasTTL {
		return
	}
	if deadline <= s.clock.MonotonicMillis() {
		delete(s.objects, key)
		delete(s.deadlines, key)
	}
}

// SetString stores key as String(value), clearing any prior TTL.
func (s *Store) SetString(key string, value []byte) {
	s.objects[key] = &Object{Kind: KindString, Str: value}
	delete(s.deadlines, key)
}

// SetStringPX stores key as String(value) with a TTL of ttlMs from now.
func (s *Store) SetStringPX(key string, value []byte, ttlMs int64) {
	s.objects[key] = &Object{Kind: KindString, Str: value}
	s.deadlines[key] = s.clock.MonotonicMillis() + ttlMs
}

// GetString returns the string at key, or ok=false if key is absent,
// expired, or not a String.
func (s *Store) GetString(key string) (value []byte, ok bool) {
	s.expireIfDue(key)
	obj, exists := s.objects[key]
	if !exists || obj.Kind != KindString {
		return nil, false
	}
	return obj.Str, true
}

// GetOrCreateList returns the List at key, replacing the object with an
// empty List (and clearing any TTL) first if key is absent or holds a
// different variant.
func (s *Store) GetOrCreateList(key string) *List {
	s.expireIfDue(key)
	obj, exists := s.objects[key]
	if !exists || obj.Kind != KindList {
		obj = &Object{Kind: KindList, List: newList()}
		s.objects[key] = obj
		delete(s.deadlines, key)
	}
	return obj.List
}

// GetOrCreateStream returns the Stream at key. Unlike lists, a
// wrong-typed key is NOT silently replaced here: it returns ErrWrongType
// and leaves the existing value intact, which XADD surfaces as
// -WRONGTYPE (see SPEC_FULL.md's resolution of OQ4). GetOrCreateStream
// only creates on genuine absence.
func (s *Store) GetOrCreateStream(key string) (*Stream, error) {
	s.expireIfDue(key)
	obj, exists := s.objects[key]
	if !exists {
		obj = &Object{Kind: KindStream, Stream: newStream()}
		s.objects[key] = obj
		delete(s.deadlines, key)
		return obj.Stream, nil
	}
	if obj.Kind != KindStream {
		return nil, ErrWrongType
	}
	return obj.Stream, nil
}

// GetObject returns the object at key after evicting it if its TTL has
// passed, or ok=false if no such key exists.
func (s *Store) GetObject(key string) (obj *Object, ok bool) {
	s.expireIfDue(key)
	obj, ok = s.objects[key]
	return obj, ok
}

// Del removes key's object and any TTL, reporting whether a key was
// actually removed.
func (s *Store) Del(key string) bool {
	s.expireIfDue(key)
	_, existed := s.objects[key]
	delete(s.objects, key)
	delete(s.deadlines, key)
	return existed
}

// Exists reports whether key currently holds a live (non-expired)
// object, without creating or mutating anything.
func (s *Store) Exists(key string) bool {
	s.expireIfDue(key)
	_, ok := s.objects[key]
	return ok
}
