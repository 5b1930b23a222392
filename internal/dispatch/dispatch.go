// Package dispatch is the command dispatcher (C7): a case-insensitive
// command table, argument validation, routing to handlers, and the
// direct-write wake-up paths for BLPOP and blocking XREAD. Every
// exported entry point (Dispatch, CheckTimeouts) takes the dispatcher's
// single mutex for its whole duration, which is what makes "each command
// is an atomic transformation of the store and the waiter registries"
// hold even though connections are served concurrently by the reactor.
package dispatch

import (
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/qinran6271/minikv/internal/blocking"
	"github.com/qinran6271/minikv/internal/client"
	"github.com/qinran6271/minikv/internal/clock"
	"github.com/qinran6271/minikv/internal/respcodec"
	"github.com/qinran6271/minikv/internal/store"
)

// Dispatcher owns the object store and the blocking registries and is
// the sole mutator of either.
type Dispatcher struct {
	mu      sync.Mutex
	store   *store.Store
	waiters *blocking.Registry
	clock   clock.Clock
	log     *log.Logger
	verbose bool
}

// Option configures a Dispatcher at construction time.
type Option func(*Dispatcher)

// WithVerboseLogging turns on one log line per dispatched command,
// mirroring the teacher's unconditional fmt.Printf("args: ...") but
// gated behind a flag instead of always-on stdout noise.
func WithVerboseLogging() Option {
	return func(d *Dispatcher) { d.verbose = true }
}

// New builds a Dispatcher over a fresh store and waiter registry.
func New(clk clock.Clock, logger *log.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:   store.New(clk),
		waiters: blocking.New(),
		clock:   clk,
		log:     logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type handlerFunc func(d *Dispatcher, args [][]byte, c client.Handle) []byte

var commandTable = map[string]handlerFunc{
	"PING":   cmdPing,
	"ECHO":   cmdEcho,
	"SET":    cmdSet,
	"GET":    cmdGet,
	"TYPE":   cmdType,
	"DEL":    cmdDel,
	"EXISTS": cmdExists,
	"INCR":   cmdIncr,
	"DECR":   cmdDecr,
	"RPUSH":  cmdRPush,
	"LPUSH":  cmdLPush,
	"LRANGE": cmdLRange,
	"LLEN":   cmdLLen,
	"LPOP":   cmdLPop,
	"BLPOP":  cmdBLPop,
	"XADD":   cmdXAdd,
	"XRANGE": cmdXRange,
	"XREAD":  cmdXRead,
}

// Dispatch routes one already-parsed command to its handler. The
// returned reply should be written to c verbatim; a nil return means
// "write nothing" — the command deferred its reply (BLPOP/XREAD
// registered a waiter and will be written to directly on wake-up or
// expiry). An empty args slice gets "-ERR empty command".
func (d *Dispatcher) Dispatch(args [][]byte, c client.Handle) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(args) == 0 {
		return respcodec.Error("ERR empty command")
	}

	name := strings.ToUpper(string(args[0]))
	handler, ok := commandTable[name]
	if !ok {
		return respcodec.Error("ERR unknown command")
	}
	if d.verbose && d.log != nil {
		d.log.Printf("dispatch client=%d cmd=%s argc=%d", c.ID(), name, len(args))
	}
	return handler(d, args, c)
}

// CheckTimeouts expires any waiter whose deadline has passed as of now.
// The reactor must call this no less often than every 50ms.
func (d *Dispatcher) CheckTimeouts() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.waiters.CheckTimeouts(d.clock.MonotonicMillis())
}

func wrongArgs(cmd string) []byte {
	return respcodec.Error("ERR wrong number of arguments for '" + strings.ToUpper(cmd) + "'")
}

func syntaxError() []byte {
	return respcodec.Error("ERR syntax error")
}

func notIntegerError() []byte {
	return respcodec.Error("ERR value is not an integer or out of range")
}

// --- basic commands ---

func cmdPing(d *Dispatcher, args [][]byte, c client.Handle) []byte {
	return respcodec.SimpleString("PONG")
}

func cmdEcho(d *Dispatcher, args [][]byte, c client.Handle) []byte {
	if len(args) != 2 {
		return wrongArgs("ECHO")
	}
	return respcodec.BulkString(args[1])
}

func cmdSet(d *Dispatcher, args [][]byte, c client.Handle) []byte {
	switch len(args) {
	case 3:
		d.store.SetString(string(args[1]), copyBytes(args[2]))
		return respcodec.SimpleString("OK")
	case 5:
		if !strings.EqualFold(string(args[3]), "PX") {
			return syntaxError()
		}
		ms, err := strconv.ParseInt(string(args[4]), 10, 64)
		if err != nil || ms < 0 {
			return syntaxError()
		}
		d.store.SetStringPX(string(args[1]), copyBytes(args[2]), ms)
		return respcodec.SimpleString("OK")
	default:
		return wrongArgs("SET")
	}
}

func cmdGet(d *Dispatcher, args [][]byte, c client.Handle) []byte {
	if len(args) != 2 {
		return wrongArgs("GET")
	}
	v, ok := d.store.GetString(string(args[1]))
	if !ok {
		return respcodec.NullBulk()
	}
	return respcodec.BulkString(v)
}

func cmdType(d *Dispatcher, args [][]byte, c client.Handle) []byte {
	if len(args) != 2 {
		return wrongArgs("TYPE")
	}
	obj, ok := d.store.GetObject(string(args[1]))
	if !ok {
		return respcodec.SimpleString("none")
	}
	return respcodec.SimpleString(obj.Kind.String())
}

func cmdDel(d *Dispatcher, args [][]byte, c client.Handle) []byte {
	if len(args) < 2 {
		return wrongArgs("DEL")
	}
	var n int64
	for _, k := range args[1:] {
		if d.store.Del(string(k)) {
			n++
		}
	}
	return respcodec.Integer(n)
}

func cmdExists(d *Dispatcher, args [][]byte, c client.Handle) []byte {
	if len(args) < 2 {
		return wrongArgs("EXISTS")
	}
	var n int64
	for _, k := range args[1:] {
		if d.store.Exists(string(k)) {
			n++
		}
	}
	return respcodec.Integer(n)
}

func incrDecr(d *Dispatcher, key string, delta int64) []byte {
	cur, ok := d.store.GetString(key)
	var n int64
	if ok {
		v, err := strconv.ParseInt(string(cur), 10, 64)
		if err != nil {
			return notIntegerError()
		}
		n = v
	}
	obj, exists := d.store.GetObject(key)
	if exists && obj.Kind != store.KindString {
		return notIntegerError()
	}
	n += delta
	d.store.SetString(key, []byte(strconv.FormatInt(n, 10)))
	return respcodec.Integer(n)
}

func cmdIncr(d *Dispatcher, args [][]byte, c client.Handle) []byte {
	if len(args) != 2 {
		return wrongArgs("INCR")
	}
	return incrDecr(d, string(args[1]), 1)
}

func cmdDecr(d *Dispatcher, args [][]byte, c client.Handle) []byte {
	if len(args) != 2 {
		return wrongArgs("DECR")
	}
	return incrDecr(d, string(args[1]), -1)
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
