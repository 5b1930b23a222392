package dispatch

import (
	"bytes"
	"testing"
)

type fakeClock struct {
	mono, wall int64
}

func (f *fakeClock) MonotonicMillis() int64 { return f.mono }
func (f *fakeClock) WallMillis() int64      { return f.wall }

type fakeClient struct {
	id  uint64
	buf bytes.Buffer
}

func (f *fakeClient) Write(p []byte) (int, error) { return f.buf.Write(p) }
func (f *fakeClient) ID() uint64                  { return f.id }

func newTestDispatcher() (*Dispatcher, *fakeClock) {
	c := &fakeClock{}
	return New(c, nil), c
}

func dispatchStr(d *Dispatcher, c *fakeClient, parts ...string) []byte {
	args := make([][]byte, len(parts))
	for i, p := range parts {
		args[i] = []byte(p)
	}
	return d.Dispatch(args, c)
}

func TestS1Ping(t *testing.T) {
	d, _ := newTestDispatcher()
	got := dispatchStr(d, &fakeClient{}, "PING")
	if string(got) != "+PONG\r\n" {
		t.Fatalf("got %q", got)
	}
}

func TestS2SetGetRoundTrip(t *testing.T) {
	d, _ := newTestDispatcher()
	got := dispatchStr(d, &fakeClient{}, "SET", "greeting", "hello")
	if string(got) != "+OK\r\n" {
		t.Fatalf("SET got %q", got)
	}
	got = dispatchStr(d, &fakeClient{}, "GET", "greeting")
	if string(got) != "$5\r\nhello\r\n" {
		t.Fatalf("GET got %q", got)
	}
}

func TestS3TTLExpiry(t *testing.T) {
	d, c := newTestDispatcher()
	dispatchStr(d, &fakeClient{}, "SET", "temp", "123", "PX", "5")
	c.mono += 15
	got := dispatchStr(d, &fakeClient{}, "GET", "temp")
	if string(got) != "$-1\r\n" {
		t.Fatalf("got %q", got)
	}
}

func TestS4LRangeOrdering(t *testing.T) {
	d, _ := newTestDispatcher()
	dispatchStr(d, &fakeClient{}, "RPUSH", "numbers", "one", "two", "three")
	got := dispatchStr(d, &fakeClient{}, "LRANGE", "numbers", "0", "-1")
	want := "*3\r\n$3\r\none\r\n$3\r\ntwo\r\n$5\r\nthree\r\n"
	if string(got) != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestS5LPushReversalAndBLPop(t *testing.T) {
	d, _ := newTestDispatcher()
	dispatchStr(d, &fakeClient{}, "LPUSH", "jobs", "job2", "job1")
	got := dispatchStr(d, &fakeClient{}, "BLPOP", "jobs", "0")
	want := "*2\r\n$4\r\njobs\r\n$4\r\njob1\r\n"
	if string(got) != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestS6XAddXRange(t *testing.T) {
	d, _ := newTestDispatcher()
	got := dispatchStr(d, &fakeClient{}, "XADD", "mystream", "1-0", "field", "value")
	if string(got) != "$3\r\n1-0\r\n" {
		t.Fatalf("XADD got %q", got)
	}
	got = dispatchStr(d, &fakeClient{}, "XRANGE", "mystream", "1-0", "1-0")
	want := "*1\r\n*2\r\n$3\r\n1-0\r\n*2\r\n$5\r\nfield\r\n$5\r\nvalue\r\n"
	if string(got) != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestS7XReadEmpty(t *testing.T) {
	d, _ := newTestDispatcher()
	got := dispatchStr(d, &fakeClient{}, "XREAD", "STREAMS", "mystream", "0-0")
	if string(got) != "$-1\r\n" {
		t.Fatalf("got %q", got)
	}
}

func TestS8TypeTagging(t *testing.T) {
	d, _ := newTestDispatcher()
	dispatchStr(d, &fakeClient{}, "SET", "alpha", "1")
	if got := dispatchStr(d, &fakeClient{}, "TYPE", "alpha"); string(got) != "+string\r\n" {
		t.Fatalf("got %q", got)
	}
	dispatchStr(d, &fakeClient{}, "LPUSH", "queue", "item")
	if got := dispatchStr(d, &fakeClient{}, "TYPE", "queue"); string(got) != "+list\r\n" {
		t.Fatalf("got %q", got)
	}
	if got := dispatchStr(d, &fakeClient{}, "TYPE", "missing"); string(got) != "+none\r\n" {
		t.Fatalf("got %q", got)
	}
}

func TestS9XAddMonotonicity(t *testing.T) {
	d, _ := newTestDispatcher()
	dispatchStr(d, &fakeClient{}, "XADD", "s", "5-0", "f", "1")
	got := dispatchStr(d, &fakeClient{}, "XADD", "s", "5-*", "f", "1")
	if string(got) != "$3\r\n5-1\r\n" {
		t.Fatalf("got %q", got)
	}
	got = dispatchStr(d, &fakeClient{}, "XADD", "s", "5-0", "f", "2")
	if string(got) != "-ERR The ID specified in XADD is equal or smaller than the target stream top item\r\n" {
		t.Fatalf("got %q", got)
	}
	got = dispatchStr(d, &fakeClient{}, "XRANGE", "s", "-", "+")
	want2 := "*2\r\n" +
		"*2\r\n$3\r\n5-0\r\n*2\r\n$1\r\nf\r\n$1\r\n1\r\n" +
		"*2\r\n$3\r\n5-1\r\n*2\r\n$1\r\nf\r\n$1\r\n1\r\n"
	if string(got) != want2 {
		t.Fatalf("got %q want %q", got, want2)
	}
}

func TestBLPopBlocksThenWakesOnPush(t *testing.T) {
	d, _ := newTestDispatcher()
	waiter := &fakeClient{id: 1}
	got := dispatchStr(d, waiter, "BLPOP", "k", "0")
	if got != nil {
		t.Fatalf("expected deferred (nil) reply, got %q", got)
	}
	dispatchStr(d, &fakeClient{id: 2}, "RPUSH", "k", "v1")
	if waiter.buf.String() != "*2\r\n$1\r\nk\r\n$2\r\nv1\r\n" {
		t.Fatalf("waiter did not receive wake-up, got %q", waiter.buf.String())
	}
}

func TestBLPopFIFOOrderAcrossMultipleWaiters(t *testing.T) {
	d, _ := newTestDispatcher()
	first := &fakeClient{id: 1}
	second := &fakeClient{id: 2}
	dispatchStr(d, first, "BLPOP", "k", "0")
	dispatchStr(d, second, "BLPOP", "k", "0")
	dispatchStr(d, &fakeClient{id: 3}, "RPUSH", "k", "a", "b")
	if first.buf.String() != "*2\r\n$1\r\nk\r\n$1\r\na\r\n" {
		t.Fatalf("first waiter got %q", first.buf.String())
	}
	if second.buf.String() != "*2\r\n$1\r\nk\r\n$1\r\nb\r\n" {
		t.Fatalf("second waiter got %q", second.buf.String())
	}
}

func TestBLPopDeadlineExpiry(t *testing.T) {
	d, c := newTestDispatcher()
	waiter := &fakeClient{id: 1}
	dispatchStr(d, waiter, "BLPOP", "k", "1")
	c.mono += 2000
	d.CheckTimeouts()
	if waiter.buf.String() != "*-1\r\n" {
		t.Fatalf("expected expiry null array, got %q", waiter.buf.String())
	}
}

func TestXReadBlocksThenWakesOnXAdd(t *testing.T) {
	d, _ := newTestDispatcher()
	waiter := &fakeClient{id: 1}
	got := dispatchStr(d, waiter, "XREAD", "BLOCK", "0", "STREAMS", "s", "0-0")
	if got != nil {
		t.Fatalf("expected deferred reply, got %q", got)
	}
	dispatchStr(d, &fakeClient{id: 2}, "XADD", "s", "1-0", "f", "v")
	want := "*1\r\n*2\r\n$1\r\ns\r\n*1\r\n*2\r\n$3\r\n1-0\r\n*2\r\n$1\r\nf\r\n$1\r\nv\r\n"
	if waiter.buf.String() != want {
		t.Fatalf("got %q want %q", waiter.buf.String(), want)
	}
}

func TestXAddWrongTypeLeavesPriorValueIntact(t *testing.T) {
	d, _ := newTestDispatcher()
	dispatchStr(d, &fakeClient{}, "SET", "k", "a string")
	got := dispatchStr(d, &fakeClient{}, "XADD", "k", "1-0", "f", "v")
	if string(got) != "-WRONGTYPE Key is not a stream\r\n" {
		t.Fatalf("got %q", got)
	}
	if got := dispatchStr(d, &fakeClient{}, "GET", "k"); string(got) != "$8\r\na string\r\n" {
		t.Fatalf("prior value did not survive: %q", got)
	}
}

func TestDelMultiKeyAndIdempotence(t *testing.T) {
	d, _ := newTestDispatcher()
	dispatchStr(d, &fakeClient{}, "SET", "a", "1")
	dispatchStr(d, &fakeClient{}, "SET", "b", "2")
	got := dispatchStr(d, &fakeClient{}, "DEL", "a", "b", "c")
	if string(got) != ":2\r\n" {
		t.Fatalf("got %q", got)
	}
	got = dispatchStr(d, &fakeClient{}, "DEL", "a")
	if string(got) != ":0\r\n" {
		t.Fatalf("expected idempotent no-op, got %q", got)
	}
}

func TestIncrDecr(t *testing.T) {
	d, _ := newTestDispatcher()
	dispatchStr(d, &fakeClient{}, "SET", "n", "10")
	got := dispatchStr(d, &fakeClient{}, "INCR", "n")
	if string(got) != ":11\r\n" {
		t.Fatalf("got %q", got)
	}
	got = dispatchStr(d, &fakeClient{}, "DECR", "n")
	if string(got) != ":10\r\n" {
		t.Fatalf("got %q", got)
	}
}

func TestUnknownAndEmptyCommand(t *testing.T) {
	d, _ := newTestDispatcher()
	if got := d.Dispatch(nil, &fakeClient{}); string(got) != "-ERR empty command\r\n" {
		t.Fatalf("got %q", got)
	}
	if got := dispatchStr(d, &fakeClient{}, "NOPE"); string(got) != "-ERR unknown command\r\n" {
		t.Fatalf("got %q", got)
	}
}

func TestLRangeStartGreaterThanEndIsEmptyArray(t *testing.T) {
	d, _ := newTestDispatcher()
	dispatchStr(d, &fakeClient{}, "RPUSH", "k", "a", "b", "c")
	got := dispatchStr(d, &fakeClient{}, "LRANGE", "k", "2", "1")
	if string(got) != "*0\r\n" {
		t.Fatalf("got %q", got)
	}
}
