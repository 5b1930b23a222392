package respcodec

import (
	"bytes"
	"testing"
)

func TestParseSimpleCommand(t *testing.T) {
	buf := []byte("*1\r\n$4\r\nPING\r\n")
	args, n, status := Parse(buf)
	if status != StatusOK {
		t.Fatalf("expected StatusOK, got %v", status)
	}
	if n != len(buf) {
		t.Fatalf("expected to consume %d bytes, consumed %d", len(buf), n)
	}
	if len(args) != 1 || !bytes.Equal(args[0], []byte("PING")) {
		t.Fatalf("unexpected args: %q", args)
	}
}

func TestParseMultipleArgs(t *testing.T) {
	buf := []byte("*3\r\n$3\r\nSET\r\n$8\r\ngreeting\r\n$5\r\nhello\r\n")
	args, n, status := Parse(buf)
	if status != StatusOK || n != len(buf) {
		t.Fatalf("parse failed: status=%v n=%d", status, n)
	}
	want := []string{"SET", "greeting", "hello"}
	for i, w := range want {
		if !bytes.Equal(args[i], []byte(w)) {
			t.Fatalf("arg %d: got %q want %q", i, args[i], w)
		}
	}
}

func TestParseTruncatedReturnsIncomplete(t *testing.T) {
	buf := []byte("*2\r\n$3\r\nGET\r\n$8\r\ngreet")
	_, _, status := Parse(buf)
	if status != StatusIncomplete {
		t.Fatalf("expected StatusIncomplete, got %v", status)
	}
}

func TestParseTruncatedMidHeaderReturnsIncomplete(t *testing.T) {
	buf := []byte("*2\r\n$3")
	_, _, status := Parse(buf)
	if status != StatusIncomplete {
		t.Fatalf("expected StatusIncomplete, got %v", status)
	}
}

func TestParseMalformedMissingDollar(t *testing.T) {
	buf := []byte("*1\r\nPING\r\n")
	_, _, status := Parse(buf)
	if status != StatusMalformed {
		t.Fatalf("expected StatusMalformed, got %v", status)
	}
}

func TestParseMalformedBadArrayHeader(t *testing.T) {
	buf := []byte("*x\r\n")
	_, _, status := Parse(buf)
	if status != StatusMalformed {
		t.Fatalf("expected StatusMalformed, got %v", status)
	}
}

func TestParseMalformedBadBulkLength(t *testing.T) {
	buf := []byte("*1\r\n$x\r\nPING\r\n")
	_, _, status := Parse(buf)
	if status != StatusMalformed {
		t.Fatalf("expected StatusMalformed, got %v", status)
	}
}

func TestParseMalformedMissingTrailingCRLF(t *testing.T) {
	buf := []byte("*1\r\n$4\r\nPINGXX")
	_, _, status := Parse(buf)
	if status != StatusMalformed {
		t.Fatalf("expected StatusMalformed, got %v", status)
	}
}

func TestParseIsZeroCopy(t *testing.T) {
	buf := []byte("*1\r\n$4\r\nPING\r\n")
	args, _, status := Parse(buf)
	if status != StatusOK {
		t.Fatalf("parse failed: %v", status)
	}
	// mutate through the returned slice and confirm it reflects into buf
	args[0][0] = 'X'
	if buf[8] != 'X' {
		t.Fatalf("expected zero-copy view into buf, underlying byte unchanged")
	}
}

func TestEncoders(t *testing.T) {
	cases := []struct {
		name string
		got  []byte
		want string
	}{
		{"simple", SimpleString("PONG"), "+PONG\r\n"},
		{"error", Error("ERR unknown command"), "-ERR unknown command\r\n"},
		{"integer", Integer(42), ":42\r\n"},
		{"negative integer", Integer(-1), ":-1\r\n"},
		{"bulk", BulkString([]byte("hello")), "$5\r\nhello\r\n"},
		{"null bulk", NullBulk(), "$-1\r\n"},
		{"null array", NullArray(), "*-1\r\n"},
	}
	for _, c := range cases {
		if string(c.got) != c.want {
			t.Errorf("%s: got %q want %q", c.name, c.got, c.want)
		}
	}
}

func TestArrayOfBulks(t *testing.T) {
	got := ArrayOfBulks([][]byte{[]byte("one"), []byte("two"), []byte("three")})
	want := "*3\r\n$3\r\none\r\n$3\r\ntwo\r\n$5\r\nthree\r\n"
	if string(got) != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestStreamRangeArray(t *testing.T) {
	entries := []StreamEntryForEncoding{
		{ID: []byte("1-0"), Fields: []FieldPair{{Name: []byte("field"), Value: []byte("value")}}},
	}
	got := StreamRangeArray(entries)
	want := "*1\r\n*2\r\n$3\r\n1-0\r\n*2\r\n$5\r\nfield\r\n$5\r\nvalue\r\n"
	if string(got) != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
