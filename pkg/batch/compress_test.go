package batch

import (
	"bytes"
	"compress/flate"
	"io"
	"strings"
	"testing"
)

func TestDeflate_RoundTrip(t *testing.T) {
	in := []byte(strings.Repeat(`{"action":"trackEvent"}`, 100))

	out, err := Deflate(in)
	if err != nil {
		t.Fatalf("Deflate() error = %v", err)
	}
	if len(out) >= len(in) {
		t.Errorf("compressed %d bytes to %d", len(in), len(out))
	}

	back, err := Inflate(out)
	if err != nil {
		t.Fatalf("Inflate() error = %v", err)
	}
	if !bytes.Equal(back, in) {
		t.Error("round trip mismatch")
	}
}

func TestDeflate_IsRawDeflate(t *testing.T) {
	out, err := Deflate([]byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	// Any standard raw DEFLATE reader must accept the stream.
	got, err := io.ReadAll(flate.NewReader(bytes.NewReader(out)))
	if err != nil {
		t.Fatalf("stdlib inflate: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("got %q", got)
	}
}

func TestInflate_Garbage(t *testing.T) {
	if _, err := Inflate([]byte{0xff, 0xff, 0xff}); err == nil {
		t.Error("expected error")
	}
}
