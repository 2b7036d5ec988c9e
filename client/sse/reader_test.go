package sse

import (
	"encoding/json"
	"io"
	"strings"
	"testing"
)

type mockReadCloser struct {
	io.Reader
}

func (m *mockReadCloser) Close() error { return nil }

func newMockBody(s string) io.ReadCloser {
	return &mockReadCloser{strings.NewReader(s)}
}

// chunkedReader returns one predefined chunk per Read call.
type chunkedReader struct {
	chunks []string
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks[0] = c.chunks[0][n:]
	if c.chunks[0] == "" {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func TestReader_SingleFrame(t *testing.T) {
	r := NewReader(newMockBody("event: posts\ndata: {\"a\":1}\nid: 42\n\n"))
	defer r.Close()

	frame, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Event != "posts" {
		t.Errorf("got event %q, want posts", frame.Event)
	}
	if frame.Data != `{"a":1}` {
		t.Errorf("got data %q", frame.Data)
	}
	if frame.ID != "42" {
		t.Errorf("got id %q, want 42", frame.ID)
	}
}

func TestReader_DefaultEventName(t *testing.T) {
	r := NewReader(newMockBody("data: hello\n\n"))
	defer r.Close()

	frame, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Event != "message" {
		t.Errorf("got event %q, want message", frame.Event)
	}
}

func TestReader_MultiLineData(t *testing.T) {
	r := NewReader(newMockBody("data: first\ndata: second\n\n"))
	defer r.Close()

	frame, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Data != "first\nsecond" {
		t.Errorf("got data %q", frame.Data)
	}
}

func TestReader_CommentsAndCRLF(t *testing.T) {
	r := NewReader(newMockBody(": keepalive\r\nevent: topic1\r\ndata: x\r\n\r\n"))
	defer r.Close()

	frame, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Event != "topic1" || frame.Data != "x" {
		t.Errorf("got %+v", frame)
	}
}

func TestReader_FrameSplitAcrossReads(t *testing.T) {
	whole := NewReader(newMockBody("data: {\"a\":1}\n\n"))
	defer whole.Close()
	split := NewReader(&mockReadCloser{&chunkedReader{chunks: []string{"data: {\"a\":1", "}\n\n"}}})
	defer split.Close()

	want, err := whole.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := split.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Event != want.Event || got.Data != want.Data {
		t.Errorf("split frame %+v differs from whole frame %+v", got, want)
	}
}

func TestReader_MultipleFramesThenEOF(t *testing.T) {
	r := NewReader(newMockBody("data: one\n\ndata: two\n\n"))
	defer r.Close()

	f1, err := r.Next()
	if err != nil || f1.Data != "one" {
		t.Fatalf("frame 1: %+v, %v", f1, err)
	}
	f2, err := r.Next()
	if err != nil || f2.Data != "two" {
		t.Fatalf("frame 2: %+v, %v", f2, err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReader_BlankLinesBetweenFramesIgnored(t *testing.T) {
	r := NewReader(newMockBody("\n\ndata: x\n\n"))
	defer r.Close()

	frame, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Data != "x" {
		t.Errorf("got data %q", frame.Data)
	}
}

func TestFrame_Payload(t *testing.T) {
	f := &Frame{Data: `{"clientId":"abc"}`}
	var decoded map[string]string
	if err := json.Unmarshal(f.Payload(), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["clientId"] != "abc" {
		t.Errorf("got %v", decoded)
	}
}

func TestFrame_PayloadWrapsUnparsableData(t *testing.T) {
	f := &Frame{Data: "plain text"}
	var decoded map[string]string
	if err := json.Unmarshal(f.Payload(), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["raw"] != "plain text" {
		t.Errorf("got %v", decoded)
	}
}

func TestFrame_PayloadEmpty(t *testing.T) {
	f := &Frame{}
	if f.Payload() != nil {
		t.Error("empty data should produce nil payload")
	}
}
