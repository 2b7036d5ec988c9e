// Package sse provides a reusable Server-Sent Events frame reader.
package sse

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// Frame represents a single blank-line-delimited unit of an SSE stream.
type Frame struct {
	// Event is the SSE event type (from "event:" lines). Defaults to "message".
	Event string
	// Data is the frame payload (from "data:" lines). Multi-line data is joined with newlines.
	Data string
	// ID is the frame ID (from "id:" line).
	ID string
}

// Payload decodes Data as JSON. Unparsable data is wrapped as {"raw": <text>}
// so listeners always receive structured JSON. Returns nil for empty data.
func (f *Frame) Payload() json.RawMessage {
	if f.Data == "" {
		return nil
	}
	if json.Valid([]byte(f.Data)) {
		return json.RawMessage(f.Data)
	}
	wrapped, err := json.Marshal(map[string]string{"raw": f.Data})
	if err != nil {
		return nil
	}
	return wrapped
}

// Reader reads server-sent event frames from a stream.
type Reader interface {
	// Next returns the next frame. Returns io.EOF when the stream ends.
	Next() (*Frame, error)
	// Close releases the underlying resources.
	Close() error
}

type reader struct {
	scanner *bufio.Scanner
	body    io.ReadCloser
}

// maxLineSize bounds a single SSE line. Event payloads are JSON records, not
// bulk data, so 1MB is generous.
const maxLineSize = 1 << 20

// NewReader creates an SSE reader from a readable stream. The scanner's
// internal buffering makes frames split across reads parse identically to
// frames delivered whole; only a blank line resets the frame accumulators.
func NewReader(body io.ReadCloser) Reader {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 4096), maxLineSize)
	return &reader{
		scanner: sc,
		body:    body,
	}
}

// Next returns the next frame. Returns io.EOF when the stream ends.
func (r *reader) Next() (*Frame, error) {
	frame := Frame{Event: "message"}
	var dirty bool

	for r.scanner.Scan() {
		line := r.scanner.Text()

		// Blank line terminates the current frame.
		if line == "" {
			if dirty {
				return &frame, nil
			}
			continue
		}

		// Lines starting with ':' are comments.
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := parseLine(line)
		switch field {
		case "event":
			if value != "" {
				frame.Event = value
			}
			dirty = true
		case "data":
			if frame.Data != "" {
				frame.Data += "\n" + value
			} else {
				frame.Data = value
			}
			dirty = true
		case "id":
			frame.ID = value
			dirty = true
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	// Stream ended mid-frame: an unterminated frame is discarded.
	return nil, io.EOF
}

// Close releases the underlying stream.
func (r *reader) Close() error {
	return r.body.Close()
}

// parseLine parses a single SSE line into field and value.
func parseLine(line string) (field, value string) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return line, ""
	}
	field = line[:idx]
	value = line[idx+1:]
	// A single space after the colon is part of the delimiter, not the value.
	if value != "" && value[0] == ' ' {
		value = value[1:]
	}
	return field, value
}
