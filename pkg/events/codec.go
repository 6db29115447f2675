package events

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Adirelle/docker-graph/pkg/errors"
)

// maxLineSize bounds a single JSON-lines or SSE line.
const maxLineSize = 4 << 20

// Decode parses one JSON-encoded event.
// Parse failures are reported as [errors.ErrCodeInvalidEvent].
func Decode(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, errors.Wrap(errors.ErrCodeInvalidEvent, err, "decode event")
	}
	if e.TargetType == "" {
		return Event{}, errors.New(errors.ErrCodeInvalidEvent, "event has no target type")
	}
	return e, nil
}

// Encode returns the compact JSON form of e.
func Encode(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// WriteSSE writes e as one Server-Sent Events message whose id is the event
// time in Unix nanoseconds.
func WriteSSE(w io.Writer, e Event) error {
	data, err := Encode(e)
	if err != nil {
		return err
	}
	var id int64
	if t := e.When(); !t.IsZero() {
		id = t.UnixNano()
	}
	_, err = fmt.Fprintf(w, "id:%d\ndata:%s\n\n", id, data)
	return err
}

// Reader reads events from a capture file. It accepts both JSON lines and
// raw Server-Sent Events streams (lines prefixed by "data:").
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader returns a Reader consuming r.
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{scanner: s}
}

// Next returns the next event. It returns io.EOF when the input is
// exhausted. A malformed line yields an error but leaves the reader usable,
// so callers can log and continue.
func (r *Reader) Next() (Event, error) {
	for r.scanner.Scan() {
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 || line[0] == ':' {
			continue
		}
		if field, value, ok := strings.Cut(string(line), ":"); ok && !strings.HasPrefix(field, "{") {
			if field != "data" {
				continue
			}
			line = []byte(strings.TrimPrefix(value, " "))
		}
		e, err := Decode(line)
		if err != nil {
			return Event{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		return e, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}
