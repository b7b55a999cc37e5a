package backend

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
)

// Stream is a live server-sent event feed. Events is closed when the
// connection ends; Err reports why. There is no reconnect.
type Stream struct {
	events chan Event
	body   io.ReadCloser
	cancel context.CancelFunc

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

func newStream(ctx context.Context, body io.ReadCloser, cancel context.CancelFunc) *Stream {
	s := &Stream{events: make(chan Event, 64), body: body, cancel: cancel}
	go s.read(ctx)
	return s
}

// Events delivers parsed events in arrival order.
func (s *Stream) Events() <-chan Event { return s.events }

// Err returns the error that ended the stream, or nil after a clean end or Close.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close ends the stream and releases the connection.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		err = s.body.Close()
	})
	return err
}

func (s *Stream) read(ctx context.Context) {
	defer close(s.events)
	defer s.Close()

	err := ParseEvents(s.body, func(e Event) bool {
		select {
		case s.events <- e:
			return true
		case <-ctx.Done():
			return false
		}
	})
	if err != nil && ctx.Err() == nil {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
	}
}

// ParseEvents reads an event stream and calls emit for each dispatched
// event until r ends or emit returns false. Comment lines and unknown
// fields are ignored; multi-line data is joined with "\n".
func ParseEvents(r io.Reader, emit func(Event) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var (
		name, id string
		data     []string
		hasData  bool
	)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if hasData {
				if name == "" {
					name = "message"
				}
				if !emit(Event{Name: name, ID: id, Data: strings.Join(data, "\n")}) {
					return nil
				}
			}
			name, data, hasData = "", data[:0], false
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
			hasData = true
		case "id":
			id = value
		}
	}
	return scanner.Err()
}
