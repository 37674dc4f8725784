package audit

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Event describes one gate outcome. TokenID carries the credential's jti;
// the credential string itself never reaches a sink.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	TokenID   string            `json:"token_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink consumes events. The dispatcher calls Emit from a single goroutine.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink discards events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink hands events to a consumer over a buffered channel. Emit waits
// for room, so a consumer that stops reading stalls the dispatcher.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan Event, max(buffer, 1))}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event { return s.events }

// JSONWriterSink appends newline-delimited JSON to w.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		return &JSONWriterSink{}
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.enc == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Encoder terminates every value with '\n'.
	_ = s.enc.Encode(event)
}

// LoggerSink writes accepted outcomes at Info and rejections at Warn.
type LoggerSink struct {
	logger hclog.Logger
}

func NewLoggerSink(logger hclog.Logger) *LoggerSink {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &LoggerSink{logger: logger.Named("audit")}
}

func (s *LoggerSink) Emit(_ context.Context, event Event) {
	level := hclog.Info
	if !event.Success {
		level = hclog.Warn
	}
	s.logger.Log(level, event.EventType, eventFields(event)...)
}

// eventFields flattens an event into hclog key/value pairs, skipping empty
// fields. Metadata keys are sorted so lines are stable across runs.
func eventFields(event Event) []interface{} {
	fields := []interface{}{"event", event.EventType, "success", event.Success}
	for _, kv := range [][2]string{
		{"user_id", event.UserID},
		{"token_id", event.TokenID},
		{"ip", event.IP},
		{"error", event.Error},
	} {
		if kv[1] != "" {
			fields = append(fields, kv[0], kv[1])
		}
	}

	keys := make([]string, 0, len(event.Metadata))
	for k := range event.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, k, event.Metadata[k])
	}
	return fields
}
