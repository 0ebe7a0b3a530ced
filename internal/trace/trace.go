// Package trace implements a diagnostic trace recorder: one CBOR-encoded
// record per client request, appended to a sink file for offline
// debugging. Internal re-walks the resolver performs while hunting for an
// error handler do not open records of their own. Never consulted by the serving path
// itself - losing the sink must never affect a response.
package trace

import (
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/pipeserve/pipeserve/internal/scrub"
)

// LayerEvent is one diagnostic note attached to a Record. The server adds
// a "suggest" event (Detail lists the nearest sibling names) when a
// request resolves to 404; Path Walker and Resolver decisions are not
// recorded as events.
type LayerEvent struct {
	Origin     string `cbor:"origin"`
	Kind       string `cbor:"kind"` // "suggest"
	StatusCode uint16 `cbor:"status,omitempty"`
	Detail     string `cbor:"detail,omitempty"`
}

// Record is one top-level client request. Internal re-walks triggered by
// mid-chain failures add no events to it.
type Record struct {
	TraceID    string       `cbor:"trace_id"`
	Method     string       `cbor:"method"`
	Path       string       `cbor:"path"`
	StartedAt  time.Time    `cbor:"started_at"`
	FinishedAt time.Time    `cbor:"finished_at"`
	Status     uint16       `cbor:"status"`
	Events     []LayerEvent `cbor:"events"`
}

// AddEvent appends an event to the record. Not safe for concurrent use by
// multiple goroutines on the same Record - a Record belongs to one
// request's goroutine for its whole lifetime.
func (r *Record) AddEvent(e LayerEvent) {
	r.Events = append(r.Events, e)
}

// Sink is an append-only destination for Records, safe for concurrent use
// across request goroutines. Every encoded record passes through a
// redacting Writer first, so registered secrets never reach disk even if
// a stage echoed one into a header or a path.
type Sink struct {
	mu      sync.Mutex
	enc     *cbor.Encoder
	f       *os.File
	redactor *scrub.Writer
}

// OpenSink opens (creating if necessary) a sink file at path for
// append-only writes. secrets are registered with the redacting Writer
// that sits between the encoder and the file - in this server, the TLS
// private key path and contents.
func OpenSink(path string, secrets ...string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	redactor := scrub.New(f)
	for _, s := range secrets {
		if s != "" {
			redactor.RegisterSecret(s)
		}
	}
	return &Sink{enc: cbor.NewEncoder(redactor), f: f, redactor: redactor}, nil
}

// Write appends rec as one CBOR-encoded item. A write failure is logged
// by the caller, never surfaced to the client - tracing is best-effort.
func (s *Sink) Write(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(rec); err != nil {
		return err
	}
	return s.redactor.Flush()
}

// Close flushes and closes the underlying file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.redactor.Flush(); err != nil {
		_ = s.f.Close()
		return err
	}
	return s.f.Close()
}

// NopSink discards every record, used when no --trace-sink is configured.
type NopSink struct{}

func (NopSink) Write(Record) error { return nil }
func (NopSink) Close() error       { return nil }

// Writer is satisfied by both Sink and NopSink.
type Writer interface {
	Write(Record) error
	Close() error
}
