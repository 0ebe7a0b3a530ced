// Package scrub wraps an io.Writer to redact registered secret byte
// sequences before they reach their destination.
//
// The only secrets this server ever registers are a TLS private key's
// file path and its raw PEM contents, handed to it once at startup. A
// child stage never receives the key material and has no channel back
// into the server process except its own stdout/stderr, so there is no
// plausible path by which a key could reach a stage re-encoded in hex
// or base64 before landing in a stderr header. Matching is therefore
// literal only: the registered byte sequence, nothing derived from it.
// Redaction still straddles write boundaries via a carry buffer, since
// the CBOR encoder writing to the trace sink emits a record across
// more than one Write and a key's PEM body can itself span several KB.
package scrub

import (
	"bytes"
	"io"
	"sort"
	"sync"

	"github.com/pipeserve/pipeserve/internal/invariant"
)

// Writer redacts registered secrets from everything written through it.
type Writer struct {
	dst io.Writer

	rmu     sync.RWMutex
	secrets []entry

	wmu   sync.Mutex
	carry []byte

	maxLen int
}

type entry struct {
	value       []byte
	placeholder []byte
}

const placeholder = "[REDACTED]"

// New wraps dst in a redacting Writer.
func New(dst io.Writer) *Writer {
	invariant.NotNil(dst, "dst")
	return &Writer{
		dst:    dst,
		maxLen: 1024,
		carry:  make([]byte, 0, 1024),
	}
}

// RegisterSecret marks value to be replaced with a fixed placeholder in
// every subsequent Write.
func (w *Writer) RegisterSecret(value string) {
	invariant.Precondition(value != "", "secret value must not be empty")

	w.rmu.Lock()
	defer w.rmu.Unlock()

	w.addLocked([]byte(value), []byte(placeholder))

	if len(value) > w.maxLen {
		w.maxLen = len(value)
	}

	sort.Slice(w.secrets, func(i, j int) bool {
		return len(w.secrets[i].value) > len(w.secrets[j].value)
	})
}

func (w *Writer) addLocked(value, ph []byte) {
	if len(value) == 0 {
		return
	}
	w.secrets = append(w.secrets, entry{value: value, placeholder: ph})
}

// Write implements io.Writer, redacting any registered secret found in p
// or straddling the boundary between this call and the next.
func (w *Writer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	w.wmu.Lock()
	defer w.wmu.Unlock()

	buf := append(append([]byte{}, w.carry...), p...)

	w.rmu.RLock()
	redacted := w.redactLocked(buf)
	w.rmu.RUnlock()

	carrySize := w.maxLen - 1
	if len(redacted) > carrySize {
		toWrite := redacted[:len(redacted)-carrySize]
		w.carry = append(w.carry[:0], redacted[len(redacted)-carrySize:]...)

		n, err := w.dst.Write(toWrite)
		if err != nil {
			return n, err
		}
		if n < len(toWrite) {
			return n, io.ErrShortWrite
		}
	} else {
		w.carry = append(w.carry[:0], redacted...)
	}

	return len(p), nil
}

// Flush writes out any buffered carry bytes. Callers must invoke this
// after the last Write of a stream, or trailing secrets may never reach dst.
func (w *Writer) Flush() error {
	w.wmu.Lock()
	defer w.wmu.Unlock()

	if len(w.carry) == 0 {
		return nil
	}

	w.rmu.RLock()
	redacted := w.redactLocked(w.carry)
	w.rmu.RUnlock()

	_, err := w.dst.Write(redacted)
	w.carry = w.carry[:0]
	return err
}

func (w *Writer) redactLocked(buf []byte) []byte {
	result := buf
	for _, e := range w.secrets {
		result = bytes.ReplaceAll(result, e.value, e.placeholder)
	}
	return result
}
