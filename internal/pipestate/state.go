// Package pipestate defines the pipeline state sum type threaded through
// the path walker, stage builder, and resolver: exactly one of ErrorCode,
// InternalErr, *StaticFile, *Chain, or HTTPErr is ever live at a time.
// Modeled as a sealed interface plus a closed set of implementations: a
// private marker method plus an exhaustive type switch at every call
// site stands in for a sealed class hierarchy with a visitor.
package pipestate

import (
	"errors"
	"os"
	"os/exec"
	"sync"

	"github.com/pipeserve/pipeserve/internal/procguard"
)

// State is implemented by exactly the five pipeline state variants.
type State interface {
	pipelineState()
}

// ErrorCode is a bare HTTP error with no body beyond the default message.
type ErrorCode struct {
	Status uint16
}

func (ErrorCode) pipelineState() {}

// InternalErr is a server-side failure: Message is logged, Status returned.
type InternalErr struct {
	Status  uint16
	Message string
}

func (InternalErr) pipelineState() {}

// StaticFile is a terminal byte source plus the path used for MIME
// detection. Handle must be rewindable: reading restarts from byte 0.
type StaticFile struct {
	Handle *os.File
	Origin string
	Status uint16
}

func (*StaticFile) pipelineState() {}

// Close releases the underlying file handle. Safe to call once; callers
// that hand the handle off to a child's stdin should not also Close it.
func (s *StaticFile) Close() {
	if s.Handle != nil {
		_ = s.Handle.Close()
	}
}

// ChainEntry is one live child process in a Chain, exclusively owning its
// process handle, unread stdout, and header tempfile until Wait or kill
// runs.
type ChainEntry struct {
	Cmd        *exec.Cmd
	Origin     string
	Stdout     *os.File // unconsumed stdout; nil once handed to the next stage or the resolver
	HeaderFile *os.File // stderr capture, parsed as response headers by the resolver

	mu       sync.Mutex
	waited   bool
	exitCode int
}

// Wait blocks until the child exits and returns its raw exit code,
// caching the result so repeated calls (e.g. from both the resolver and
// a later Halt) never call exec.Cmd.Wait twice.
func (e *ChainEntry) Wait() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.waited {
		return e.exitCode
	}
	err := e.Cmd.Wait()
	e.exitCode = exitCodeOf(err)
	e.waited = true
	return e.exitCode
}

func (e *ChainEntry) kill() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.waited {
		procguard.Kill(e.Cmd)
		_ = e.Cmd.Wait()
		e.waited = true
		e.exitCode = -1
	}
	if e.Stdout != nil {
		_ = e.Stdout.Close()
		e.Stdout = nil
	}
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// Chain is an ordered pipeline of live child processes whose stdouts feed
// subsequent stdins. Only the last stage's stdout remains unread.
type Chain struct {
	Stages []*ChainEntry
	Status uint16

	haltOnce sync.Once
}

func (*Chain) pipelineState() {}

// Halt kills every stage that hasn't already exited, reaps it, and closes
// its header tempfile. Idempotent and safe to call from multiple
// goroutines (e.g. a client-disconnect handler racing the resolver).
func (c *Chain) Halt() {
	c.haltOnce.Do(func() {
		for _, e := range c.Stages {
			e.kill()
			if e.HeaderFile != nil {
				_ = e.HeaderFile.Close()
				_ = os.Remove(e.HeaderFile.Name())
			}
		}
	})
}

// HTTPErr carries an error from the HTTP layer. The resolver answers it
// with a plain 500 error page; Err itself is not shown to the client.
type HTTPErr struct {
	Err error
}

func (HTTPErr) pipelineState() {}

// StatusOf returns the HTTP status a state carries, if any. HTTPErr has
// none of its own; the resolver renders it as a 500.
func StatusOf(s State) (uint16, bool) {
	switch v := s.(type) {
	case ErrorCode:
		return v.Status, true
	case InternalErr:
		return v.Status, true
	case *StaticFile:
		return v.Status, true
	case *Chain:
		return v.Status, true
	default:
		return 0, false
	}
}

// IsOK2xx reports whether s currently carries a 2xx status.
func IsOK2xx(s State) bool {
	status, ok := StatusOf(s)
	return ok && status >= 200 && status < 300
}

// Halt releases any live process resources s owns. Every variant but
// Chain owns none and is a no-op.
func Halt(s State) {
	if c, ok := s.(*Chain); ok {
		c.Halt()
	}
}
