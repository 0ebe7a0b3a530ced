// Package stage implements the stage builder: given a candidate
// filesystem path and the pipeline state accumulated so far, it decides
// whether that path contributes nothing, a terminal error, a terminal
// static file, or another link in a process chain.
package stage

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pipeserve/pipeserve/internal/pipestate"
	"github.com/pipeserve/pipeserve/internal/procguard"
)

// HandleFile classifies p against the stage builder's decision table and
// returns the resulting state. argv is the Params vector passed to any
// child spawned here.
func HandleFile(p string, s pipestate.State, argv []string) pipestate.State {
	if herr, ok := s.(pipestate.HTTPErr); ok {
		return herr
	}

	info, err := os.Stat(p)
	if err == nil && info.IsDir() {
		p = filepath.Join(p, ".index")
		info, err = os.Stat(p)
	}

	if err != nil {
		if pipestate.IsOK2xx(s) {
			pipestate.Halt(s)
			return pipestate.ErrorCode{Status: 404}
		}
		return s
	}

	if info.IsDir() {
		// p/.index is itself a directory: no well-known filename beyond
		// .index is tried, so this is a dead end.
		pipestate.Halt(s)
		return pipestate.ErrorCode{Status: 418}
	}

	if isExecutable(info) {
		return AppendExecutable(p, s, argv)
	}
	return promoteStatic(p, s)
}

// MaybeWrap appends dir's own .index as a stage wrapping s, used by the
// Backtrack Controller to let an ancestor directory post-process a deeper
// result. A missing or non-executable .index leaves s untouched - unlike
// HandleFile, the absence of a wrapper is never an error.
func MaybeWrap(dir string, s pipestate.State, argv []string) pipestate.State {
	idx := filepath.Join(dir, ".index")
	info, err := os.Stat(idx)
	if err != nil || info.IsDir() || !isExecutable(info) {
		return s
	}
	return AppendExecutable(idx, s, argv)
}

func isExecutable(info os.FileInfo) bool {
	return !info.IsDir() && info.Mode()&0o111 != 0
}

// AppendExecutable spawns p and links it onto s: extending s's chain if s
// is already one, or starting a new one otherwise, carrying forward s's
// status field.
func AppendExecutable(p string, s pipestate.State, argv []string) pipestate.State {
	workDir := filepath.Dir(p)

	headerFile, err := os.CreateTemp("", "pipeserve-headers-")
	if err != nil {
		pipestate.Halt(s)
		return pipestate.InternalErr{Status: 500, Message: "create header tempfile: " + err.Error()}
	}

	stdin, err := stdinSource(s)
	if err != nil {
		_ = headerFile.Close()
		_ = os.Remove(headerFile.Name())
		pipestate.Halt(s)
		return pipestate.InternalErr{Status: 500, Message: err.Error()}
	}

	cmd := exec.Command(p, argv...)
	cmd.Dir = workDir
	cmd.Stdin = stdin
	cmd.Stderr = headerFile
	procguard.Prepare(cmd)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		_ = headerFile.Close()
		_ = os.Remove(headerFile.Name())
		pipestate.Halt(s)
		return pipestate.InternalErr{Status: 500, Message: "stdout pipe for " + p + ": " + err.Error()}
	}
	stdoutFile, ok := stdoutPipe.(*os.File)
	if !ok {
		_ = stdoutPipe.Close()
		_ = headerFile.Close()
		_ = os.Remove(headerFile.Name())
		pipestate.Halt(s)
		return pipestate.InternalErr{Status: 500, Message: "stdout pipe for " + p + " is not file-backed"}
	}

	if err := cmd.Start(); err != nil {
		_ = stdoutFile.Close()
		_ = headerFile.Close()
		_ = os.Remove(headerFile.Name())
		pipestate.Halt(s)
		return pipestate.InternalErr{Status: 500, Message: "spawn " + p + ": " + err.Error()}
	}

	entry := &pipestate.ChainEntry{Cmd: cmd, Origin: p, Stdout: stdoutFile, HeaderFile: headerFile}

	if chain, ok := s.(*pipestate.Chain); ok {
		chain.Stages[len(chain.Stages)-1].Stdout = nil // detached: now entry's stdin
		chain.Stages = append(chain.Stages, entry)
		return chain
	}

	status, _ := pipestate.StatusOf(s)
	return &pipestate.Chain{Stages: []*pipestate.ChainEntry{entry}, Status: status}
}

func stdinSource(s pipestate.State) (*os.File, error) {
	switch v := s.(type) {
	case *pipestate.Chain:
		last := v.Stages[len(v.Stages)-1]
		if last.Stdout == nil {
			return nil, errors.New("previous stage's stdout was already consumed")
		}
		return last.Stdout, nil
	case *pipestate.StaticFile:
		if _, err := v.Handle.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return v.Handle, nil
	default:
		return os.CreateTemp("", "pipeserve-stdin-")
	}
}

func promoteStatic(p string, s pipestate.State) pipestate.State {
	if chain, ok := s.(*pipestate.Chain); ok {
		chain.Halt()
		return pipestate.InternalErr{Status: 500, Message: "stage wanted to promote a live chain directly to a static file"}
	}

	var status uint16
	switch v := s.(type) {
	case pipestate.ErrorCode:
		status = v.Status
	case pipestate.InternalErr:
		status = v.Status
	case *pipestate.StaticFile:
		status = v.Status
	default:
		return pipestate.InternalErr{Status: 500, Message: "no status to carry into static promotion"}
	}

	f, err := os.Open(p)
	if err != nil {
		return pipestate.InternalErr{Status: 500, Message: "open " + p + ": " + err.Error()}
	}
	return &pipestate.StaticFile{Handle: f, Origin: p, Status: status}
}
