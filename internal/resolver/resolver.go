// Package resolver turns a fully-walked pipeline state into an HTTP
// response, waiting on chain stages in order and, on a mid-chain non-2xx
// exit, re-entering the path walker at a truncated depth to hunt for the
// nearest error handler.
package resolver

import (
	"io"
	"mime"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/pipeserve/pipeserve/internal/headertext"
	"github.com/pipeserve/pipeserve/internal/pathwalk"
	"github.com/pipeserve/pipeserve/internal/pipestate"
	"github.com/pipeserve/pipeserve/internal/statuscode"
)

// Response is the fully-materialized result of a resolution, ready to be
// written to an http.ResponseWriter.
type Response struct {
	Status  uint16
	Headers map[string]string
	Body    io.ReadCloser
}

// Resolve drives a trampolined retry loop: a failure partway through a
// chain doesn't return directly, it restarts resolution on the ErrorCode
// state produced by re-walking the prefix of the original path that ends
// at the failing stage's directory. Each further retry uses a strictly
// shorter prefix than the one before; once none is left, the failure
// status is answered with a plain error page.
func Resolve(baseDir string, layers []string, argv []string, state pipestate.State) Response {
	prevDepth := len(layers) + 1
	for {
		switch v := state.(type) {
		case pipestate.HTTPErr:
			return errorPage(500)
		case pipestate.ErrorCode:
			return errorPage(v.Status)
		case pipestate.InternalErr:
			commonlog.GetLogger("pipeserve").Errorf("internal error: %s", v.Message)
			return errorPage(v.Status)
		case *pipestate.StaticFile:
			return staticResponse(v)
		case *pipestate.Chain:
			resp, failOrigin, failCode, failed := runChain(v)
			if !failed {
				return resp
			}
			depth := truncatedDepth(baseDir, failOrigin, len(layers))
			if depth >= prevDepth {
				depth = prevDepth - 1
			}
			if depth < 0 {
				return errorPage(uint16(failCode))
			}
			prevDepth = depth
			state = pathwalk.Walk(baseDir, layers[:depth], argv, pipestate.ErrorCode{Status: uint16(failCode)})
		default:
			return errorPage(500)
		}
	}
}

// runChain waits on every stage in order. On the first non-2xx exit it
// halts whatever remains, reports the failing origin and status, and
// signals the caller to re-walk.
func runChain(c *pipestate.Chain) (resp Response, failOrigin string, failStatus int, failed bool) {
	var finalStatus uint16 = c.Status
	for _, e := range c.Stages {
		code := e.Wait()
		status := statuscode.FromExitCode(code)
		if status < 200 || status >= 300 {
			c.Halt()
			return Response{}, e.Origin, int(status), true
		}
		finalStatus = status
	}

	last := c.Stages[len(c.Stages)-1]
	headers := map[string]string{}
	for _, e := range c.Stages {
		mergeHeaders(headers, e.HeaderFile)
	}

	body, size, err := bufferToTempFile(last.Stdout)
	if err != nil {
		return Response{}, last.Origin, 500, true
	}
	headers["Content-Length"] = strconv.FormatInt(size, 10)
	return Response{Status: finalStatus, Headers: headers, Body: body}, "", 0, false
}

// bufferToTempFile copies src to a fresh seekable tempfile and returns it
// rewound, along with its exact byte length. The last chain stage's
// stdout is a pipe, which has no determinate size until fully read, so
// the body is captured here rather than streamed straight through -
// that is what lets Content-Length be exact instead of omitted.
func bufferToTempFile(src io.ReadCloser) (io.ReadCloser, int64, error) {
	defer src.Close()
	f, err := os.CreateTemp("", "pipeserve-response-")
	if err != nil {
		return nil, 0, err
	}
	size, err := io.Copy(f, src)
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, 0, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, 0, err
	}
	return removeOnClose{f}, size, nil
}

// removeOnClose deletes its backing tempfile once the body has been fully
// read and closed by the request adapter.
type removeOnClose struct {
	*os.File
}

func (r removeOnClose) Close() error {
	err := r.File.Close()
	os.Remove(r.File.Name())
	return err
}

func mergeHeaders(into map[string]string, f *os.File) {
	if f == nil {
		return
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		value = strings.TrimSpace(value)
		if !ok || !headertext.IsValidSingleLine(value) {
			continue
		}
		into[name] = value
	}
}

// truncatedDepth maps a failing stage's origin back onto a prefix of the
// original layer list: the nearest enclosing directory is retried as the
// search root for an error handler.
func truncatedDepth(baseDir, origin string, maxLayers int) int {
	rel, err := filepath.Rel(baseDir, origin)
	if err != nil {
		return 0
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	depth := len(parts) - 1
	if depth < 0 {
		depth = 0
	}
	if depth > maxLayers {
		depth = maxLayers
	}
	return depth
}

func staticResponse(s *pipestate.StaticFile) Response {
	headers := map[string]string{"Content-Type": detectContentType(s.Origin)}
	if info, err := s.Handle.Stat(); err == nil {
		headers["Content-Length"] = strconv.FormatInt(info.Size(), 10)
	}
	return Response{
		Status:  s.Status,
		Headers: headers,
		Body:    s.Handle,
	}
}

// detectContentType shells out to `file -ib`, matching the original
// implementation's mimetype convention, falling back to the standard
// extension table when `file` is unavailable.
func detectContentType(path string) string {
	if out, err := exec.Command("file", "-ib", path).Output(); err == nil {
		if ct := strings.TrimSpace(string(out)); ct != "" {
			return ct
		}
	}
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func errorPage(status uint16) Response {
	body := "Error " + strconv.Itoa(int(status)) + ": That's all we know"
	return Response{
		Status: status,
		Headers: map[string]string{
			"Content-Type":   "text/plain; charset=us-ascii",
			"Content-Length": strconv.Itoa(len(body)),
		},
		Body: io.NopCloser(strings.NewReader(body)),
	}
}
