// Package server wires a request adapter to an *http.Server: extracting
// path/method/headers/query into a Params vector, buffering the request
// body into a seekable tempfile, assigning a trace ID, and handing the
// result to the path walker and resolver.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/pipeserve/pipeserve/internal/config"
	"github.com/pipeserve/pipeserve/internal/params"
	"github.com/pipeserve/pipeserve/internal/pathwalk"
	"github.com/pipeserve/pipeserve/internal/pipestate"
	"github.com/pipeserve/pipeserve/internal/resolver"
	"github.com/pipeserve/pipeserve/internal/suggest"
	"github.com/pipeserve/pipeserve/internal/tlsutil"
	"github.com/pipeserve/pipeserve/internal/trace"
	"github.com/pipeserve/pipeserve/internal/traceid"
)

// Server serves one basefolder over HTTP(S), dispatching every request
// through the path walker and resolver.
type Server struct {
	cfg    *config.ServerConfig
	sink   trace.Writer
	logger commonlog.Logger
	http   *http.Server
}

// New builds a Server from a validated ServerConfig. It opens the trace
// sink (if configured) but does not start listening.
func New(cfg *config.ServerConfig) (*Server, error) {
	commonlog.Configure(1, nil)
	logger := commonlog.GetLogger("pipeserve")

	var sink trace.Writer = trace.NopSink{}
	if cfg.TraceSink != "" {
		s, err := trace.OpenSink(cfg.TraceSink, traceSecrets(cfg)...)
		if err != nil {
			return nil, err
		}
		sink = s
	}

	srv := &Server{cfg: cfg, sink: sink, logger: logger}
	srv.http = &http.Server{
		Addr:    cfg.Address,
		Handler: http.HandlerFunc(srv.serveHTTP),
	}
	return srv, nil
}

// Run starts the listener (TLS unless UseHTTP is set) and blocks until
// ctx is canceled, then drains in-flight requests for up to
// cfg.ShutdownGrace before forcing a stop.
func (s *Server) Run(ctx context.Context) error {
	if !s.cfg.UseHTTP {
		tlsCfg, err := s.buildTLSConfig()
		if err != nil {
			return err
		}
		s.http.TLSConfig = tlsCfg
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.cfg.UseHTTP {
			err = s.http.ListenAndServe()
		} else {
			err = s.http.ListenAndServeTLS("", "")
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down, draining in-flight requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			_ = s.http.Close()
		}
		_ = s.sink.Close()
		return nil
	}
}

// traceSecrets collects values that must never appear verbatim in the
// trace sink: the private key file's own path and, if readable, its
// contents. A deployer who points --trace-sink at a world-readable file
// must not thereby leak the key material a stage's stderr header might
// otherwise echo back.
func traceSecrets(cfg *config.ServerConfig) []string {
	var secrets []string
	if cfg.PrivateKey != "" {
		secrets = append(secrets, cfg.PrivateKey)
		if data, err := os.ReadFile(cfg.PrivateKey); err == nil {
			secrets = append(secrets, string(data))
		}
	}
	return secrets
}

func (s *Server) buildTLSConfig() (*tls.Config, error) {
	if s.cfg.AutocertDomain != "" {
		if s.cfg.Certificate != "" || s.cfg.PrivateKey != "" {
			return nil, errors.New("autocert domain cannot be combined with a certificate or private key")
		}
		return tlsutil.FromAutocert(s.cfg.AutocertDomain, os.TempDir()+"/pipeserve-autocert"), nil
	}
	return tlsutil.FromCertificate(s.cfg.Certificate, s.cfg.PrivateKey)
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Errorf("panic serving %s: %v", r.URL.Path, rec)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}()

	id := traceid.New()
	w.Header().Set("X-Trace-Id", id)

	rec := trace.Record{TraceID: id, Method: r.Method, Path: r.URL.Path, StartedAt: startTime()}

	bodyFile, err := os.CreateTemp("", "pipeserve-request-")
	if err != nil {
		s.logger.Errorf("buffer request body: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer os.Remove(bodyFile.Name())
	defer bodyFile.Close()

	limit := s.cfg.MaxBodyBytes
	limited := io.LimitReader(r.Body, limit+1)
	n, err := io.Copy(bodyFile, limited)
	if err != nil {
		s.logger.Errorf("read request body: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if n > limit {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	if _, err := bodyFile.Seek(0, io.SeekStart); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	layers := splitLayers(r.URL.Path)
	argv := params.Build(r.URL.Path, r.Method, r.Header, r.URL.RawQuery)
	seed := &pipestate.StaticFile{Handle: bodyFile, Origin: bodyFile.Name(), Status: 200}

	walked := pathwalk.Walk(s.cfg.BaseFolder, layers, argv, seed)
	resp := resolver.Resolve(s.cfg.BaseFolder, layers, argv, walked)
	defer resp.Body.Close()

	if resp.Status == 404 && s.cfg.SuggestOnMissing {
		dir := s.cfg.BaseFolder
		if len(layers) > 1 {
			dir = filepath.Join(append([]string{dir}, layers[:len(layers)-1]...)...)
		}
		if hints := suggest.Nearest(dir, lastSegment(r.URL.Path), 3); len(hints) > 0 {
			rec.AddEvent(trace.LayerEvent{Kind: "suggest", Detail: strings.Join(hints, ", ")})
		}
	}

	for name, value := range resp.Headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(int(resp.Status))
	_, _ = io.Copy(w, resp.Body)

	rec.Status = resp.Status
	rec.FinishedAt = startTime()
	if err := s.sink.Write(rec); err != nil {
		s.logger.Debugf("trace write failed: %s", err)
	}
}

func splitLayers(p string) []string {
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func lastSegment(p string) string {
	layers := splitLayers(p)
	if len(layers) == 0 {
		return ""
	}
	return layers[len(layers)-1]
}

func startTime() time.Time { return time.Now() }
