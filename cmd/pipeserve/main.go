// Command pipeserve serves a directory tree as a pipeline of child
// processes, per path segment, over HTTP or HTTPS.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pipeserve/pipeserve/internal/config"
	"github.com/pipeserve/pipeserve/internal/server"
	"github.com/pipeserve/pipeserve/internal/statuscode"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		useHTTP        bool
		certFile       string
		keyFile        string
		configPath     string
		autocertDomain string
		traceSink      string
		shutdownGrace  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "pipeserve <basefolder> <address>",
		Short: "Serve a directory tree as a pipeline of child processes",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(args, configPath, useHTTP, certFile, keyFile, autocertDomain, traceSink, shutdownGrace)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&useHTTP, "use-http", "H", false, "serve plain HTTP instead of HTTPS")
	flags.StringVarP(&certFile, "certificate", "c", "", "TLS certificate file")
	flags.StringVarP(&keyFile, "private-key", "p", "", "TLS private key file")
	flags.StringVar(&configPath, "config", "", "YAML config file (overrides positional args and other flags)")
	flags.StringVar(&autocertDomain, "autocert-domain", "", "obtain a certificate automatically via ACME for this domain")
	flags.StringVar(&traceSink, "trace-sink", "", "append diagnostic trace records (CBOR) to this file")
	flags.DurationVar(&shutdownGrace, "shutdown-grace", 15*time.Second, "time to let in-flight requests finish during shutdown")

	return cmd
}

func resolveConfig(args []string, configPath string, useHTTP bool, certFile, keyFile, autocertDomain, traceSink string, shutdownGrace time.Duration) (*config.ServerConfig, error) {
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		return config.Load(data)
	}

	if len(args) != 2 {
		return nil, fmt.Errorf("basefolder and address are required unless --config is given")
	}

	base, err := filepath.Abs(args[0])
	if err != nil {
		return nil, fmt.Errorf("resolve basefolder: %w", err)
	}
	info, err := os.Stat(base)
	if err != nil {
		return nil, fmt.Errorf("basefolder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("basefolder %q is not a directory", base)
	}

	return &config.ServerConfig{
		BaseFolder:       base,
		Address:          args[1],
		UseHTTP:          useHTTP,
		Certificate:      certFile,
		PrivateKey:       keyFile,
		AutocertDomain:   autocertDomain,
		TraceSink:        traceSink,
		ShutdownGrace:    shutdownGrace,
		LogLevel:         "info",
		MaxBodyBytes:     10 << 20,
		SuggestOnMissing: true,
	}, nil
}

func run(parent context.Context, cfg *config.ServerConfig) error {
	// Exit-code table must be published before any worker goroutine starts,
	// so every stage a request might ever spawn inherits it.
	for _, kv := range statuscode.Environ() {
		name, value, _ := splitEnv(kv)
		if err := os.Setenv(name, value); err != nil {
			return fmt.Errorf("publish exit code table: %w", err)
		}
	}

	srv, err := server.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

func splitEnv(kv string) (name, value string, ok bool) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:], true
		}
	}
	return kv, "", false
}
