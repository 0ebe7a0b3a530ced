// Package config loads the server's YAML configuration document: a file
// describing everything the CLI flags can also set, decoded through a
// generic map and re-marshaled to JSON so it can be validated against an
// embedded JSON Schema before any field is trusted.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// ServerConfig is the fully-validated, defaulted configuration for one
// server instance.
type ServerConfig struct {
	BaseFolder       string        `json:"basefolder"`
	Address          string        `json:"address"`
	UseHTTP          bool          `json:"use_http"`
	Certificate      string        `json:"certificate"`
	PrivateKey       string        `json:"private_key"`
	AutocertDomain   string        `json:"autocert_domain"`
	TraceSink        string        `json:"trace_sink"`
	ShutdownGrace    time.Duration `json:"-"`
	ShutdownGraceS   int           `json:"shutdown_grace_seconds"`
	LogLevel         string        `json:"log_level"`
	MaxBodyBytes     int64         `json:"max_body_bytes"`
	SuggestOnMissing bool          `json:"suggest_on_missing"`
}

var schema = jsonschema.MustCompileString("pipeserve-config.json", schemaJSON)

// Load reads, validates, and defaults a YAML config document from data.
func Load(data []byte) (*ServerConfig, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	asJSON, err := json.Marshal(normalizeForJSON(generic))
	if err != nil {
		return nil, fmt.Errorf("re-marshal config: %w", err)
	}

	var schemaDoc any
	if err := json.Unmarshal(asJSON, &schemaDoc); err != nil {
		return nil, fmt.Errorf("decode config for validation: %w", err)
	}
	if err := schema.Validate(schemaDoc); err != nil {
		return nil, fmt.Errorf("config failed validation: %w", err)
	}

	cfg := &ServerConfig{LogLevel: "info", ShutdownGraceS: 15, MaxBodyBytes: 10 << 20, SuggestOnMissing: true}
	if err := json.Unmarshal(asJSON, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.ShutdownGrace = time.Duration(cfg.ShutdownGraceS) * time.Second
	return cfg, nil
}

// normalizeForJSON converts the map[any]any shapes yaml.v3 can still
// produce for nested mappings into map[string]any, which encoding/json
// requires.
func normalizeForJSON(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = normalizeForJSON(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[fmt.Sprint(k)] = normalizeForJSON(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalizeForJSON(e)
		}
		return out
	default:
		return val
	}
}
