package config

// schemaJSON is the validation schema for a loaded config document. Kept
// inline rather than go:embed'd from a separate file since it's small and
// versioned together with ServerConfig.
const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "basefolder": {"type": "string", "minLength": 1},
    "address": {"type": "string", "minLength": 1},
    "use_http": {"type": "boolean"},
    "certificate": {"type": "string"},
    "private_key": {"type": "string"},
    "autocert_domain": {"type": "string"},
    "trace_sink": {"type": "string"},
    "shutdown_grace_seconds": {"type": "integer", "minimum": 0},
    "log_level": {"type": "string", "enum": ["debug", "info", "warning", "error"]},
    "max_body_bytes": {"type": "integer", "minimum": 0},
    "suggest_on_missing": {"type": "boolean"}
  },
  "required": ["basefolder", "address"]
}`
