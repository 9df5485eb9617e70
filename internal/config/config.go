// Package config defines the JSON-serializable job model for csvexport.
//
// A job file lists one or more exports. Each export names a source (where
// records come from) and an output (where the rendered text goes):
//
//	{
//	  "job": "nightly",
//	  "runtime": { "concurrency": 2 },
//	  "exports": [
//	    {
//	      "name":   "vehicles",
//	      "source": { "kind": "sql", "driver": "sqlite", "dsn": "file:x.db", "query": "SELECT * FROM v" },
//	      "output": { "kind": "file", "path": "out/vehicles.csv", "delimiter": ";", "checksum": true }
//	    }
//	  ]
//	}
//
// Decoding uses the standard library only; kind-specific knobs travel in the
// free-form Options bag.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Config is the top-level job document.
type Config struct {
	// Job names the run; it labels metrics and log lines.
	Job string `json:"job"`

	Runtime Runtime  `json:"runtime"`
	Exports []Export `json:"exports"`
}

// Runtime controls how many exports run at once.
type Runtime struct {
	// Concurrency bounds parallel exports. Zero means one export at a time.
	Concurrency int `json:"concurrency"`
}

// Export is one source rendered into one output.
type Export struct {
	Name   string `json:"name"`
	Source Source `json:"source"`
	Output Output `json:"output"`
}

// Source selects where records come from.
type Source struct {
	// Kind selects the implementation: "sql" or "jsonl".
	Kind string `json:"kind"`

	// Driver, DSN and Query configure the "sql" kind. Driver is one of
	// postgres, mssql, mysql, sqlite.
	Driver string `json:"driver,omitempty"`
	DSN    string `json:"dsn,omitempty"`
	Query  string `json:"query,omitempty"`

	// Path configures the "jsonl" kind.
	Path string `json:"path,omitempty"`

	// Options carries kind-specific settings, e.g. "table" or "args" for sql.
	Options Options `json:"options"`
}

// Output selects where rendered text goes.
type Output struct {
	// Kind selects the sink: "file", "stdout" or "memory".
	Kind string `json:"kind"`

	// Path is the destination for the "file" kind.
	Path string `json:"path,omitempty"`

	// Delimiter is "," (default) or ";".
	Delimiter string `json:"delimiter,omitempty"`

	// Encoding is a charset label such as "windows-1250"; empty means UTF-8.
	Encoding string `json:"encoding,omitempty"`

	// Normalize applies Unicode NFC before encoding.
	Normalize bool `json:"normalize,omitempty"`

	// Checksum records an xxh3 digest of the written bytes.
	Checksum bool `json:"checksum,omitempty"`

	// Options carries sink-specific settings, e.g. "append" for files or
	// "replace_unsupported" for lossy encodings.
	Options Options `json:"options"`
}

// Load reads and decodes the job file at path.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode decodes a job document from r. Unknown fields are rejected so that
// typos surface instead of being ignored.
func Decode(r io.Reader) (Config, error) {
	var c Config
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides runtime settings from the environment
// (CSVEXPORT_CONCURRENCY). Unparseable values are ignored.
func ApplyEnv(c *Config, getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("CSVEXPORT_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Runtime.Concurrency = n
		}
	}
}

// Options is a small helper to fetch typed values from arbitrary JSON maps.
// It performs minimal coercion and returns the provided default when a key
// is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64,
// so both float64 and int are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Slice returns the array value for key, or nil.
func (o Options) Slice(key string) []any {
	if v, ok := o[key]; ok {
		if s, ok := v.([]any); ok {
			return s
		}
	}
	return nil
}

// UnmarshalJSON makes a missing or null "options" object decode to an empty,
// non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
