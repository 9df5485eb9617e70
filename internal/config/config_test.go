package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// -----------------------------------------------------------------------------
// Job decoding tests
// -----------------------------------------------------------------------------

func TestDecode_FullDocument(t *testing.T) {
	t.Parallel()

	const js = `{
	  "job": "nightly",
	  "runtime": { "concurrency": 3 },
	  "exports": [
	    {
	      "name": "vehicles",
	      "source": {
	        "kind": "sql",
	        "driver": "sqlite",
	        "dsn": "file:vehicles.db",
	        "query": "SELECT * FROM vehicles WHERE year > ?",
	        "options": { "args": [2010], "ping_timeout_seconds": 2 }
	      },
	      "output": {
	        "kind": "file",
	        "path": "out/vehicles.csv",
	        "delimiter": ";",
	        "encoding": "windows-1250",
	        "normalize": true,
	        "checksum": true,
	        "options": { "append": true }
	      }
	    },
	    {
	      "name": "events",
	      "source": { "kind": "jsonl", "path": "events.jsonl" },
	      "output": { "kind": "stdout" }
	    }
	  ]
	}`

	c, err := Decode(strings.NewReader(js))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c.Job != "nightly" || c.Runtime.Concurrency != 3 {
		t.Fatalf("job/runtime = %q/%d, want nightly/3", c.Job, c.Runtime.Concurrency)
	}
	if len(c.Exports) != 2 {
		t.Fatalf("len(exports) = %d, want 2", len(c.Exports))
	}

	v := c.Exports[0]
	if v.Source.Driver != "sqlite" || v.Source.DSN != "file:vehicles.db" {
		t.Fatalf("source = %#v", v.Source)
	}
	if args := v.Source.Options.Slice("args"); len(args) != 1 || args[0] != float64(2010) {
		t.Fatalf("options.args = %#v, want [2010]", args)
	}
	if got := v.Source.Options.Int("ping_timeout_seconds", 5); got != 2 {
		t.Fatalf("options.ping_timeout_seconds = %d, want 2", got)
	}
	if v.Output.Delimiter != ";" || v.Output.Encoding != "windows-1250" || !v.Output.Normalize || !v.Output.Checksum {
		t.Fatalf("output = %#v", v.Output)
	}
	if !v.Output.Options.Bool("append", false) {
		t.Fatalf("output.options.append = false, want true")
	}

	e := c.Exports[1]
	if e.Source.Kind != "jsonl" || e.Source.Path != "events.jsonl" || e.Output.Kind != "stdout" {
		t.Fatalf("second export = %#v", e)
	}
	// A missing options object leaves a nil map that is still safe to query.
	if got := e.Output.Options.String("missing", "def"); got != "def" {
		t.Fatalf("Options.String on missing map = %q, want def", got)
	}
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := Decode(strings.NewReader(`{"job":"x","exprots":[]}`))
	if err == nil {
		t.Fatalf("Decode: expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "decode config") {
		t.Fatalf("error = %v, want decode config prefix", err)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := filepath.Join(dir, "job.json")
	if err := os.WriteFile(p, []byte(`{"job":"j","exports":[]}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Job != "j" {
		t.Fatalf("job = %q, want j", c.Job)
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Load(missing) err = %v, want not-exist", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		env  map[string]string
		want int
	}{
		{name: "unset keeps value", env: nil, want: 2},
		{name: "valid override", env: map[string]string{"CSVEXPORT_CONCURRENCY": "8"}, want: 8},
		{name: "garbage ignored", env: map[string]string{"CSVEXPORT_CONCURRENCY": "lots"}, want: 2},
		{name: "non-positive ignored", env: map[string]string{"CSVEXPORT_CONCURRENCY": "0"}, want: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := Config{Runtime: Runtime{Concurrency: 2}}
			ApplyEnv(&c, func(k string) string { return tc.env[k] })
			if c.Runtime.Concurrency != tc.want {
				t.Fatalf("concurrency = %d, want %d", c.Runtime.Concurrency, tc.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// Options helper tests
// -----------------------------------------------------------------------------

func TestOptions_TypedAccessors(t *testing.T) {
	t.Parallel()

	o := Options{
		"s":    "v",
		"b":    true,
		"f":    float64(7),
		"i":    3,
		"arr":  []any{"a", 1.0},
		"bad":  []string{"x"},
		"none": nil,
	}

	if got := o.String("s", "d"); got != "v" {
		t.Errorf("String(s) = %q", got)
	}
	if got := o.String("b", "d"); got != "d" {
		t.Errorf("String(b) = %q, want default", got)
	}
	if got := o.Bool("b", false); !got {
		t.Errorf("Bool(b) = false")
	}
	if got := o.Bool("s", true); !got {
		t.Errorf("Bool(s) should fall back to default")
	}
	if got := o.Int("f", 0); got != 7 {
		t.Errorf("Int(f) = %d", got)
	}
	if got := o.Int("i", 0); got != 3 {
		t.Errorf("Int(i) = %d", got)
	}
	if got := o.Int("s", 9); got != 9 {
		t.Errorf("Int(s) = %d, want default", got)
	}
	if got := o.Slice("arr"); len(got) != 2 {
		t.Errorf("Slice(arr) = %#v", got)
	}
	if got := o.Slice("bad"); got != nil {
		t.Errorf("Slice(bad) = %#v, want nil", got)
	}
}

func TestOptions_UnmarshalNull(t *testing.T) {
	t.Parallel()

	var o Options
	if err := o.UnmarshalJSON([]byte("null")); err != nil {
		t.Fatalf("UnmarshalJSON(null): %v", err)
	}
	if o == nil || len(o) != 0 {
		t.Fatalf("Options = %#v, want empty non-nil map", o)
	}
	if err := o.UnmarshalJSON([]byte(`{"k":"v"}`)); err != nil {
		t.Fatalf("UnmarshalJSON(object): %v", err)
	}
	if o.String("k", "") != "v" {
		t.Fatalf("Options = %#v", o)
	}
	if err := o.UnmarshalJSON([]byte(`[1]`)); err == nil {
		t.Fatalf("UnmarshalJSON(array): expected error")
	}
}
