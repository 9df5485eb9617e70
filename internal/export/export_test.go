package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/zeebo/xxh3"

	"csvexport/internal/config"
	_ "csvexport/internal/source/all"
)

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func jsonlExport(name, in, out string) config.Export {
	return config.Export{
		Name:   name,
		Source: config.Source{Kind: "jsonl", Path: in},
		Output: config.Output{Kind: "file", Path: out},
	}
}

// -----------------------------------------------------------------------------
// Run
// -----------------------------------------------------------------------------

func TestRun_JSONLAndSQL(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	dsn := "file:" + filepath.Join(dir, "fleet.db")
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, s := range []string{
		`CREATE TABLE owners (id INTEGER, name TEXT)`,
		`INSERT INTO owners VALUES (1, 'Novák'), (2, NULL)`,
	} {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	_ = db.Close()

	vehicles := writeFile(t, dir, "vehicles.jsonl", "{\"vin\":\"TMB1\",\"seats\":5}\n{\"vin\":\"WVW2\",\"seats\":null}\n")

	veOut := filepath.Join(dir, "out", "vehicles.csv")
	owOut := filepath.Join(dir, "out", "owners.csv")

	ve := jsonlExport("vehicles", vehicles, veOut)
	ve.Output.Checksum = true
	cfg := config.Config{
		Job:     "nightly",
		Runtime: config.Runtime{Concurrency: 2},
		Exports: []config.Export{
			ve,
			{
				Name:   "owners",
				Source: config.Source{Kind: "sql", Driver: "sqlite", DSN: dsn, Options: config.Options{"table": "owners"}},
				Output: config.Output{Kind: "file", Path: owOut, Delimiter: ";"},
			},
		},
	}

	sum, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got, want := readFile(t, veOut), "vin,seats,\nTMB1,5,\nWVW2,null,"; got != want {
		t.Fatalf("vehicles.csv = %q, want %q", got, want)
	}
	if got, want := readFile(t, owOut), "id;name;\n1;Novák;\n2;null;"; got != want {
		t.Fatalf("owners.csv = %q, want %q", got, want)
	}

	if sum.Job != "nightly" || len(sum.Results) != 2 || sum.Rows() != 4 {
		t.Fatalf("summary = %+v", sum)
	}
	vr := sum.Results[0]
	if vr.Name != "vehicles" || vr.Rows != 2 || vr.Columns != 2 || vr.Bytes != int64(len(readFile(t, veOut))) {
		t.Fatalf("vehicles result = %+v", vr)
	}
	if want := fmt.Sprintf("%016x", xxh3.Hash([]byte(readFile(t, veOut)))); vr.Checksum != want {
		t.Fatalf("checksum = %q, want %q", vr.Checksum, want)
	}
	if sum.Results[1].Checksum != "" {
		t.Fatalf("owners checksum = %q, want none", sum.Results[1].Checksum)
	}
}

func TestRun_SkipsEmptySource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := writeFile(t, dir, "empty.jsonl", "\n")
	out := filepath.Join(dir, "empty.csv")

	sum, err := Run(context.Background(), config.Config{Job: "j", Exports: []config.Export{jsonlExport("empty", in, out)}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sum.Results[0].Skipped {
		t.Fatalf("result = %+v, want skipped", sum.Results[0])
	}
	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("output should not exist, stat err = %v", err)
	}
}

func TestRun_FirstFailureCancelsRest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ok := writeFile(t, dir, "ok.jsonl", "{\"a\":1}\n")

	cfg := config.Config{
		Job: "j",
		Exports: []config.Export{
			jsonlExport("missing", filepath.Join(dir, "missing.jsonl"), filepath.Join(dir, "m.csv")),
			jsonlExport("later", ok, filepath.Join(dir, "later.csv")),
		},
	}
	sum, err := Run(context.Background(), cfg)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want not-exist", err)
	}
	if len(sum.Failed()) != 2 {
		t.Fatalf("failed = %+v, want both exports", sum.Failed())
	}
	if !errors.Is(sum.Results[1].Err, context.Canceled) {
		t.Fatalf("later err = %v, want context.Canceled", sum.Results[1].Err)
	}
}

func TestRun_ConfigErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := writeFile(t, dir, "in.jsonl", "{\"a\":1}\n")

	cases := map[string]config.Export{
		"unknown source": {Name: "x", Source: config.Source{Kind: "ftp"}, Output: config.Output{Kind: "memory"}},
		"unknown output": {Name: "x", Source: config.Source{Kind: "jsonl", Path: in}, Output: config.Output{Kind: "s3"}},
		"bad encoding": {Name: "x", Source: config.Source{Kind: "jsonl", Path: in},
			Output: config.Output{Kind: "memory", Encoding: "klingon"}},
	}
	for name, e := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			sum, err := Run(context.Background(), config.Config{Job: "j", Exports: []config.Export{e}})
			if err == nil || sum.Results[0].Err == nil {
				t.Fatalf("expected failure, got %+v", sum)
			}
		})
	}
}

func TestRun_CanceledContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := writeFile(t, dir, "in.jsonl", "{\"a\":1}\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, config.Config{Job: "j", Exports: []config.Export{jsonlExport("x", in, filepath.Join(dir, "x.csv"))}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
