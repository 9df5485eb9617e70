package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeJob(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "job.json")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func noEnv(string) string { return "" }

// run swaps the standard logger's output; these tests stay sequential.

func TestRun_ExportsFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.jsonl")
	if err := os.WriteFile(in, []byte("{\"brand\":\"Škoda\",\"seats\":5}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := filepath.Join(dir, "out.csv")
	job := writeJob(t, dir, `{
  "job": "test",
  "exports": [
    {"name": "v", "source": {"kind": "jsonl", "path": "`+filepath.ToSlash(in)+`"},
     "output": {"kind": "file", "path": "`+filepath.ToSlash(out)+`", "delimiter": ";"}}
  ]
}`)

	var stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", job, "-metrics-backend", "none", "-v"}, &stderr, noEnv)
	if code != 0 {
		t.Fatalf("exit = %d, stderr:\n%s", code, stderr.String())
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got, want := string(b), "brand;seats;\nŠkoda;5;"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
	if !strings.Contains(stderr.String(), "export: name=v rows=1") {
		t.Fatalf("missing export log line:\n%s", stderr.String())
	}
}

func TestRun_ValidateOnly(t *testing.T) {
	dir := t.TempDir()
	job := writeJob(t, dir, `{"job": "test", "exports": [
  {"name": "v", "source": {"kind": "jsonl", "path": "in.jsonl"}, "output": {"kind": "memory"}}]}`)

	var stderr bytes.Buffer
	if code := run(context.Background(), []string{"-config", job, "-validate"}, &stderr, noEnv); code != 0 {
		t.Fatalf("exit = %d, stderr:\n%s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "warning: exports[0].output.kind: memory output is discarded") {
		t.Fatalf("missing warning:\n%s", stderr.String())
	}
	if !strings.Contains(stderr.String(), "configuration is valid") {
		t.Fatalf("missing success line:\n%s", stderr.String())
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	job := writeJob(t, dir, `{"job": "", "exports": []}`)

	var stderr bytes.Buffer
	if code := run(context.Background(), []string{"-config", job}, &stderr, noEnv); code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	for _, want := range []string{"error: job: job must not be empty", "error: exports: at least one export is required"} {
		if !strings.Contains(stderr.String(), want) {
			t.Fatalf("stderr missing %q:\n%s", want, stderr.String())
		}
	}
}

func TestRun_Failures(t *testing.T) {
	dir := t.TempDir()

	var stderr bytes.Buffer
	if code := run(context.Background(), []string{"-config", filepath.Join(dir, "nope.json")}, &stderr, noEnv); code != 1 {
		t.Fatalf("missing config: exit = %d, want 1", code)
	}
	if code := run(context.Background(), []string{"-bogus"}, &stderr, noEnv); code != 2 {
		t.Fatalf("bad flag: exit = %d, want 2", code)
	}

	job := writeJob(t, dir, `{"job": "test", "exports": [
  {"name": "v", "source": {"kind": "jsonl", "path": "`+filepath.ToSlash(filepath.Join(dir, "missing.jsonl"))+`"}, "output": {"kind": "stdout"}}]}`)
	stderr.Reset()
	if code := run(context.Background(), []string{"-config", job}, &stderr, noEnv); code != 1 {
		t.Fatalf("failed export: exit = %d, want 1\n%s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), `export "v"`) {
		t.Fatalf("stderr missing export error:\n%s", stderr.String())
	}
}

func TestPick(t *testing.T) {
	if got := pick("", "env", "def"); got != "env" {
		t.Fatalf("pick = %q", got)
	}
	if got := pick("", "", ""); got != "" {
		t.Fatalf("pick = %q", got)
	}
}
