package config

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "exports[1].output.path").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether issues contains at least one SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var (
	knownSourceKinds = map[string]struct{}{"sql": {}, "jsonl": {}}
	knownDrivers     = map[string]struct{}{"postgres": {}, "mssql": {}, "mysql": {}, "sqlite": {}}
	knownOutputKinds = map[string]struct{}{"file": {}, "stdout": {}, "memory": {}}
	knownDelimiters  = map[string]struct{}{"": {}, ",": {}, ";": {}}
)

// Validate performs static checks over c and returns every issue found. It
// does not mutate c.
func Validate(c Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	if c.Runtime.Concurrency < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.concurrency",
			Message:  "concurrency must not be negative",
		})
	}
	if len(c.Exports) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "exports",
			Message:  "at least one export is required",
		})
	}

	names := map[string]int{}
	for i, e := range c.Exports {
		base := fmt.Sprintf("exports[%d]", i)
		if strings.TrimSpace(e.Name) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".name",
				Message:  "export name must not be empty",
			})
		} else if j, dup := names[e.Name]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".name",
				Message:  fmt.Sprintf("duplicate export name %q (also exports[%d])", e.Name, j),
			})
		} else {
			names[e.Name] = i
		}
		issues = append(issues, validateSource(base+".source", e.Source)...)
		issues = append(issues, validateOutput(base+".output", e.Output)...)
	}

	issues = append(issues, validateFilePaths(c.Exports)...)
	return issues
}

func validateSource(path string, s Source) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".kind",
			Message:  "source kind must not be empty",
		})
	}
	if _, ok := knownSourceKinds[s.Kind]; !ok {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".kind",
			Message:  fmt.Sprintf("unknown source kind %q", s.Kind),
		})
	}

	switch s.Kind {
	case "sql":
		if _, ok := knownDrivers[s.Driver]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".driver",
				Message:  fmt.Sprintf("unknown driver %q; want one of postgres, mssql, mysql, sqlite", s.Driver),
			})
		}
		if strings.TrimSpace(s.DSN) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".dsn",
				Message:  "sql source requires a non-empty dsn",
			})
		}
		if strings.TrimSpace(s.Query) == "" && s.Options.String("table", "") == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".query",
				Message:  "sql source requires a query or options.table",
			})
		}
	case "jsonl":
		if strings.TrimSpace(s.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".path",
				Message:  "jsonl source requires a non-empty path",
			})
		}
	}
	return issues
}

func validateOutput(path string, o Output) []Issue {
	var issues []Issue

	if _, ok := knownOutputKinds[o.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".kind",
			Message:  fmt.Sprintf("unknown output kind %q; want one of file, stdout, memory", o.Kind),
		})
	}
	if o.Kind == "file" && strings.TrimSpace(o.Path) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".path",
			Message:  "file output requires a non-empty path",
		})
	}
	if _, ok := knownDelimiters[o.Delimiter]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".delimiter",
			Message:  fmt.Sprintf("delimiter %q is not supported; use \",\" or \";\"", o.Delimiter),
		})
	}
	if o.Encoding != "" {
		if _, err := htmlindex.Get(o.Encoding); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".encoding",
				Message:  fmt.Sprintf("unknown encoding %q", o.Encoding),
			})
		}
	}
	if o.Kind == "memory" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     path + ".kind",
			Message:  "memory output is discarded when the run ends",
		})
	}
	return issues
}

// validateFilePaths rejects two exports writing the same file; each sink
// must be owned by exactly one parse.
func validateFilePaths(exports []Export) []Issue {
	var issues []Issue
	seen := map[string]int{}
	for i, e := range exports {
		if e.Output.Kind != "file" || e.Output.Path == "" {
			continue
		}
		if j, dup := seen[e.Output.Path]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("exports[%d].output.path", i),
				Message:  fmt.Sprintf("path %q is already written by exports[%d]", e.Output.Path, j),
			})
			continue
		}
		seen[e.Output.Path] = i
	}
	return issues
}
