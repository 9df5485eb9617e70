package source

import (
	"context"
	"strings"
	"testing"

	"csvexport/internal/config"
	"csvexport/internal/introspect"
	"csvexport/internal/record"
)

func TestRegisterAndOpen(t *testing.T) {
	t.Parallel()

	schema, err := record.NewSchema([]record.Field{{Name: "n", Kind: introspect.Integer}})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}

	var gotCfg config.Source
	Register("test-static", func(cfg config.Source) (Source, error) {
		gotCfg = cfg
		return Func(func(context.Context) (*record.Rows, error) {
			rows := schema.NewRows(1)
			return rows, rows.Append(1)
		}), nil
	})

	src, err := Open(config.Source{Kind: "test-static", Path: "p"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if gotCfg.Path != "p" {
		t.Fatalf("builder cfg = %+v", gotCfg)
	}
	rows, err := src.Load(context.Background())
	if err != nil || rows.Len() != 1 {
		t.Fatalf("Load = %v rows, %v", rows, err)
	}

	found := false
	for _, k := range Kinds() {
		if k == "test-static" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Kinds() = %v, missing test-static", Kinds())
	}
}

func TestOpen_Unknown(t *testing.T) {
	t.Parallel()

	_, err := Open(config.Source{Kind: "ftp"})
	if err == nil || !strings.Contains(err.Error(), `source.kind="ftp"`) {
		t.Fatalf("err = %v", err)
	}
}
