package sink

import (
	"fmt"
	"os"
	"path/filepath"
)

// File returns a Factory that creates (or truncates) path, creating parent
// directories as needed. With appendMode the file is opened for appending
// instead. Flush syncs the file to disk.
func File(path string, appendMode bool) Factory {
	return func() (Sink, error) {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create dir for %s: %w", path, err)
			}
		}
		flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		if appendMode {
			flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		}
		f, err := os.OpenFile(path, flag, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return &fileSink{File: f}, nil
	}
}

// Stdout returns a Factory writing to the process's standard output.
func Stdout() Factory { return Writer(os.Stdout) }

type fileSink struct {
	*os.File
}

func (f *fileSink) Flush() error { return f.Sync() }
