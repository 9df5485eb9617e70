package sink

import (
	"fmt"
	"sort"
	"sync"

	"csvexport/internal/config"
)

// Builder turns an output configuration into a Factory.
type Builder func(out config.Output) (Factory, error)

var (
	regMu    sync.RWMutex
	builders = map[string]Builder{}
)

// Register registers (or replaces) the Builder for kind.
func Register(kind string, b Builder) {
	regMu.Lock()
	defer regMu.Unlock()
	builders[kind] = b
}

// Kinds lists the registered output kinds in sorted order.
func Kinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(builders))
	for k := range builders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Open builds the Factory for out, applying the Encode and Checksum wrappers
// it asks for. Checksum is applied innermost so the digest covers the bytes
// that actually reach the destination.
func Open(out config.Output) (Factory, error) {
	regMu.RLock()
	b, ok := builders[out.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no sink registered for output.kind=%q", out.Kind)
	}
	f, err := b(out)
	if err != nil {
		return nil, err
	}
	if out.Checksum {
		f = Checksum(f)
	}
	return Encode(f, EncodeOptions{
		Charset:   out.Encoding,
		Normalize: out.Normalize,
		Replace:   out.Options.Bool("replace_unsupported", false),
	})
}

func init() {
	Register("file", func(out config.Output) (Factory, error) {
		if out.Path == "" {
			return nil, fmt.Errorf("file sink: path must not be empty")
		}
		return File(out.Path, out.Options.Bool("append", false)), nil
	})
	Register("stdout", func(config.Output) (Factory, error) {
		return Stdout(), nil
	})
	Register("memory", func(config.Output) (Factory, error) {
		return Memory(), nil
	})
}
