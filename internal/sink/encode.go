package sink

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// EncodeOptions configures Encode.
type EncodeOptions struct {
	// Charset is a WHATWG encoding label ("utf-8", "windows-1250",
	// "iso-8859-2", ...). Empty means UTF-8.
	Charset string
	// Normalize applies Unicode NFC before encoding.
	Normalize bool
	// Replace substitutes characters the charset cannot represent instead
	// of failing the write.
	Replace bool
}

// Lookup resolves a charset label. It returns a nil Encoding for UTF-8,
// which needs no transcoding.
func Lookup(charset string) (encoding.Encoding, error) {
	label := strings.TrimSpace(charset)
	if label == "" {
		return nil, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", charset, err)
	}
	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return nil, nil
	}
	return enc, nil
}

// Encode wraps f so that UTF-8 output is normalized and/or transcoded before
// reaching the underlying sink. When neither is needed f is returned as is.
func Encode(f Factory, opt EncodeOptions) (Factory, error) {
	enc, err := Lookup(opt.Charset)
	if err != nil {
		return nil, err
	}
	if enc == nil && !opt.Normalize {
		return f, nil
	}

	return func() (Sink, error) {
		inner, err := f()
		if err != nil {
			return nil, err
		}
		var chain []transform.Transformer
		if opt.Normalize {
			chain = append(chain, norm.NFC)
		}
		if enc != nil {
			e := enc.NewEncoder()
			if opt.Replace {
				e = encoding.ReplaceUnsupported(e)
			}
			chain = append(chain, e)
		}
		return &Encoded{inner: inner, w: transform.NewWriter(inner, transform.Chain(chain...))}, nil
	}, nil
}

// Encoded is a Sink that transforms bytes before passing them on.
type Encoded struct {
	inner Sink
	w     *transform.Writer
}

func (s *Encoded) Write(p []byte) (int, error) { return s.w.Write(p) }

// Flush flushes the wrapped sink. Bytes held back by the transformer
// (incomplete sequences) are only written by Close.
func (s *Encoded) Flush() error { return Flush(s.inner) }

func (s *Encoded) Close() error {
	werr := s.w.Close()
	return errors.Join(werr, s.inner.Close())
}

// Unwrap returns the wrapped sink.
func (s *Encoded) Unwrap() Sink { return s.inner }
