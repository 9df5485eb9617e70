package parser

import (
	"csvexport/internal/introspect"
	"csvexport/internal/render"
)

// Error kinds returned by Parse. Match them with errors.Is.
var (
	// ErrInvalidArgument: nil, empty or non-slice batch, or a nil first record.
	ErrInvalidArgument = introspect.ErrInvalidArgument
	// ErrExtraction: a column value could not be read from a record.
	ErrExtraction = introspect.ErrExtraction
	// ErrSinkIO: obtaining, writing, flushing or closing the sink failed.
	ErrSinkIO = render.ErrSinkIO
)
