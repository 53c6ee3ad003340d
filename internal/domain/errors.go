package domain

import "errors"

// Stage errors. Callers wrap the cause together with one of these so the
// session boundary can tell them apart with errors.Is.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrExtraction        = errors.New("text extraction failed")
	ErrEmbedding         = errors.New("embedding failed")
	ErrGeneration        = errors.New("answer generation failed")
)
