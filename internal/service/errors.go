package service

import (
	"errors"
	"fmt"
)

var (
	// ErrModelUnavailable means the language model could not be reached at all
	// (missing credentials, transport failure, non-2xx status).
	ErrModelUnavailable = errors.New("language model unavailable")
	// ErrMalformedOutput means the model answered but the answer was unusable.
	ErrMalformedOutput = errors.New("malformed model output")
	// ErrSearchUnavailable means the search provider could not be reached.
	ErrSearchUnavailable = errors.New("search provider unavailable")
	// ErrNoResults means a search succeeded with zero results.
	ErrNoResults = errors.New("no search results")
)

// Pipeline stages
const (
	StageGenerate  = "generate"
	StageWeb       = "web"
	StageImage     = "image"
	StageReasoning = "reasoning"
	StageChat      = "chat"
)

// EnrichmentError records which stage failed for which candidate
type EnrichmentError struct {
	Stage     string
	Candidate string
	Err       error
}

func (e *EnrichmentError) Error() string {
	if e.Candidate == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Stage, e.Candidate, e.Err)
}

func (e *EnrichmentError) Unwrap() error {
	return e.Err
}

func stageError(stage, candidate string, err error) error {
	if err == nil {
		return nil
	}
	return &EnrichmentError{Stage: stage, Candidate: candidate, Err: err}
}
