// Package stages implements the enrichment steps that fill a record from a
// normalized document.
package stages

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackzampolin/papercheck/internal/document"
	"github.com/jackzampolin/papercheck/internal/record"
)

// Stage names.
const (
	NameExtract  = "extract"
	NameClassify = "classify"
	NameMistakes = "mistakes"
)

// DefaultOrder is the default enrichment chain.
var DefaultOrder = []string{NameExtract, NameClassify, NameMistakes}

// Stage is one enrichment step. Stages run in declared order over a single
// record; a stage may read the fields written by the stages before it.
type Stage interface {
	Name() string
	// Dependencies names the stages whose fields this stage reads.
	Dependencies() []string
	Apply(ctx context.Context, rec *record.Record, in document.Input) error
}

var (
	// ErrPrecondition is returned when a field the stage needs is missing.
	ErrPrecondition = errors.New("stage precondition not met")

	// ErrMisaligned is returned when OCR texts and boxes differ in length.
	ErrMisaligned = errors.New("texts and boxes are not index-aligned")

	// ErrInvalidSubject is returned for a subject outside the allowed set.
	ErrInvalidSubject = errors.New("subject not recognized")
)

// StageError abandons the current document.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// PageError is a failure isolated to one page.
type PageError struct {
	Page int // 1-based
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

func stageError(stage string, err error) error {
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}
