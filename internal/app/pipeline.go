package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Multi-item writes run as staged pipelines so state is only touched once the
// incoming data has been checked:
//
//	validate -> perform -> verify -> archive -> respond
//
// Validate rejects the input as a whole. Perform builds the new state without
// publishing it. Verify checks the built state. Archive persists and publishes
// it. Respond shapes the result for the caller. A failure in any stage stops
// the pipeline and later stages never run.

// Stage names one step of a pipeline.
type Stage string

const (
	StageValidate Stage = "validate"
	StagePerform  Stage = "perform"
	StageVerify   Stage = "verify"
	StageArchive  Stage = "archive"
	StageRespond  Stage = "respond"
)

// StageError records the pipeline and stage an error came from.
type StageError struct {
	Pipeline string
	Stage    Stage
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Pipeline, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage a pipeline error came from.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}

	return "", false
}

// Pipeline describes the stages of one operation. Nil stages are skipped and
// pass the zero value on.
type Pipeline[I, P, V, O any] struct {
	Name     string
	Validate func(ctx context.Context, input I) error
	Perform  func(ctx context.Context, input I) (P, error)
	Verify   func(ctx context.Context, input I, performed P) (V, error)
	Archive  func(ctx context.Context, input I, verified V) error
	Respond  func(ctx context.Context, input I, verified V) (O, error)
}

// Run executes p against input, logging each stage at debug level.
func Run[I, P, V, O any](ctx context.Context, logger *slog.Logger, p Pipeline[I, P, V, O], input I) (O, error) {
	var (
		zero      O
		performed P
		verified  V
		err       error
	)

	logger = logger.With(slog.String("pipeline", p.Name))
	start := time.Now()

	fail := func(stage Stage, err error) (O, error) {
		logger.WarnContext(ctx, "pipeline stage failed",
			slog.String("stage", string(stage)),
			slog.Any("error", err),
		)
		return zero, &StageError{Pipeline: p.Name, Stage: stage, Err: err}
	}

	if p.Validate != nil {
		logger.DebugContext(ctx, "validating")
		if err = p.Validate(ctx, input); err != nil {
			return fail(StageValidate, err)
		}
	}

	if p.Perform != nil {
		logger.DebugContext(ctx, "performing")
		if performed, err = p.Perform(ctx, input); err != nil {
			return fail(StagePerform, err)
		}
	}

	if p.Verify != nil {
		logger.DebugContext(ctx, "verifying")
		if verified, err = p.Verify(ctx, input, performed); err != nil {
			return fail(StageVerify, err)
		}
	}

	if p.Archive != nil {
		logger.DebugContext(ctx, "archiving")
		if err = p.Archive(ctx, input, verified); err != nil {
			return fail(StageArchive, err)
		}
	}

	result := zero
	if p.Respond != nil {
		if result, err = p.Respond(ctx, input, verified); err != nil {
			return fail(StageRespond, err)
		}
	}

	logger.DebugContext(ctx, "pipeline completed", slog.Duration("duration", time.Since(start)))

	return result, nil
}
