package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldGeneration is the standardized structured logging key for pipeline run generations.
	FieldGeneration = "generation"
	// FieldSourceRef is the standardized structured logging key for batch source references.
	FieldSourceRef = "source_ref"
	// FieldAttendee is the standardized structured logging key for attendee indexes within a batch.
	FieldAttendee = "attendee_index"
	// FieldIdentity is the standardized structured logging key for attendee identity keys.
	FieldIdentity = "identity"
	// FieldEventType is the standardized structured logging key for machine-readable event categories.
	FieldEventType = "event_type"
	// FieldErrorHint is the standardized structured logging key for operator guidance.
	FieldErrorHint = "error_hint"
)

type contextKey int

const (
	stageContextKey contextKey = iota
	generationContextKey
	sourceRefContextKey
)

// WithStage annotates a context with the active pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, stageContextKey, stage)
}

// StageFromContext returns the pipeline stage stored in the context, if any.
func StageFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	stage, ok := ctx.Value(stageContextKey).(string)
	return stage, ok && stage != ""
}

// WithRun annotates a context with the pipeline run generation and batch source reference.
func WithRun(ctx context.Context, generation, sourceRef string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, generationContextKey, generation)
	return context.WithValue(ctx, sourceRefContextKey, sourceRef)
}

// RunFromContext returns the run generation stored in the context, if any.
func RunFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	gen, ok := ctx.Value(generationContextKey).(string)
	return gen, ok && gen != ""
}

// SourceRefFromContext returns the batch source reference stored in the context, if any.
func SourceRefFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	ref, ok := ctx.Value(sourceRefContextKey).(string)
	return ref, ok && ref != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if stage, ok := StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if gen, ok := RunFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldGeneration, gen))
	}
	if ref, ok := SourceRefFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSourceRef, ref))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
