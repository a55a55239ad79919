// Package executor runs one logical bridge operation through the full safety
// pipeline: validation, rate check, primary automation attempt with a parse
// cascade, secondary fallback, and audit recording.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"safe-apple-bridge/internal/config"
	"safe-apple-bridge/internal/monitor"
	"safe-apple-bridge/internal/security"
)

// Stage names where in the pipeline a terminal state was reached.
type Stage string

const (
	StageValidate     Stage = "validate"
	StageRateCheck    Stage = "rate_check"
	StagePrimary      Stage = "primary"
	StagePrimaryParse Stage = "primary_parse"
	StageSecondary    Stage = "secondary"
)

// Status classifies the terminal outcome of an operation.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusEmpty       Status = "empty"
	StatusInvalid     Status = "invalid"
	StatusRateLimited Status = "rate_limited"
	StatusFailed      Status = "failed"
)

// Outcome is the terminal result of one operation run.
type Outcome struct {
	Status  Status
	Records []Record
	// Raw preserves the primary path's unparsed output when both paths
	// exhaust, so diagnosis never loses it.
	Raw   string
	Stage Stage
	Err   error
}

// OperationError reports where an operation failed.
type OperationError struct {
	Op    string
	Stage Stage
	Err   error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %s stage: %s", e.Op, e.Stage, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Operation describes one logical operation. The catalog in internal/apps
// builds these; the executor owns the control flow.
type Operation struct {
	Name  string
	Class security.Class
	User  string

	// Validate runs the relevant input validators. A failure terminates
	// before any attempt.
	Validate func() error

	// Primary constructs and runs the scripted automation path, returning
	// raw text. Its output goes through the parse cascade.
	Primary func(ctx context.Context) (string, error)

	// Secondary is the object-automation path returning already-structured
	// records. Nil means the operation has no fallback.
	Secondary func(ctx context.Context) ([]Record, error)

	// RequiredKeys gates the record scan and raw-dump cascade rules.
	RequiredKeys []string

	// Defaults supplies per-field fallback values applied at projection.
	Defaults map[string]string

	// Limit truncates the assembled result list. Zero means no truncation.
	// Callers sanitize it first; truncation happens at assembly, never
	// inside the parse cascade.
	Limit int

	// Details are recorded in the audit entry. Content values should be
	// passed through security.Preview by the caller.
	Details map[string]string
}

// Executor orchestrates operations. All collaborators are injected; no
// package-level state.
type Executor struct {
	cfg     *config.Config
	limits  *security.Limiters
	audit   *security.AuditLogger
	metrics *monitor.Metrics
	tracer  *monitor.Tracer
}

func New(cfg *config.Config, limits *security.Limiters, audit *security.AuditLogger, metrics *monitor.Metrics) *Executor {
	return &Executor{
		cfg:     cfg,
		limits:  limits,
		audit:   audit,
		metrics: metrics,
		tracer:  monitor.NewTracer(),
	}
}

// Run drives one operation through the pipeline:
//
//	VALIDATING -> RATE_CHECK -> PRIMARY_ATTEMPT -> PRIMARY_PARSE
//	    -> (done | SECONDARY_ATTEMPT) -> SECONDARY_PARSE -> (done | FAILED)
func (e *Executor) Run(ctx context.Context, op Operation) Outcome {
	opID := uuid.New().String()
	logger := log.With().
		Str("op_id", opID).
		Str("operation", op.Name).
		Logger()

	ctx, span := e.tracer.StartSpan(ctx, op.Name,
		monitor.AttrOperationID.String(opID),
		monitor.AttrOperation.String(op.Name),
	)
	defer span.End()

	start := time.Now()

	// VALIDATING. A failure here is a caller-input problem, not an
	// execution problem: no attempt, no audit entry.
	if op.Validate != nil {
		if err := op.Validate(); err != nil {
			logger.Debug().Err(err).Msg("operation input rejected")
			if ve, ok := err.(*security.ValidationError); ok && e.metrics != nil {
				e.metrics.ValidationErrors.WithLabelValues(ve.Field).Inc()
			}
			e.recordMetrics(op.Name, StatusInvalid, start)
			span.SetAttributes(monitor.AttrStage.String(string(StageValidate)))
			return Outcome{Status: StatusInvalid, Stage: StageValidate, Err: err}
		}
	}

	// RATE_CHECK. Strictly before any attempt, so a denial has no partial
	// side effect.
	if e.cfg.Security.EnableRateLimiting {
		if !e.limits.Allow(op.Class) {
			logger.Warn().Str("class", string(op.Class)).Msg("operation rate limited")
			if e.metrics != nil {
				e.metrics.RecordRateLimitDenial(string(op.Class))
			}
			e.recordMetrics(op.Name, StatusRateLimited, start)
			span.SetAttributes(monitor.AttrStage.String(string(StageRateCheck)))
			return Outcome{
				Status: StatusRateLimited,
				Stage:  StageRateCheck,
				Err:    security.ErrRateLimited,
			}
		}
	}

	if e.metrics != nil {
		e.metrics.ActiveOperations.Inc()
		defer e.metrics.ActiveOperations.Dec()
	}

	// PRIMARY_ATTEMPT. Errors here are absorbed, not terminal: the primary
	// path runs first because it is typically faster and richer, not
	// because it is more reliable.
	var primaryErr error
	var raw string
	if op.Primary != nil {
		raw, primaryErr = op.Primary(ctx)
	} else {
		primaryErr = fmt.Errorf("operation has no primary path")
	}

	if primaryErr == nil {
		if e.metrics != nil {
			e.metrics.OutputSizeBytes.Observe(float64(len(raw)))
		}
		if outcome, done := e.parsePrimary(op, raw, logger); done {
			e.finish(ctx, op, &outcome, opID, start, logger)
			return outcome
		}
	} else {
		logger.Warn().Err(primaryErr).Msg("primary attempt failed, falling back")
	}

	// SECONDARY_ATTEMPT. The object-automation path returns structured
	// records; its "parse" is just field defaulting. Any error is terminal.
	if e.metrics != nil {
		e.metrics.FallbacksTotal.WithLabelValues(op.Name).Inc()
	}

	if op.Secondary == nil {
		outcome := Outcome{
			Status: StatusFailed,
			Raw:    raw,
			Stage:  StagePrimary,
			Err:    e.terminalError(op, StagePrimary, primaryErr, raw),
		}
		e.finish(ctx, op, &outcome, opID, start, logger)
		return outcome
	}

	recs, secondaryErr := op.Secondary(ctx)
	if secondaryErr != nil {
		outcome := Outcome{
			Status: StatusFailed,
			Raw:    raw,
			Stage:  StageSecondary,
			Err:    e.terminalError(op, StageSecondary, secondaryErr, raw),
		}
		e.finish(ctx, op, &outcome, opID, start, logger)
		return outcome
	}

	outcome := e.assemble(op, recs, StageSecondary)
	e.finish(ctx, op, &outcome, opID, start, logger)
	return outcome
}

// parsePrimary runs the cascade over the primary output. done=false means the
// text was unusable and the secondary path should run.
func (e *Executor) parsePrimary(op Operation, raw string, logger zerolog.Logger) (Outcome, bool) {
	if isEmptyOutput(raw) {
		if e.metrics != nil {
			e.metrics.RecordParseOutcome("empty")
		}
		return Outcome{Status: StatusEmpty, Stage: StagePrimaryParse}, true
	}

	recs, rule := parseCascade(raw, op.RequiredKeys)
	if e.metrics != nil {
		e.metrics.RecordParseOutcome(string(rule))
	}
	if rule == RuleNone {
		logger.Warn().Int("raw_bytes", len(raw)).Msg("no cascade rule matched primary output")
		return Outcome{}, false
	}

	logger.Debug().Str("rule", string(rule)).Int("records", len(recs)).Msg("primary output parsed")
	return e.assemble(op, recs, StagePrimaryParse), true
}

// assemble projects field defaults and truncates to the caller's limit. This
// is the only place result lists are truncated.
func (e *Executor) assemble(op Operation, recs []Record, stage Stage) Outcome {
	projected := projectRecords(recs, op.Defaults)
	if op.Limit > 0 && len(projected) > op.Limit {
		projected = projected[:op.Limit]
	}
	if len(projected) == 0 {
		return Outcome{Status: StatusEmpty, Stage: stage}
	}
	return Outcome{Status: StatusSuccess, Records: projected, Stage: stage}
}

// terminalError builds the error surfaced when both paths exhaust. The
// unparsed primary output is folded into the cause so it reaches callers and
// the audit entry, never discarded.
func (e *Executor) terminalError(op Operation, stage Stage, cause error, raw string) error {
	if cause == nil {
		cause = fmt.Errorf("primary output unparseable")
	}
	if raw != "" {
		cause = fmt.Errorf("%w (primary output: %q)", cause, security.Preview(raw))
	}
	return &OperationError{Op: op.Name, Stage: stage, Err: cause}
}

// finish records the audit entry, metrics, and span attributes for a
// terminal state.
func (e *Executor) finish(ctx context.Context, op Operation, outcome *Outcome, opID string, start time.Time, logger zerolog.Logger) {
	duration := time.Since(start)
	e.recordMetrics(op.Name, outcome.Status, start)

	monitor.SpanFromContext(ctx).SetAttributes(
		monitor.AttrStage.String(string(outcome.Stage)),
		monitor.AttrRecordCount.Int(len(outcome.Records)),
	)

	success := outcome.Status == StatusSuccess || outcome.Status == StatusEmpty
	if success {
		logger.Info().
			Str("status", string(outcome.Status)).
			Int("records", len(outcome.Records)).
			Dur("duration", duration).
			Msg("operation completed")
	} else {
		logger.Error().
			Err(outcome.Err).
			Str("stage", string(outcome.Stage)).
			Dur("duration", duration).
			Msg("operation failed")
	}

	if !e.cfg.Security.EnableAuditLogging {
		return
	}

	entry := security.AuditEntry{
		Operation: op.Name,
		User:      op.User,
		Details:   auditDetails(op, opID),
		Success:   success,
	}
	if outcome.Err != nil {
		entry.Error = outcome.Err.Error()
	}
	e.audit.Log(entry)
}

func auditDetails(op Operation, opID string) map[string]string {
	details := make(map[string]string, len(op.Details)+1)
	for k, v := range op.Details {
		details[k] = security.Preview(v)
	}
	details["op_id"] = opID
	return details
}

func (e *Executor) recordMetrics(name string, status Status, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordOperation(name, string(status), time.Since(start).Seconds())
}

func isEmptyOutput(raw string) bool {
	switch trimmed := strings.TrimSpace(raw); trimmed {
	case "", "{}", "[]", "missing value":
		return true
	default:
		return false
	}
}
