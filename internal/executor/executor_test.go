package executor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"safe-apple-bridge/internal/config"
	"safe-apple-bridge/internal/security"
)

func testExecutor(t *testing.T) (*Executor, *security.AuditLogger) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Security.EnableRateLimiting = true
	cfg.Security.EnableAuditLogging = true
	audit := security.NewAuditLogger()
	limits := security.NewLimiters(cfg.Security.RateLimits)
	return New(cfg, limits, audit, nil), audit
}

func searchOp(name string) Operation {
	return Operation{
		Name:         name,
		Class:        security.ClassSearch,
		RequiredKeys: []string{"subject", "sender", "date"},
		Defaults:     map[string]string{"subject": "(no subject)"},
	}
}

func TestRunStructuredPrimary(t *testing.T) {
	e, audit := testExecutor(t)

	secondaryCalled := false
	op := searchOp("mail.search")
	op.Primary = func(ctx context.Context) (string, error) {
		return `[{"subject":"a","sender":"x@y.com","date":"d1"},
			{"subject":"b","sender":"x@y.com","date":"d2"},
			{"subject":"c","sender":"x@y.com","date":"d3"}]`, nil
	}
	op.Secondary = func(ctx context.Context) ([]Record, error) {
		secondaryCalled = true
		return nil, nil
	}

	out := e.Run(context.Background(), op)
	if out.Status != StatusSuccess {
		t.Fatalf("Status = %q (%v), want success", out.Status, out.Err)
	}
	if len(out.Records) != 3 {
		t.Errorf("records = %d, want 3", len(out.Records))
	}
	if secondaryCalled {
		t.Error("secondary ran although primary parsed")
	}
	if audit.Len() != 1 {
		t.Fatalf("audit entries = %d, want 1", audit.Len())
	}
	if e := audit.Recent(1)[0]; !e.Success || e.Operation != "mail.search" {
		t.Errorf("audit entry = %+v", e)
	}
}

func TestRunRecordScanPrimary(t *testing.T) {
	e, _ := testExecutor(t)

	op := searchOp("mail.search")
	op.Primary = func(ctx context.Context) (string, error) {
		return `{subject:"one", sender:"a@b.com", date:"d1"}, {subject:"two", sender:"c@d.com", date:"d2"}`, nil
	}

	out := e.Run(context.Background(), op)
	if out.Status != StatusSuccess {
		t.Fatalf("Status = %q (%v), want success", out.Status, out.Err)
	}
	if len(out.Records) != 2 {
		t.Errorf("records = %d, want 2", len(out.Records))
	}
	if out.Records[0]["subject"] != "one" {
		t.Errorf("subject = %q", out.Records[0]["subject"])
	}
}

func TestRunSecondaryRescuesPrimaryFailure(t *testing.T) {
	e, audit := testExecutor(t)

	op := searchOp("contacts.search")
	op.Primary = func(ctx context.Context) (string, error) {
		return "", errors.New("osascript exited 1")
	}
	op.Secondary = func(ctx context.Context) ([]Record, error) {
		return []Record{{"subject": "rescued", "sender": "s@t.com", "date": "d"}}, nil
	}

	out := e.Run(context.Background(), op)
	if out.Status != StatusSuccess {
		t.Fatalf("Status = %q (%v), want success", out.Status, out.Err)
	}
	if out.Stage != StageSecondary {
		t.Errorf("Stage = %q, want %q", out.Stage, StageSecondary)
	}
	if !audit.Recent(1)[0].Success {
		t.Error("audit Success = false, want true when fallback rescues")
	}
}

func TestRunBothPathsFail(t *testing.T) {
	e, audit := testExecutor(t)

	op := searchOp("mail.search")
	op.Primary = func(ctx context.Context) (string, error) {
		return "", errors.New("primary broke")
	}
	op.Secondary = func(ctx context.Context) ([]Record, error) {
		return nil, errors.New("secondary broke too")
	}

	out := e.Run(context.Background(), op)
	if out.Status != StatusFailed {
		t.Fatalf("Status = %q, want failed", out.Status)
	}
	if out.Stage != StageSecondary {
		t.Errorf("Stage = %q, want %q", out.Stage, StageSecondary)
	}
	var opErr *OperationError
	if !errors.As(out.Err, &opErr) {
		t.Fatalf("Err %T is not *OperationError", out.Err)
	}
	entry := audit.Recent(1)[0]
	if entry.Success {
		t.Error("audit Success = true, want false")
	}
	if !strings.Contains(entry.Error, "secondary broke too") {
		t.Errorf("audit Error = %q, want secondary error text", entry.Error)
	}
}

func TestRunSecondaryFailureKeepsPrimaryOutput(t *testing.T) {
	e, audit := testExecutor(t)

	const noise = "garbled interpreter noise 0x1474"
	op := searchOp("mail.search")
	op.Primary = func(ctx context.Context) (string, error) {
		return noise, nil
	}
	op.Secondary = func(ctx context.Context) ([]Record, error) {
		return nil, errors.New("jxa path broke")
	}

	out := e.Run(context.Background(), op)
	if out.Status != StatusFailed || out.Stage != StageSecondary {
		t.Fatalf("Status/Stage = %q/%q, want failed/secondary", out.Status, out.Stage)
	}
	if out.Raw != noise {
		t.Errorf("Raw = %q, want primary output preserved", out.Raw)
	}
	if out.Err == nil || !strings.Contains(out.Err.Error(), noise) {
		t.Errorf("Err = %v, want primary output in error text", out.Err)
	}
	entry := audit.Recent(1)[0]
	if !strings.Contains(entry.Error, noise) {
		t.Errorf("audit Error = %q, want primary output in error text", entry.Error)
	}
	if !strings.Contains(entry.Error, "jxa path broke") {
		t.Errorf("audit Error = %q, want secondary error text", entry.Error)
	}
}

func TestRunUnparseableWithoutSecondary(t *testing.T) {
	e, _ := testExecutor(t)

	op := searchOp("messages.recent")
	op.Primary = func(ctx context.Context) (string, error) {
		return "execution error: something vague", nil
	}

	out := e.Run(context.Background(), op)
	if out.Status != StatusFailed {
		t.Fatalf("Status = %q, want failed", out.Status)
	}
	if out.Raw != "execution error: something vague" {
		t.Errorf("Raw = %q, want primary output preserved", out.Raw)
	}
}

func TestRunEmptyOutput(t *testing.T) {
	e, audit := testExecutor(t)

	for _, raw := range []string{"", "{}", "[]", "missing value", "  \n"} {
		op := searchOp("mail.unread")
		op.Primary = func(ctx context.Context) (string, error) { return raw, nil }
		op.Secondary = func(ctx context.Context) ([]Record, error) {
			t.Fatalf("secondary ran for empty output %q", raw)
			return nil, nil
		}

		out := e.Run(context.Background(), op)
		if out.Status != StatusEmpty {
			t.Errorf("Status for %q = %q, want empty", raw, out.Status)
		}
	}
	if audit.Len() == 0 {
		t.Error("empty outcomes produced no audit entries")
	}
	if !audit.Recent(1)[0].Success {
		t.Error("empty outcome audited as failure")
	}
}

func TestRunValidationFailure(t *testing.T) {
	e, audit := testExecutor(t)

	op := searchOp("mail.search")
	op.Validate = func() error {
		return &security.ValidationError{Field: "search_query", Message: "must not be empty"}
	}
	op.Primary = func(ctx context.Context) (string, error) {
		t.Fatal("primary ran despite validation failure")
		return "", nil
	}

	out := e.Run(context.Background(), op)
	if out.Status != StatusInvalid {
		t.Fatalf("Status = %q, want invalid", out.Status)
	}
	if !security.IsValidation(out.Err) {
		t.Errorf("Err = %v, want validation error", out.Err)
	}
	if audit.Len() != 0 {
		t.Errorf("audit entries = %d, want 0 for rejected input", audit.Len())
	}
}

func TestRunRateLimited(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Security.EnableRateLimiting = true
	cfg.Security.RateLimits.Write = 1
	audit := security.NewAuditLogger()
	e := New(cfg, security.NewLimiters(cfg.Security.RateLimits), audit, nil)

	op := Operation{
		Name:  "reminders.create",
		Class: security.ClassWrite,
		Primary: func(ctx context.Context) (string, error) {
			return `{status:"created", name:"x"}`, nil
		},
		RequiredKeys: []string{"status", "name"},
	}

	if out := e.Run(context.Background(), op); out.Status != StatusSuccess {
		t.Fatalf("first run Status = %q (%v)", out.Status, out.Err)
	}
	out := e.Run(context.Background(), op)
	if out.Status != StatusRateLimited {
		t.Fatalf("second run Status = %q, want rate_limited", out.Status)
	}
	if !errors.Is(out.Err, security.ErrRateLimited) {
		t.Errorf("Err = %v, want ErrRateLimited", out.Err)
	}
}

func TestRunRateLimitingDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Security.EnableRateLimiting = false
	cfg.Security.RateLimits.Search = 1
	e := New(cfg, security.NewLimiters(cfg.Security.RateLimits), security.NewAuditLogger(), nil)

	op := searchOp("mail.search")
	op.Primary = func(ctx context.Context) (string, error) {
		return `[{"subject":"s","sender":"a@b.com","date":"d"}]`, nil
	}

	for i := 0; i < 5; i++ {
		if out := e.Run(context.Background(), op); out.Status != StatusSuccess {
			t.Fatalf("run %d Status = %q, want success with limiting disabled", i, out.Status)
		}
	}
}

func TestRunLimitTruncation(t *testing.T) {
	e, _ := testExecutor(t)

	op := searchOp("mail.search")
	op.Limit = 2
	op.Primary = func(ctx context.Context) (string, error) {
		return `[{"subject":"1","sender":"a","date":"d"},
			{"subject":"2","sender":"a","date":"d"},
			{"subject":"3","sender":"a","date":"d"}]`, nil
	}

	out := e.Run(context.Background(), op)
	if len(out.Records) != 2 {
		t.Errorf("records = %d, want 2 after truncation", len(out.Records))
	}
}

func TestRunAuditDetailsPreviewed(t *testing.T) {
	e, audit := testExecutor(t)

	long := strings.Repeat("x", 80)
	op := searchOp("messages.send")
	op.Details = map[string]string{"content": long}
	op.Primary = func(ctx context.Context) (string, error) {
		return `{status:"sent", subject:"ok", sender:"a", date:"d"}`, nil
	}

	e.Run(context.Background(), op)
	entry := audit.Recent(1)[0]
	if got := entry.Details["content"]; len(got) != 53 || !strings.HasSuffix(got, "...") {
		t.Errorf("detail preview = %q (%d bytes)", got, len(got))
	}
	if entry.Details["op_id"] == "" {
		t.Error("audit details missing op_id")
	}
}

func TestRunAuditDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Security.EnableAuditLogging = false
	audit := security.NewAuditLogger()
	e := New(cfg, security.NewLimiters(cfg.Security.RateLimits), audit, nil)

	op := searchOp("mail.search")
	op.Primary = func(ctx context.Context) (string, error) {
		return `[{"subject":"s","sender":"a","date":"d"}]`, nil
	}

	e.Run(context.Background(), op)
	if audit.Len() != 0 {
		t.Errorf("audit entries = %d, want 0 when disabled", audit.Len())
	}
}
