package executor

import (
	"strings"
	"testing"
)

var mailKeys = []string{"subject", "sender", "date"}

func TestParseCascadeStructuredArray(t *testing.T) {
	raw := `[
		{"subject":"Status","sender":"a@example.com","date":"2026-08-01"},
		{"Subject":"Re: Status","Sender":"b@example.com","Date":"2026-08-02"}
	]`
	recs, rule := parseCascade(raw, mailKeys)
	if rule != RuleStructured {
		t.Fatalf("rule = %q, want %q", rule, RuleStructured)
	}
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	// Keys are lowercased regardless of source casing.
	if recs[1]["subject"] != "Re: Status" {
		t.Errorf("subject = %q", recs[1]["subject"])
	}
	if recs[1]["sender"] != "b@example.com" {
		t.Errorf("sender = %q", recs[1]["sender"])
	}
}

func TestParseCascadeStructuredSingleObject(t *testing.T) {
	recs, rule := parseCascade(`{"subject":"One","sender":"a@b.com"}`, mailKeys)
	if rule != RuleStructured {
		t.Fatalf("rule = %q, want %q", rule, RuleStructured)
	}
	if len(recs) != 1 || recs[0]["subject"] != "One" {
		t.Errorf("records = %v", recs)
	}
}

func TestParseCascadeRecordScan(t *testing.T) {
	raw := `{subject:"Weekly sync", sender:"carol@example.com", date:"Monday"}, {subject:"Invoice", sender:"dave@example.com", date:"Tuesday"}`
	recs, rule := parseCascade(raw, mailKeys)
	if rule != RuleRecordScan {
		t.Fatalf("rule = %q, want %q", rule, RuleRecordScan)
	}
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if recs[0]["subject"] != "Weekly sync" {
		t.Errorf("subject = %q", recs[0]["subject"])
	}
	if recs[1]["sender"] != "dave@example.com" {
		t.Errorf("sender = %q", recs[1]["sender"])
	}
}

func TestParseCascadeRecordScanQuotedBraces(t *testing.T) {
	// Braces and commas inside quoted values must not split the group.
	raw := `{subject:"a, {b} c", sender:"x@y.com"}`
	recs, rule := parseCascade(raw, mailKeys)
	if rule != RuleRecordScan {
		t.Fatalf("rule = %q, want %q", rule, RuleRecordScan)
	}
	if recs[0]["subject"] != "a, {b} c" {
		t.Errorf("subject = %q", recs[0]["subject"])
	}
}

func TestParseCascadeRecordScanRequiresKnownKey(t *testing.T) {
	// Groups with none of the expected keys are discarded.
	recs, rule := parseCascade(`{foo:"1", bar:"2"}`, mailKeys)
	if rule == RuleRecordScan {
		t.Errorf("rule = %q with records %v, want no record-scan match", rule, recs)
	}
}

func TestParseCascadeRawDump(t *testing.T) {
	raw := "subject Weekly sync from sender carol, date Monday, unbalanced {"
	recs, rule := parseCascade(raw, mailKeys)
	if rule != RuleRawDump {
		t.Fatalf("rule = %q, want %q", rule, RuleRawDump)
	}
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	if recs[0][RecordTypeKey] != RawRecordType {
		t.Errorf("%s = %q", RecordTypeKey, recs[0][RecordTypeKey])
	}
	if recs[0][RawOutputKey] != raw {
		t.Errorf("%s = %q, want full raw text", RawOutputKey, recs[0][RawOutputKey])
	}
}

func TestParseCascadeNone(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"free text", "The operation could not be completed."},
		{"one token only", "subject line without the rest"},
		{"blank", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, rule := parseCascade(tt.raw, mailKeys)
			if rule != RuleNone {
				t.Errorf("rule = %q with %v, want %q", rule, recs, RuleNone)
			}
		})
	}
}

func TestParseCascadeInvalidJSONFallsThrough(t *testing.T) {
	// Starts with '{' but is not valid JSON; the record scan still reads it.
	raw := `{subject:"plain record", sender:"e@f.com"}`
	_, rule := parseCascade(raw, mailKeys)
	if rule != RuleRecordScan {
		t.Errorf("rule = %q, want %q", rule, RuleRecordScan)
	}
}

func TestBraceGroups(t *testing.T) {
	groups := braceGroups(`{a:1}, noise, {b:"x}y", c:{d:2}}`)
	if len(groups) != 2 {
		t.Fatalf("groups = %d (%v), want 2", len(groups), groups)
	}
	if groups[0] != "a:1" {
		t.Errorf("group 0 = %q", groups[0])
	}
	if groups[1] != `b:"x}y", c:{d:2}` {
		t.Errorf("group 1 = %q", groups[1])
	}
}

func TestSplitTopLevel(t *testing.T) {
	parts := splitTopLevel(`a:"1,2", b:{c:3, d:4}, e:5`, ',')
	want := []string{`a:"1,2"`, ` b:{c:3, d:4}`, ` e:5`}
	if len(parts) != len(want) {
		t.Fatalf("parts = %d (%v), want %d", len(parts), parts, len(want))
	}
	for i := range want {
		if parts[i] != want[i] {
			t.Errorf("part %d = %q, want %q", i, parts[i], want[i])
		}
	}
}

func TestProjectRecordsDefaults(t *testing.T) {
	defaults := map[string]string{"subject": "(no subject)", "snippet": ""}
	recs := projectRecords([]Record{
		{"subject": "", "sender": "a@b.com"},
		{"sender": "c@d.com"},
		{"subject": "kept", "sender": "e@f.com"},
	}, defaults)

	if recs[0]["subject"] != "(no subject)" {
		t.Errorf("empty subject = %q, want default", recs[0]["subject"])
	}
	if recs[1]["subject"] != "(no subject)" {
		t.Errorf("missing subject = %q, want default", recs[1]["subject"])
	}
	if recs[2]["subject"] != "kept" {
		t.Errorf("present subject = %q, want kept", recs[2]["subject"])
	}
}

func TestProjectRecordsSkipsDiagnostic(t *testing.T) {
	raw := Record{RawOutputKey: "text", RecordTypeKey: RawRecordType}
	recs := projectRecords([]Record{raw}, map[string]string{"subject": "(no subject)"})
	if _, ok := recs[0]["subject"]; ok {
		t.Error("diagnostic record gained a projected field")
	}
}

func TestProjectRecordsDoesNotMutateInput(t *testing.T) {
	in := []Record{{"sender": "a@b.com"}}
	projectRecords(in, map[string]string{"subject": "(no subject)"})
	if _, ok := in[0]["subject"]; ok {
		t.Error("input record was mutated")
	}
}

func TestCountTokens(t *testing.T) {
	text := "Subject: hi\nDate: today"
	if n := countTokens(text, mailKeys); n != 2 {
		t.Errorf("countTokens = %d, want 2", n)
	}
	if n := countTokens(strings.ToUpper(text), mailKeys); n != 2 {
		t.Errorf("countTokens uppercase = %d, want 2", n)
	}
}
