package osa

import "testing"

func TestBindQuery(t *testing.T) {
	tests := []struct {
		name     string
		template string
		params   []any
		want     string
		wantErr  bool
	}{
		{
			"string param",
			"SELECT * FROM handle WHERE id = ?",
			[]any{"+15551234567"},
			"SELECT * FROM handle WHERE id = '+15551234567'",
			false,
		},
		{
			"int param",
			"SELECT text FROM message LIMIT ?",
			[]any{int(25)},
			"SELECT text FROM message LIMIT 25",
			false,
		},
		{
			"int64 param",
			"SELECT * FROM message WHERE rowid = ?",
			[]any{int64(9000000001)},
			"SELECT * FROM message WHERE rowid = 9000000001",
			false,
		},
		{
			"float param",
			"SELECT * FROM message WHERE date > ?",
			[]any{float64(1.5)},
			"SELECT * FROM message WHERE date > 1.5",
			false,
		},
		{
			"mixed params in order",
			"SELECT text FROM message WHERE handle = ? LIMIT ?",
			[]any{"+15551234567", 10},
			"SELECT text FROM message WHERE handle = '+15551234567' LIMIT 10",
			false,
		},
		{
			"quote escaped",
			"SELECT * FROM handle WHERE id = ?",
			[]any{"x'; DROP TABLE message; --"},
			"SELECT * FROM handle WHERE id = 'x''; DROP TABLE message; --'",
			false,
		},
		{
			"too few params",
			"SELECT ? FROM t WHERE a = ?",
			[]any{"x"},
			"",
			true,
		},
		{
			"too many params",
			"SELECT * FROM t WHERE a = ?",
			[]any{"x", "y"},
			"",
			true,
		},
		{
			"unsupported type",
			"SELECT * FROM t WHERE a = ?",
			[]any{[]byte("x")},
			"",
			true,
		},
		{
			"no placeholders",
			"SELECT 1",
			nil,
			"SELECT 1",
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BindQuery(tt.template, tt.params...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BindQuery error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("BindQuery = %q, want %q", got, tt.want)
			}
		})
	}
}
