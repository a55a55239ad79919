package storage

import "time"

// AuditRecord is a persisted copy of an in-process audit entry.
type AuditRecord struct {
	ID        string            `json:"id" db:"id"`
	Operation string            `json:"operation" db:"operation"`
	UserName  string            `json:"user,omitempty" db:"user_name"`
	Details   map[string]string `json:"details,omitempty" db:"details"`
	Success   bool              `json:"success" db:"success"`
	Error     string            `json:"error,omitempty" db:"error"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}

// AuditFilter provides criteria for querying audit records.
type AuditFilter struct {
	Operation string
	Success   *bool
	Since     *time.Time
	Limit     int
	Offset    int
}
