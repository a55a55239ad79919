package api

// MailSearchRequest queries Mail.app.
type MailSearchRequest struct {
	Query   string  `json:"query"`
	Mailbox string  `json:"mailbox,omitempty"`
	Limit   float64 `json:"limit,omitempty"`
}

// MailSendRequest composes and sends an email.
type MailSendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// MessageSendRequest sends an iMessage/SMS.
type MessageSendRequest struct {
	Recipient string `json:"recipient"`
	Text      string `json:"text"`
}

// MessageRecentRequest reads recent messages for one conversation.
type MessageRecentRequest struct {
	Recipient string  `json:"recipient"`
	Limit     float64 `json:"limit,omitempty"`
}

// ContactSearchRequest searches Contacts.app by name.
type ContactSearchRequest struct {
	Name  string  `json:"name"`
	Limit float64 `json:"limit,omitempty"`
}

// ReminderCreateRequest creates a reminder.
type ReminderCreateRequest struct {
	Name string `json:"name"`
	List string `json:"list,omitempty"`
}

// RecordsResponse carries the records of a completed operation.
type RecordsResponse struct {
	Status  string              `json:"status"`
	Count   int                 `json:"count"`
	Records []map[string]string `json:"records"`
}

// ErrorResponse is the standard error shape.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthResponse reports server health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database bool   `json:"database"`
	Uptime   string `json:"uptime"`
}
