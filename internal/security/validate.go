package security

import (
	"regexp"
	"strings"
)

// Kind tags a validated input with the rule that produced it.
type Kind int

const (
	KindPhoneNumber Kind = iota
	KindEmailAddress
	KindSearchQuery
	KindMessageContent
	KindFolderName
	KindFilePath
)

func (k Kind) String() string {
	switch k {
	case KindPhoneNumber:
		return "phone_number"
	case KindEmailAddress:
		return "email_address"
	case KindSearchQuery:
		return "search_query"
	case KindMessageContent:
		return "message_content"
	case KindFolderName:
		return "folder_name"
	case KindFilePath:
		return "file_path"
	default:
		return "unknown"
	}
}

// Input is a value that passed the validation rule for its Kind. The fields are
// unexported so nothing outside this package can construct one directly.
type Input struct {
	kind  Kind
	value string
}

func (i Input) Kind() Kind     { return i.kind }
func (i Input) String() string { return i.value }

const (
	maxSearchQueryLength = 500
	maxEmailLength       = 254
	minPhoneNumberLength = 10
	maxPhoneNumberLength = 20
	defaultMessageLength = 10000
)

var (
	phoneCharset = regexp.MustCompile(`^[0-9+\s\-().]+$`)
	emailShape   = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)
	phoneStrip   = regexp.MustCompile(`[^0-9+]`)
)

// ValidatePhoneNumber checks length and charset, then normalizes to digits and
// a leading plus.
func ValidatePhoneNumber(raw string) (Input, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) < minPhoneNumberLength || len(trimmed) > maxPhoneNumberLength {
		return Input{}, &ValidationError{Field: "phone_number", Message: "must be 10-20 characters"}
	}
	if !phoneCharset.MatchString(trimmed) {
		return Input{}, &ValidationError{Field: "phone_number", Message: "contains invalid characters"}
	}
	normalized := phoneStrip.ReplaceAllString(trimmed, "")
	if len(strings.TrimPrefix(normalized, "+")) < minPhoneNumberLength-3 {
		return Input{}, &ValidationError{Field: "phone_number", Message: "too few digits"}
	}
	return Input{kind: KindPhoneNumber, value: normalized}, nil
}

// ValidateEmail performs an RFC-shaped syntactic check.
func ValidateEmail(raw string) (Input, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Input{}, &ValidationError{Field: "email", Message: "must not be empty"}
	}
	if len(trimmed) > maxEmailLength {
		return Input{}, &ValidationError{Field: "email", Message: "exceeds 254 characters"}
	}
	if !emailShape.MatchString(trimmed) {
		return Input{}, &ValidationError{Field: "email", Message: "is not a valid address"}
	}
	return Input{kind: KindEmailAddress, value: trimmed}, nil
}

// ValidateSearchQuery trims, bounds, and scans the query for dangerous
// signatures.
func ValidateSearchQuery(raw string) (Input, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Input{}, &ValidationError{Field: "search_query", Message: "must not be empty"}
	}
	if len(trimmed) > maxSearchQueryLength {
		return Input{}, &ValidationError{Field: "search_query", Message: "exceeds 500 characters"}
	}
	if name := scanDangerous(trimmed); name != "" {
		return Input{}, &ValidationError{Field: "search_query", Message: "contains forbidden pattern " + name}
	}
	return Input{kind: KindSearchQuery, value: trimmed}, nil
}

// ValidateMessageContent trims, bounds to maxLength (the configured
// MAX_MESSAGE_LENGTH; <= 0 means the 10000 default), and scans for dangerous
// signatures.
func ValidateMessageContent(raw string, maxLength int) (Input, error) {
	if maxLength <= 0 {
		maxLength = defaultMessageLength
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Input{}, &ValidationError{Field: "message_content", Message: "must not be empty"}
	}
	if len(trimmed) > maxLength {
		return Input{}, &ValidationError{Field: "message_content", Message: "exceeds maximum length"}
	}
	if name := scanDangerous(trimmed); name != "" {
		return Input{}, &ValidationError{Field: "message_content", Message: "contains forbidden pattern " + name}
	}
	return Input{kind: KindMessageContent, value: trimmed}, nil
}

// ValidateFolderName rejects characters illegal in a filesystem name.
func ValidateFolderName(raw string) (Input, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Input{}, &ValidationError{Field: "folder_name", Message: "must not be empty"}
	}
	if strings.ContainsAny(trimmed, `/\:*?"<>|`) {
		return Input{}, &ValidationError{Field: "folder_name", Message: "contains illegal characters"}
	}
	for _, r := range trimmed {
		if r < 0x20 {
			return Input{}, &ValidationError{Field: "folder_name", Message: "contains control characters"}
		}
	}
	return Input{kind: KindFolderName, value: trimmed}, nil
}

// ValidateFilePath rejects any value containing a parent-directory traversal
// token.
func ValidateFilePath(raw string) (Input, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Input{}, &ValidationError{Field: "file_path", Message: "must not be empty"}
	}
	if strings.Contains(trimmed, "..") {
		return Input{}, &ValidationError{Field: "file_path", Message: "contains a path traversal token"}
	}
	for _, r := range trimmed {
		if r < 0x20 {
			return Input{}, &ValidationError{Field: "file_path", Message: "contains control characters"}
		}
	}
	return Input{kind: KindFilePath, value: trimmed}, nil
}
