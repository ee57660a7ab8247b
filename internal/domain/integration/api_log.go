package integration

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxRawResponseLength bounds non-JSON response bodies kept in the API log
const MaxRawResponseLength = 2000

// APILogEntry is the immutable trace of one QuickBooks API call. Payloads are
// sanitized before they are stored.
type APILogEntry struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	FunctionName       string
	EntityType         string
	EntityID           *uuid.UUID
	QuickBooksEntityID string
	Method             string
	Endpoint           string
	// HTTPStatus is 0 when no response was received
	HTTPStatus         int
	RequestPayload     any
	ResponsePayload    any
	ErrorMessage       string
	InitiatedBy        *uuid.UUID
	RequestSentAt      time.Time
	ResponseReceivedAt *time.Time
}

var (
	redactedKeys = []string{"authorization", "access_token", "refresh_token", "token", "password", "secret"}
	maskedKeys   = []string{"tax_id", "ssn", "bank_account_number", "bank_routing_number"}
)

// SanitizePayload returns a copy of a decoded JSON payload with credentials
// redacted and PII masked. Keys are matched case-insensitively by substring.
// Masked strings longer than four characters keep their last four.
func SanitizePayload(payload any) any {
	switch v := payload.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			lower := strings.ToLower(key)
			switch {
			case containsAny(lower, redactedKeys):
				out[key] = "[REDACTED]"
			case containsAny(lower, maskedKeys):
				out[key] = maskValue(value)
			default:
				out[key] = SanitizePayload(value)
			}
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = SanitizePayload(item)
		}
		return out
	default:
		return payload
	}
}

// RawResponsePayload wraps a non-JSON body for the log, truncated to
// MaxRawResponseLength bytes.
func RawResponsePayload(body string) map[string]any {
	if len(body) > MaxRawResponseLength {
		body = body[:MaxRawResponseLength]
	}
	return map[string]any{"raw_text": body}
}

func maskValue(v any) string {
	if s, ok := v.(string); ok && len(s) > 4 {
		return "***" + s[len(s)-4:]
	}
	return "[MASKED]"
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
