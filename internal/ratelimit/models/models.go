package models

import (
	"net/http"
	"strings"
	"time"
)

// EndpointClass groups routes that share a request budget.
type EndpointClass string

const (
	// ClassClock covers clock attempts and location checks.
	ClassClock EndpointClass = "clock"
	// ClassChallenge covers biometric challenge issuance.
	ClassChallenge EndpointClass = "challenge"
	ClassWrite     EndpointClass = "write"
	ClassRead      EndpointClass = "read"
)

func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassClock, ClassChallenge, ClassWrite, ClassRead:
		return true
	}
	return false
}

// Classify picks the class for a request from its method and path.
func Classify(method, path string) EndpointClass {
	path = strings.TrimSuffix(path, "/")
	if method == http.MethodGet || method == http.MethodHead {
		return ClassRead
	}
	switch {
	case strings.HasSuffix(path, "/clock/attempts"), strings.HasSuffix(path, "/clock/location"):
		return ClassClock
	case strings.HasSuffix(path, "/biometric/challenges"):
		return ClassChallenge
	default:
		return ClassWrite
	}
}

// Limit allows Requests per sliding Window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// DefaultLimits are per-identity budgets per minute.
func DefaultLimits() map[EndpointClass]Limit {
	return map[EndpointClass]Limit{
		ClassClock:     {Requests: 10, Window: time.Minute},
		ClassChallenge: {Requests: 10, Window: time.Minute},
		ClassWrite:     {Requests: 30, Window: time.Minute},
		ClassRead:      {Requests: 120, Window: time.Minute},
	}
}

// Result is the outcome of one rate limit check.
type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

type ExceededResponse struct {
	Error      string `json:"error"`
	Category   string `json:"category"`
	Message    string `json:"error_description"`
	RetryAfter int    `json:"retry_after"`
}

// SanitizeKeySegment escapes the key delimiter so a crafted subject cannot
// address another bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// Key builds the bucket key for a subject within a class.
func Key(class EndpointClass, subject string) string {
	return "clockgate:rl:" + string(class) + ":" + SanitizeKeySegment(subject)
}
