package domain

import "time"

// PIIKind names a category of personally identifiable information.
type PIIKind string

// PII kinds recognised by the security filter, in evaluation order.
const (
	PIISSN            PIIKind = "ssn"
	PIICreditCard     PIIKind = "credit_card"
	PIIAccountNumber  PIIKind = "account_number"
	PIIRoutingNumber  PIIKind = "routing_number"
	PIIPhone          PIIKind = "phone"
	PIIEmail          PIIKind = "email"
	PIIDriversLicense PIIKind = "drivers_license"
	PIIPassport       PIIKind = "passport"
)

// PIIMatch is one detected span of PII.
type PIIMatch struct {
	Kind  PIIKind
	Value string
}

// RiskLevel grades how sensitive a query is.
type RiskLevel string

// Risk levels, most severe first.
const (
	RiskCritical RiskLevel = "CRITICAL"
	RiskHigh     RiskLevel = "HIGH"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskLow      RiskLevel = "LOW"
)

// SecurityEventType identifies what the security gate observed.
type SecurityEventType string

// Security event types written to the audit trail.
const (
	EventUnsafeQuery         SecurityEventType = "UNSAFE_QUERY"
	EventHumanReviewRequired SecurityEventType = "HUMAN_REVIEW_REQUIRED"
	EventResponseSanitized   SecurityEventType = "RESPONSE_SANITIZED"
)

// SecurityEvent is an audit record. Preview never holds unsanitised text.
type SecurityEvent struct {
	ID        string
	Type      SecurityEventType
	SessionID string
	QueryID   string
	RiskLevel RiskLevel
	Reason    string
	Preview   string
	CreatedAt time.Time
}
